package dist

import "github.com/born-ml/ascent/internal/tensor"

// Compression selects the codec gradients pass through on their way to the
// collective. Float16 halves the bytes on the wire at the cost of a lossy
// round-trip; the reduced result every worker sees reflects that loss.
type Compression int

const (
	// NoCompression transmits gradients as float32.
	NoCompression Compression = iota

	// Float16Compression round-trips gradients through IEEE half precision
	// before reduction.
	Float16Compression
)

// String returns the codec name.
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case Float16Compression:
		return "fp16"
	default:
		return "unknown"
	}
}

// RoundTrip applies the codec's encode/decode loss to t in place.
//
// Each worker compresses before transmitting and decompresses what it
// receives, so numerically the collective sees the round-tripped values;
// applying the round-trip locally before AllreduceSum reproduces that.
func (c Compression) RoundTrip(t *tensor.Dense) {
	if c != Float16Compression {
		return
	}
	data := t.Data()
	for i, v := range data {
		data[i] = tensor.F16ToF32(tensor.F32ToF16(v))
	}
}
