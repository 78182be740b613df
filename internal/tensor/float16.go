package tensor

import "math"

// Float16 is an IEEE 754 half-precision value stored in a uint16
// (1 sign bit, 5 exponent bits, 10 mantissa bits). Go has no native
// float16; the wire codec in the dist package round-trips gradients
// through this representation.
type Float16 uint16

// F32ToF16 converts a float32 to half precision. Values above the float16
// range become infinities, values below the smallest normal flush to signed
// zero, and NaN is preserved.
func F32ToF16(f float32) Float16 {
	if math.IsNaN(float64(f)) {
		return 0x7E00
	}
	if math.IsInf(float64(f), 1) {
		return 0x7C00
	}
	if math.IsInf(float64(f), -1) {
		return 0xFC00
	}

	bits := math.Float32bits(f)
	sign := bits & 0x80000000
	bits &= 0x7FFFFFFF

	if bits >= 0x47800000 { // >= 65520: out of float16 range
		return Float16((sign >> 16) | 0x7C00)
	}
	if bits < 0x38800000 { // < 2^-14: below the smallest normal
		return Float16(sign >> 16)
	}

	exp := (bits >> 23) - 127 + 15
	mantissa := bits >> 13
	return Float16((sign >> 16) | (exp << 10) | (mantissa & 0x3FF))
}

// F16ToF32 converts a half-precision value back to float32.
func F16ToF32(h Float16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h&0x7C00) >> 10
	mantissa := uint32(h & 0x3FF)

	if exp == 0x1F { // Inf or NaN
		if mantissa == 0 {
			return math.Float32frombits(sign | 0x7F800000)
		}
		return math.Float32frombits(sign | 0x7FC00000)
	}
	if exp == 0 {
		// Zero; subnormals were flushed on the way in.
		return math.Float32frombits(sign)
	}

	exp32 := (exp - 15 + 127) << 23
	return math.Float32frombits(sign | exp32 | mantissa<<13)
}
