package tensor

import (
	"fmt"
	"math"

	"github.com/born-ml/ascent/internal/parallel"
)

// kernelCfg is shared by all elementwise kernels.
var kernelCfg = parallel.DefaultConfig()

// AddInto computes dst += src elementwise.
func AddInto(dst, src *Dense) error {
	if !dst.shape.Equal(src.shape) {
		return fmt.Errorf("shape mismatch: dst %v, src %v", dst.shape, src.shape)
	}
	d, s := dst.data, src.data
	parallel.For(len(d), func(i int) {
		d[i] += s[i]
	}, kernelCfg)
	return nil
}

// Scale multiplies every element of t by factor, in place.
func Scale(t *Dense, factor float32) {
	d := t.data
	parallel.For(len(d), func(i int) {
		d[i] *= factor
	}, kernelCfg)
}

// SumSquares returns the sum of squared elements, accumulated in float64.
func SumSquares(t *Dense) float64 {
	d := t.data
	return parallel.Sum(len(d), func(i int) float64 {
		v := float64(d[i])
		return v * v
	}, kernelCfg)
}

// AllFinite reports whether every element is finite (no NaN, no Inf).
func AllFinite(t *Dense) bool {
	for _, v := range t.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// GlobalNorm returns the L2 norm over all elements of all tensors,
// sqrt(sum_i ||t_i||^2).
func GlobalNorm(tensors []*Dense) float64 {
	total := 0.0
	for _, t := range tensors {
		total += SumSquares(t)
	}
	return math.Sqrt(total)
}

// ClipByGlobalNorm scales every tensor by clipNorm / max(useNorm, clipNorm),
// in place.
//
// useNorm is the reference norm the caller chose; passing the true global
// norm gives standard global-norm clipping to the clipNorm ceiling. The
// caller may substitute a finite stand-in when the true norm is not usable.
func ClipByGlobalNorm(tensors []*Dense, clipNorm, useNorm float64) {
	scale := clipNorm / math.Max(useNorm, clipNorm)
	if scale == 1.0 {
		return
	}
	f := float32(scale)
	for _, t := range tensors {
		Scale(t, f)
	}
}
