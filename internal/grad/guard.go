// Package grad handles the numerically fragile half of the step: deciding
// whether reduced-precision gradients are usable, clipping them by global
// norm, and accumulating them across micro-steps.
package grad

import "github.com/born-ml/ascent/internal/tensor"

// ClipCeiling is the global-norm ceiling gradients are clipped to before
// accumulation. Pretrained checkpoints assume this exact value.
const ClipCeiling = 1.0

// Guard decides whether a micro-step's gradients are numerically usable.
//
// Full-precision training cannot silently overflow in this pipeline, so the
// elementwise scan only runs under mixed precision; otherwise every step is
// reported finite without looking.
type Guard struct {
	MixedPrecision bool
}

// Check reports whether every element of every gradient is finite.
func (g Guard) Check(grads []*tensor.Dense) bool {
	if !g.MixedPrecision {
		return true
	}
	for _, t := range grads {
		if !tensor.AllFinite(t) {
			return false
		}
	}
	return true
}

// ClipForUpdate clips grads in place to the ClipCeiling global norm and
// returns the reference norm it used.
//
// When finite is false the true norm would itself be NaN or Inf and would
// poison the clip arithmetic, so a fixed norm of 1.0 is substituted: the
// clipped gradients stay mathematically well-formed even though the driver
// will discard the cycle they belong to.
func ClipForUpdate(grads []*tensor.Dense, finite bool) float64 {
	useNorm := 1.0
	if finite {
		useNorm = tensor.GlobalNorm(grads)
	}
	tensor.ClipByGlobalNorm(grads, ClipCeiling, useNorm)
	return useNorm
}
