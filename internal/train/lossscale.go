package train

import "github.com/born-ml/ascent/internal/tensor"

// Loss-scale policy constants, matching the schedule the pretraining runs
// used: start huge, back off quickly on overflow, creep back up.
const (
	initialLossScale   = float64(1 << 32)
	scaleGrowthEvery   = 1000 // consecutive finite steps between doublings
	scaleBackoffAfter  = 2    // consecutive non-finite steps before halving
	scaleBackoffFactor = 0.5
)

// LossScaler implements dynamic loss scaling for mixed-precision training.
//
// The loss is multiplied by the current scale before the backward pass so
// small gradients survive float16; the driver divides the scale back out of
// the gradients before the finiteness check. Overflowed steps shrink the
// scale, long runs of clean steps grow it.
type LossScaler struct {
	scale     float64
	goodSteps int
	badSteps  int
}

// NewLossScaler creates a scaler at the initial scale of 2^32.
func NewLossScaler() *LossScaler {
	return &LossScaler{scale: initialLossScale}
}

// Scale returns the current loss scale. Always a power of two, so scaling
// and unscaling are exact.
func (s *LossScaler) Scale() float64 {
	return s.scale
}

// ScaleLoss returns the loss multiplied by the current scale.
func (s *LossScaler) ScaleLoss(loss float32) float32 {
	return loss * float32(s.scale)
}

// Unscale divides the scale back out of every gradient, in place.
// Non-finite values stay non-finite for the guard to catch.
func (s *LossScaler) Unscale(grads map[string]*tensor.Dense) {
	inv := float32(1.0 / s.scale)
	for _, g := range grads {
		tensor.Scale(g, inv)
	}
}

// Update advances the policy with one micro-step's finiteness verdict.
func (s *LossScaler) Update(finite bool) {
	if !finite {
		s.goodSteps = 0
		s.badSteps++
		if s.badSteps >= scaleBackoffAfter {
			s.badSteps = 0
			s.scale *= scaleBackoffFactor
			if s.scale < 1 {
				s.scale = 1
			}
		}
		return
	}
	s.badSteps = 0
	s.goodSteps++
	if s.goodSteps >= scaleGrowthEvery {
		s.goodSteps = 0
		s.scale *= 2
	}
}
