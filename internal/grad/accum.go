package grad

import (
	"fmt"

	"github.com/born-ml/ascent/internal/tensor"
)

// Accumulator sums clipped gradients across micro-steps so one real update
// can be applied per cycle of Steps micro-batches.
//
// The cycle position is tracked by a local step counter: a micro-step
// arriving when localStep % Steps == 0 starts a new cycle (buffers are
// overwritten, the finite flag is reseeded), any other micro-step adds into
// the buffers and ANDs its finite flag in. A single non-finite micro-step
// poisons the whole cycle.
//
// With Steps == 1 every micro-step is a complete cycle and the accumulator
// is a pass-through.
type Accumulator struct {
	steps       int64
	localStep   int64
	batchFinite bool
	buffers     map[string]*tensor.Dense
}

// NewAccumulator creates an accumulator over the given cycle length.
func NewAccumulator(steps int) (*Accumulator, error) {
	if steps < 1 {
		return nil, fmt.Errorf("accumulation steps must be >= 1, got %d", steps)
	}
	return &Accumulator{
		steps:       int64(steps),
		batchFinite: true,
		buffers:     make(map[string]*tensor.Dense),
	}, nil
}

// Add feeds one micro-step's clipped gradients in and reports whether the
// cycle is now complete.
//
// Buffers are created on first sight of a name and are never reshaped; a
// gradient arriving with a different shape than its buffer is structural
// corruption and returns an error.
func (a *Accumulator) Add(grads map[string]*tensor.Dense, finite bool) (complete bool, err error) {
	reset := a.localStep%a.steps == 0

	for name, g := range grads {
		buf, ok := a.buffers[name]
		if ok && !buf.Shape().Equal(g.Shape()) {
			return false, fmt.Errorf("accumulation buffer for %q has shape %v, gradient has %v",
				name, buf.Shape(), g.Shape())
		}
	}

	if reset {
		a.localStep = 1
		a.batchFinite = finite
		for name, g := range grads {
			if buf, ok := a.buffers[name]; ok {
				_ = buf.CopyFrom(g) // shapes checked above
			} else {
				a.buffers[name] = g.Clone()
			}
		}
	} else {
		a.localStep++
		a.batchFinite = a.batchFinite && finite
		for name, g := range grads {
			if buf, ok := a.buffers[name]; ok {
				_ = tensor.AddInto(buf, g)
			} else {
				a.buffers[name] = g.Clone()
			}
		}
	}

	return a.localStep%a.steps == 0, nil
}

// Buffers returns the live accumulation buffers, keyed by parameter name.
// Valid as the effective gradient only when Add reported a complete cycle.
func (a *Accumulator) Buffers() map[string]*tensor.Dense {
	return a.buffers
}

// BatchFinite reports whether every micro-step of the current cycle was
// finite.
func (a *Accumulator) BatchFinite() bool {
	return a.batchFinite
}

// LocalStep returns the number of micro-steps since the last cycle reset.
func (a *Accumulator) LocalStep() int64 {
	return a.localStep
}

// Steps returns the configured cycle length.
func (a *Accumulator) Steps() int64 {
	return a.steps
}
