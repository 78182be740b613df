// Package optim implements the parameter-update side of the training core.
//
// This package provides:
//   - Optimizer: the interface the driver applies updates through
//   - AdamWeightDecay: Adam with decoupled weight decay and per-group
//     learning rates, state-compatible with externally produced checkpoints
//
// Design follows torch.optim-style optimizers adapted for Go: the optimizer
// references parameters, owns their moment state, and mutates parameter
// values in place when an update is applied.
package optim

import (
	"github.com/born-ml/ascent/internal/tensor"
)

// Optimizer applies one gradient update to its parameters.
//
// Gradients are keyed by parameter name. Parameters without a gradient in
// the map are skipped. The step argument is the global step the enclosing
// driver is about to complete; schedules are evaluated at that step.
type Optimizer interface {
	// Apply updates all parameters that have a gradient in grads.
	//
	// Apply validates every gradient before mutating anything: a shape
	// mismatch or an unknown name returns an error with no state touched.
	Apply(grads map[string]*tensor.Dense, step int64) error

	// StateDict exports the optimizer's slot variables under their
	// persisted names.
	StateDict() map[string]*tensor.Dense
}
