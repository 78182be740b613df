// Package dist defines the collective-reduction contract the training core
// invokes, plus an in-process realization for tests and single-host
// multi-worker runs.
//
// Collective calls are synchronization barriers: every worker must reach
// the same call in the same cycle state, or the collective never completes.
// Keeping local and global step counters identical across workers is
// therefore a correctness requirement of the enclosing trainer, not
// bookkeeping.
package dist

import "github.com/born-ml/ascent/internal/tensor"

// Reducer is the collective all-reduce contract. Every cooperating worker
// calls the same method with its local contribution and receives the
// identical combined result.
//
// It is not safe to issue overlapping collective calls from one worker.
type Reducer interface {
	// Size returns the number of cooperating workers.
	Size() int

	// AllreduceSum sums the named tensors elementwise across workers.
	// Every worker must present the same names with the same shapes.
	// The returned tensors are fresh; inputs are not mutated.
	AllreduceSum(grads map[string]*tensor.Dense) (map[string]*tensor.Dense, error)

	// AllreduceInt sums an integer across workers.
	AllreduceInt(v int) (int, error)
}

// AllFiniteAcross realizes a logical AND of per-worker finiteness flags
// over an integer all-reduce: each worker contributes 0 or 1, and the flag
// holds everywhere iff the sum equals the worker count.
func AllFiniteAcross(r Reducer, finite bool) (bool, error) {
	contrib := 0
	if finite {
		contrib = 1
	}
	sum, err := r.AllreduceInt(contrib)
	if err != nil {
		return false, err
	}
	return sum == r.Size(), nil
}
