// Package train assembles the per-step update pipeline: reduce, guard,
// clip, accumulate, apply, advance.
//
// One Driver exists per worker process. Within a worker the step is a
// strictly ordered sequence of synchronous operations; the only
// cross-worker interaction is through the configured Reducer, whose
// collective calls are lockstep barriers.
package train

import (
	"fmt"

	"github.com/born-ml/ascent/internal/dist"
	"github.com/born-ml/ascent/internal/grad"
	"github.com/born-ml/ascent/internal/optim"
	"github.com/born-ml/ascent/internal/param"
	"github.com/born-ml/ascent/internal/schedule"
	"github.com/born-ml/ascent/internal/tensor"
)

// Result reports what one micro-step did.
type Result struct {
	// Applied is true when this micro-step completed a cycle whose update
	// was actually applied to the parameters.
	Applied bool

	// CycleComplete is true when this micro-step finished an accumulation
	// cycle, whether or not the update was applied.
	CycleComplete bool

	// Finite is this micro-step's own finiteness verdict.
	Finite bool

	// BatchFinite is the cycle-wide verdict, including the cross-worker
	// agreement. Meaningful only when CycleComplete.
	BatchFinite bool

	// GradNorm is the reference norm used for clipping this micro-step's
	// gradients (exactly 1.0 when the step was non-finite).
	GradNorm float64

	// LearningRate is the base schedule rate the update used. Zero unless
	// Applied.
	LearningRate float64

	GlobalStep int64
	LocalStep  int64
}

// Driver owns one worker's optimizer state and step counters.
//
// Step is not safe for concurrent use; the enclosing trainer calls it once
// per micro-batch from its step loop.
type Driver struct {
	cfg   Config
	rates schedule.Rates
	adam  *optim.AdamWeightDecay
	guard grad.Guard
	accum *grad.Accumulator

	params     []*param.Parameter
	byName     map[string]*param.Parameter
	globalStep int64
}

// New builds a driver for the given trainable parameters.
//
// All configuration errors surface here, before any optimizer state is
// created: an invalid config, or - with layer-wise rates - a parameter
// that matches no rate group.
func New(params []*param.Parameter, cfg Config) (*Driver, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rates := schedule.Rates{
		Schedule: schedule.Polynomial{
			Base:             cfg.BaseLearningRate,
			TotalSteps:       cfg.TotalSteps,
			WarmupSteps:      cfg.WarmupSteps,
			WarmupProportion: cfg.WarmupProportion,
			Power:            cfg.DecayPower,
		},
	}
	if cfg.LayerwiseDecayPower > 0 {
		rates.Groups = schedule.LayerwiseGroups(cfg.NumLayers, cfg.LayerwiseDecayPower)
	}

	adam, err := optim.NewAdamWeightDecay(params, optim.AdamWeightDecayConfig{
		Rates:                  rates,
		WeightDecayRate:        cfg.WeightDecayRate,
		Beta1:                  cfg.Beta1,
		Beta2:                  cfg.Beta2,
		Epsilon:                cfg.Epsilon,
		ExcludeFromWeightDecay: cfg.ExcludeFromWeightDecay,
	})
	if err != nil {
		return nil, err
	}

	accum, err := grad.NewAccumulator(cfg.AccumulationSteps)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*param.Parameter, len(params))
	for _, p := range params {
		byName[p.Name()] = p
	}

	return &Driver{
		cfg:    cfg,
		rates:  rates,
		adam:   adam,
		guard:  grad.Guard{MixedPrecision: cfg.MixedPrecision},
		accum:  accum,
		params: params,
		byName: byName,
	}, nil
}

// Step consumes one micro-batch's gradients, keyed by parameter name, and
// runs the pipeline: unscale, reduce (pre mode), finiteness check, clip,
// accumulate, and - on a completed cycle - reduce (post mode), agree on
// finiteness across workers, then either apply the Adam update and advance
// the global step, or skip the cycle entirely.
//
// The driver takes ownership of the gradient tensors for the duration of
// the call and mutates them in place. A non-finite cycle is not an error;
// it is reported through the Result. Errors are structural: unknown names,
// shape drift, or a failed collective.
func (d *Driver) Step(grads map[string]*tensor.Dense) (Result, error) {
	if err := d.checkShapes(grads); err != nil {
		return Result{}, err
	}

	if d.cfg.LossScaler != nil {
		d.cfg.LossScaler.Unscale(grads)
	}

	// Default mode reduces every micro-step's gradients, so the guard and
	// clip below see what every worker agreed on.
	var err error
	if d.cfg.Reducer != nil && !d.cfg.ReduceAfterAccumulation {
		grads, err = d.reduce(grads)
		if err != nil {
			return Result{}, err
		}
	}

	gradList := make([]*tensor.Dense, 0, len(grads))
	for _, g := range grads {
		gradList = append(gradList, g)
	}

	finite := d.guard.Check(gradList)
	if d.cfg.LossScaler != nil {
		d.cfg.LossScaler.Update(finite)
	}
	norm := grad.ClipForUpdate(gradList, finite)

	complete, err := d.accum.Add(grads, finite)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		CycleComplete: complete,
		Finite:        finite,
		GradNorm:      norm,
		GlobalStep:    d.globalStep,
		LocalStep:     d.accum.LocalStep(),
	}
	if !complete {
		return res, nil
	}

	buffers := d.accum.Buffers()
	if d.cfg.Reducer != nil && d.cfg.ReduceAfterAccumulation {
		buffers, err = d.reduce(buffers)
		if err != nil {
			return Result{}, err
		}
	}

	batchFinite := d.accum.BatchFinite()
	if d.cfg.Reducer != nil {
		batchFinite, err = dist.AllFiniteAcross(d.cfg.Reducer, batchFinite)
		if err != nil {
			return Result{}, err
		}
	}
	res.BatchFinite = batchFinite

	if !batchFinite {
		// The cycle is poisoned: no parameter or moment moves, the global
		// step stays, and the next micro-step starts a fresh cycle.
		return res, nil
	}

	if err := d.adam.Apply(buffers, d.globalStep); err != nil {
		return Result{}, err
	}
	res.Applied = true
	res.LearningRate = d.rates.Schedule.Rate(d.globalStep)
	d.globalStep++
	res.GlobalStep = d.globalStep
	return res, nil
}

// reduce averages the named tensors across workers, applying the wire
// codec first.
func (d *Driver) reduce(grads map[string]*tensor.Dense) (map[string]*tensor.Dense, error) {
	for _, g := range grads {
		d.cfg.Compression.RoundTrip(g)
	}
	reduced, err := d.cfg.Reducer.AllreduceSum(grads)
	if err != nil {
		return nil, fmt.Errorf("allreduce: %w", err)
	}
	if n := d.cfg.Reducer.Size(); n > 1 {
		inv := float32(1.0 / float64(n))
		for _, g := range reduced {
			tensor.Scale(g, inv)
		}
	}
	return reduced, nil
}

// checkShapes rejects gradients that do not line up with a known parameter
// before anything mutates.
func (d *Driver) checkShapes(grads map[string]*tensor.Dense) error {
	for name, g := range grads {
		p, ok := d.byName[name]
		if !ok {
			return fmt.Errorf("gradient for unknown parameter %q", name)
		}
		if !g.Shape().Equal(p.Value().Shape()) {
			return fmt.Errorf("gradient shape %v does not match parameter %q shape %v",
				g.Shape(), name, p.Value().Shape())
		}
	}
	return nil
}

// GlobalStep returns the number of applied updates so far.
func (d *Driver) GlobalStep() int64 {
	return d.globalStep
}

// LocalStep returns the micro-step position within the current cycle.
func (d *Driver) LocalStep() int64 {
	return d.accum.LocalStep()
}

// Optimizer exposes the underlying optimizer, e.g. for state-dict export
// at a checkpoint boundary.
func (d *Driver) Optimizer() *optim.AdamWeightDecay {
	return d.adam
}

// AccumSuffix is the persisted name suffix for accumulation buffers.
const AccumSuffix = "/accum"

// StateDict exports everything a checkpoint must carry for this worker:
// the Adam moments plus, when accumulating over more than one micro-step,
// the accumulation buffers under "<base>/accum".
//
// Checkpoints are taken at completed cycle boundaries, so restoring the
// buffers only matters for inspecting a mid-cycle crash dump; they are
// exported regardless to keep the persisted name set stable.
func (d *Driver) StateDict() map[string]*tensor.Dense {
	out := d.adam.StateDict()
	if d.accum.Steps() > 1 {
		buffers := d.accum.Buffers()
		for _, p := range d.params {
			if buf, ok := buffers[p.Name()]; ok {
				out[p.BaseName()+AccumSuffix] = buf
			}
		}
	}
	return out
}

// DensifyGradients converts row-sparse gradients (embedding updates) to
// dense buffers so they can enter the reduce/clip/accumulate pipeline.
// Dense entries in grads pass through untouched.
func DensifyGradients(sparse map[string]*tensor.RowSparse, grads map[string]*tensor.Dense) map[string]*tensor.Dense {
	if grads == nil {
		grads = make(map[string]*tensor.Dense, len(sparse))
	}
	for name, s := range sparse {
		grads[name] = s.ToDense()
	}
	return grads
}
