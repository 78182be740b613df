package optim

import (
	"fmt"
	"math"
	"regexp"

	"github.com/born-ml/ascent/internal/param"
	"github.com/born-ml/ascent/internal/schedule"
	"github.com/born-ml/ascent/internal/tensor"
)

// Persisted slot-variable name suffixes. Externally produced checkpoints
// use exactly these, so they must never change.
const (
	FirstMomentSuffix  = "/adam_m"
	SecondMomentSuffix = "/adam_v"
)

// DefaultExcludeFromWeightDecay lists the parameter-name patterns that
// never receive weight decay: normalization scales/shifts and bias terms.
var DefaultExcludeFromWeightDecay = []string{"LayerNorm", "layer_norm", "bias"}

// AdamWeightDecayConfig configures AdamWeightDecay.
type AdamWeightDecayConfig struct {
	Rates           schedule.Rates
	WeightDecayRate float64
	Beta1           float64 // default 0.9
	Beta2           float64 // default 0.999
	Epsilon         float64 // default 1e-6

	// ExcludeFromWeightDecay holds regexp patterns searched against each
	// parameter's base name; a match disables decay for that parameter.
	// nil selects DefaultExcludeFromWeightDecay.
	ExcludeFromWeightDecay []string
}

// AdamWeightDecay is Adam with decoupled ("correct") weight decay.
//
// Deliberately, no bias-correction terms are applied to the moment
// estimates: the raw m and v feed the update directly. Checkpoints this
// optimizer must stay compatible with were pretrained that way, so
// "fixing" it would change every update early in training.
//
// Adding the squared weights to the loss is not equivalent: it would leak
// into m and v. Decay is therefore added to the update after the moment
// term, which matches plain SGD-style L2 on the weights.
type AdamWeightDecay struct {
	params []*param.Parameter
	byName map[string]*param.Parameter

	rates       schedule.Rates
	weightDecay float64
	beta1       float64
	beta2       float64
	epsilon     float64

	// Routing and decay decisions are precomputed at construction so the
	// hot path never matches strings.
	group map[string]int  // parameter name -> learning-rate group (-1 scalar)
	decay map[string]bool // parameter name -> receives weight decay

	m map[string]*tensor.Dense // keyed by base name
	v map[string]*tensor.Dense
}

// NewAdamWeightDecay builds the optimizer and allocates zeroed moment state
// for every parameter.
//
// Construction fails, before any state is created, if a per-group rate
// policy leaves some parameter without a group, if an exclusion pattern
// does not compile, or if two parameters share a base name.
func NewAdamWeightDecay(params []*param.Parameter, cfg AdamWeightDecayConfig) (*AdamWeightDecay, error) {
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-6
	}
	patterns := cfg.ExcludeFromWeightDecay
	if patterns == nil {
		patterns = DefaultExcludeFromWeightDecay
	}
	exclude := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad weight-decay exclusion pattern %q: %w", p, err)
		}
		exclude = append(exclude, re)
	}

	a := &AdamWeightDecay{
		params:      params,
		byName:      make(map[string]*param.Parameter, len(params)),
		rates:       cfg.Rates,
		weightDecay: cfg.WeightDecayRate,
		beta1:       cfg.Beta1,
		beta2:       cfg.Beta2,
		epsilon:     cfg.Epsilon,
		group:       make(map[string]int, len(params)),
		decay:       make(map[string]bool, len(params)),
		m:           make(map[string]*tensor.Dense, len(params)),
		v:           make(map[string]*tensor.Dense, len(params)),
	}

	// Resolve routing for every parameter first; nothing is allocated if
	// any parameter is unroutable.
	for _, p := range params {
		g, ok := cfg.Rates.Route(p.Name())
		if !ok {
			return nil, fmt.Errorf("no learning rate specified for parameter %q", p.Name())
		}
		a.group[p.Name()] = g
	}

	for _, p := range params {
		base := p.BaseName()
		if _, dup := a.m[base]; dup {
			return nil, fmt.Errorf("duplicate parameter base name %q", base)
		}
		a.byName[p.Name()] = p
		a.m[base] = tensor.Zeros(p.Value().Shape())
		a.v[base] = tensor.Zeros(p.Value().Shape())

		useDecay := cfg.WeightDecayRate > 0
		for _, re := range exclude {
			if re.MatchString(base) {
				useDecay = false
				break
			}
		}
		a.decay[p.Name()] = useDecay
	}
	return a, nil
}

// Apply performs the update for every parameter present in grads,
// evaluating the learning-rate schedule at step.
//
// Update rule, per element:
//
//	m' = beta1*m + (1-beta1)*g
//	v' = beta2*v + (1-beta2)*g^2
//	u  = m' / (sqrt(v') + epsilon)   [+ weight_decay * w, unless excluded]
//	w' = w - lr * u
func (a *AdamWeightDecay) Apply(grads map[string]*tensor.Dense, step int64) error {
	// Validate the whole batch before mutating any state.
	for name, g := range grads {
		p, ok := a.byName[name]
		if !ok {
			return fmt.Errorf("gradient for unknown parameter %q", name)
		}
		if !g.Shape().Equal(p.Value().Shape()) {
			return fmt.Errorf("gradient shape %v does not match parameter %q shape %v",
				g.Shape(), name, p.Value().Shape())
		}
	}

	for _, p := range a.params {
		g, ok := grads[p.Name()]
		if !ok {
			continue
		}
		lr := float32(a.rates.Rate(a.group[p.Name()], step))
		a.update(p, g, lr)
	}
	return nil
}

func (a *AdamWeightDecay) update(p *param.Parameter, g *tensor.Dense, lr float32) {
	base := p.BaseName()
	mData := a.m[base].Data()
	vData := a.v[base].Data()
	gData := g.Data()
	wData := p.Value().Data()

	beta1 := float32(a.beta1)
	beta2 := float32(a.beta2)
	eps := float32(a.epsilon)
	wd := float32(a.weightDecay)
	useDecay := a.decay[p.Name()]

	for i := range wData {
		grad := gData[i]
		mData[i] = beta1*mData[i] + (1.0-beta1)*grad
		vData[i] = beta2*vData[i] + (1.0-beta2)*grad*grad

		update := mData[i] / (float32(math.Sqrt(float64(vData[i]))) + eps)
		if useDecay {
			update += wd * wData[i]
		}
		wData[i] -= lr * update
	}
}

// Moments returns the (m, v) state for a parameter base name, or nil if
// the name is unknown.
func (a *AdamWeightDecay) Moments(baseName string) (m, v *tensor.Dense) {
	return a.m[baseName], a.v[baseName]
}

// StateDict exports the moment estimates under their persisted names,
// "<base>/adam_m" and "<base>/adam_v". The returned tensors alias live
// state.
func (a *AdamWeightDecay) StateDict() map[string]*tensor.Dense {
	out := make(map[string]*tensor.Dense, 2*len(a.m))
	for base, m := range a.m {
		out[base+FirstMomentSuffix] = m
		out[base+SecondMomentSuffix] = a.v[base]
	}
	return out
}

// LoadStateDict restores moment estimates from a state dict produced by
// StateDict (or an externally converted checkpoint).
//
// Every entry must name existing state with a matching shape; a mismatch
// means the momentum state is structurally invalid and loading aborts with
// nothing copied. Entries absent from the dict keep their current values.
func (a *AdamWeightDecay) LoadStateDict(state map[string]*tensor.Dense) error {
	current := a.StateDict()
	for name, src := range state {
		dst, ok := current[name]
		if !ok {
			return fmt.Errorf("state %q does not correspond to any parameter", name)
		}
		if !dst.Shape().Equal(src.Shape()) {
			return fmt.Errorf("state %q shape %v does not match existing shape %v",
				name, src.Shape(), dst.Shape())
		}
	}
	for name, src := range state {
		// Shapes were validated above; CopyFrom cannot fail here.
		_ = current[name].CopyFrom(src)
	}
	return nil
}
