package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ascent/internal/param"
	"github.com/born-ml/ascent/internal/schedule"
	"github.com/born-ml/ascent/internal/tensor"
)

// fixedRates returns a scalar policy that stays at base for the whole run.
func fixedRates(base float64) schedule.Rates {
	return schedule.Rates{
		Schedule: schedule.Polynomial{Base: base, TotalSteps: 1 << 30, Power: 1.0},
	}
}

func singleParam(name string, values []float32) (*param.Parameter, []*param.Parameter) {
	v, err := tensor.FromSlice(values, tensor.Shape{len(values)})
	if err != nil {
		panic(err)
	}
	p := param.New(name, v)
	return p, []*param.Parameter{p}
}

func TestNew_MomentsZeroWithParameterShape(t *testing.T) {
	v := tensor.Zeros(tensor.Shape{3, 4})
	p := param.New("encoder/layer_0/dense/kernel", v)

	a, err := NewAdamWeightDecay([]*param.Parameter{p}, AdamWeightDecayConfig{Rates: fixedRates(0.1)})
	require.NoError(t, err)

	m, vv := a.Moments("encoder/layer_0/dense/kernel")
	require.NotNil(t, m)
	require.NotNil(t, vv)
	assert.True(t, m.Shape().Equal(tensor.Shape{3, 4}))
	assert.True(t, vv.Shape().Equal(tensor.Shape{3, 4}))
	for i := range m.Data() {
		assert.Zero(t, m.Data()[i])
		assert.Zero(t, vv.Data()[i])
	}
}

func TestApply_SingleStep(t *testing.T) {
	p, params := singleParam("dense/kernel", []float32{1.0})
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{Rates: fixedRates(0.1)})
	require.NoError(t, err)

	g, _ := tensor.FromSlice([]float32{0.5}, tensor.Shape{1})
	require.NoError(t, a.Apply(map[string]*tensor.Dense{"dense/kernel": g}, 0))

	// m = 0.1*0.5 = 0.05
	// v = 0.001*0.25 = 2.5e-4
	// u = 0.05 / (sqrt(2.5e-4) + 1e-6) = 3.162079
	// w = 1 - 0.1*u = 0.683792
	m, v := a.Moments("dense/kernel")
	assert.InDelta(t, 0.05, float64(m.Data()[0]), 1e-7)
	assert.InDelta(t, 2.5e-4, float64(v.Data()[0]), 1e-9)
	assert.InDelta(t, 0.683792, float64(p.Value().Data()[0]), 1e-4)
}

func TestApply_WeightDecayAddsToUpdate(t *testing.T) {
	p, params := singleParam("dense/kernel", []float32{1.0})
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{
		Rates:           fixedRates(0.1),
		WeightDecayRate: 0.01,
	})
	require.NoError(t, err)

	g, _ := tensor.FromSlice([]float32{0.5}, tensor.Shape{1})
	require.NoError(t, a.Apply(map[string]*tensor.Dense{"dense/kernel": g}, 0))

	// Same as the plain step, plus lr * wd * w = 0.1*0.01*1.0 = 0.001.
	assert.InDelta(t, 0.682792, float64(p.Value().Data()[0]), 1e-4)
}

func TestApply_ExclusionSkipsDecay(t *testing.T) {
	norm, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1})
	kern, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1})
	params := []*param.Parameter{
		param.New("encoder/layer_0/LayerNorm/beta", norm),
		param.New("encoder/layer_0/dense/kernel", kern),
	}
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{
		Rates:           fixedRates(0.1),
		WeightDecayRate: 0.01,
	})
	require.NoError(t, err)

	g1, _ := tensor.FromSlice([]float32{0.5}, tensor.Shape{1})
	g2, _ := tensor.FromSlice([]float32{0.5}, tensor.Shape{1})
	require.NoError(t, a.Apply(map[string]*tensor.Dense{
		"encoder/layer_0/LayerNorm/beta": g1,
		"encoder/layer_0/dense/kernel":   g2,
	}, 0))

	// The kernel moves further than the LayerNorm parameter by exactly the
	// decay term.
	assert.InDelta(t, 0.683792, float64(norm.Data()[0]), 1e-4)
	assert.InDelta(t, 0.682792, float64(kern.Data()[0]), 1e-4)
	assert.InDelta(t, 0.001,
		float64(norm.Data()[0])-float64(kern.Data()[0]), 1e-5)
}

func TestApply_ZeroGradient(t *testing.T) {
	// With zero gradient and no decay the parameter must not move.
	p, params := singleParam("dense/kernel", []float32{1.0})
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{Rates: fixedRates(0.1)})
	require.NoError(t, err)

	g := tensor.Zeros(tensor.Shape{1})
	require.NoError(t, a.Apply(map[string]*tensor.Dense{"dense/kernel": g}, 0))
	assert.Equal(t, float32(1.0), p.Value().Data()[0])

	// With decay it still moves by -lr * wd * w.
	p2, params2 := singleParam("dense/kernel", []float32{1.0})
	a2, err := NewAdamWeightDecay(params2, AdamWeightDecayConfig{
		Rates:           fixedRates(0.1),
		WeightDecayRate: 0.01,
	})
	require.NoError(t, err)
	require.NoError(t, a2.Apply(map[string]*tensor.Dense{"dense/kernel": tensor.Zeros(tensor.Shape{1})}, 0))
	assert.InDelta(t, 1.0-0.1*0.01*1.0, float64(p2.Value().Data()[0]), 1e-7)
}

func TestApply_NoBiasCorrection(t *testing.T) {
	// Canonical Adam would divide m by (1 - beta1^t) on the first step and
	// take a much larger step. Verify the raw moments are used instead.
	p, params := singleParam("dense/kernel", []float32{0.0})
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{Rates: fixedRates(1.0)})
	require.NoError(t, err)

	g, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1})
	require.NoError(t, a.Apply(map[string]*tensor.Dense{"dense/kernel": g}, 0))

	// Uncorrected: u = 0.1/(sqrt(0.001)+1e-6) ~= 3.1622. Bias-corrected
	// Adam would give u ~= 1.0.
	assert.InDelta(t, -3.1622, float64(p.Value().Data()[0]), 1e-3)
}

func TestNew_PerGroupRoutingFailsFast(t *testing.T) {
	rates := schedule.Rates{
		Schedule: schedule.NewPolynomial(0.1, 100),
		Groups:   schedule.LayerwiseGroups(2, 0.8),
	}
	v := tensor.Zeros(tensor.Shape{1})
	params := []*param.Parameter{param.New("no/group/matches/this", v)}

	_, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{Rates: rates})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no learning rate")
}

func TestApply_PerGroupRates(t *testing.T) {
	rates := schedule.Rates{
		Schedule: schedule.Polynomial{Base: 1.0, TotalSteps: 1 << 30, Power: 1.0},
		Groups:   schedule.LayerwiseGroups(2, 0.5),
	}
	emb, _ := tensor.FromSlice([]float32{0}, tensor.Shape{1})
	head, _ := tensor.FromSlice([]float32{0}, tensor.Shape{1})
	params := []*param.Parameter{
		param.New("model/embeddings/word_embeddings", emb),
		param.New("task_specific/probe/kernel", head),
	}
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{Rates: rates})
	require.NoError(t, err)

	g1, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1})
	g2, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1})
	require.NoError(t, a.Apply(map[string]*tensor.Dense{
		"model/embeddings/word_embeddings": g1,
		"task_specific/probe/kernel":       g2,
	}, 0))

	// Identical gradients, but the embedding group rate carries the
	// 0.5^(2+2) multiplier: its step is 1/16th of the head's.
	assert.InDelta(t, float64(head.Data()[0])/16.0, float64(emb.Data()[0]), 1e-6)
}

func TestApply_UnknownNameOrBadShape(t *testing.T) {
	p, params := singleParam("dense/kernel", []float32{1.0})
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{Rates: fixedRates(0.1)})
	require.NoError(t, err)

	err = a.Apply(map[string]*tensor.Dense{"mystery": tensor.Zeros(tensor.Shape{1})}, 0)
	assert.Error(t, err)

	err = a.Apply(map[string]*tensor.Dense{"dense/kernel": tensor.Zeros(tensor.Shape{2})}, 0)
	assert.Error(t, err)

	// Failed applies must not have touched the parameter.
	assert.Equal(t, float32(1.0), p.Value().Data()[0])
}

func TestStateDict_NamingContract(t *testing.T) {
	v := tensor.Zeros(tensor.Shape{2})
	params := []*param.Parameter{param.New("encoder/layer_0/dense/kernel:0", v)}
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{Rates: fixedRates(0.1)})
	require.NoError(t, err)

	state := a.StateDict()
	require.Len(t, state, 2)
	// The ":0" qualifier is stripped from persisted names.
	assert.Contains(t, state, "encoder/layer_0/dense/kernel/adam_m")
	assert.Contains(t, state, "encoder/layer_0/dense/kernel/adam_v")
}

func TestLoadStateDict(t *testing.T) {
	_, params := singleParam("w", []float32{0, 0})
	a, err := NewAdamWeightDecay(params, AdamWeightDecayConfig{Rates: fixedRates(0.1)})
	require.NoError(t, err)

	m, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2})
	require.NoError(t, a.LoadStateDict(map[string]*tensor.Dense{"w/adam_m": m}))

	got, _ := a.Moments("w")
	assert.Equal(t, []float32{1, 2}, got.Data())

	// Unknown state name.
	err = a.LoadStateDict(map[string]*tensor.Dense{"nope/adam_m": m})
	assert.Error(t, err)

	// Shape mismatch: structurally invalid, nothing restored.
	bad := tensor.Zeros(tensor.Shape{3})
	err = a.LoadStateDict(map[string]*tensor.Dense{"w/adam_v": bad})
	assert.Error(t, err)
}
