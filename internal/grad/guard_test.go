package grad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/ascent/internal/tensor"
)

func TestGuard_FullPrecisionNeverChecks(t *testing.T) {
	g := Guard{MixedPrecision: false}
	bad, _ := tensor.FromSlice([]float32{float32(math.Inf(1))}, tensor.Shape{1})

	assert.True(t, g.Check([]*tensor.Dense{bad}))
}

func TestGuard_MixedPrecision(t *testing.T) {
	g := Guard{MixedPrecision: true}

	ok, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2})
	assert.True(t, g.Check([]*tensor.Dense{ok}))

	nan, _ := tensor.FromSlice([]float32{float32(math.NaN())}, tensor.Shape{1})
	assert.False(t, g.Check([]*tensor.Dense{ok, nan}))
}

func TestClipForUpdate_FiniteUsesTrueNorm(t *testing.T) {
	a, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}) // norm 5

	norm := ClipForUpdate([]*tensor.Dense{a}, true)
	assert.InDelta(t, 5.0, norm, 1e-9)
	assert.InDelta(t, 0.6, float64(a.Data()[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(a.Data()[1]), 1e-6)
}

func TestClipForUpdate_SmallGradientsUntouched(t *testing.T) {
	a, _ := tensor.FromSlice([]float32{0.1, 0.2}, tensor.Shape{2})

	ClipForUpdate([]*tensor.Dense{a}, true)
	assert.Equal(t, []float32{0.1, 0.2}, a.Data())
}

func TestClipForUpdate_NonFiniteSubstitutesNormOne(t *testing.T) {
	a, _ := tensor.FromSlice([]float32{float32(math.Inf(1)), 1e30}, tensor.Shape{2})

	// The true norm is not computable; the reference norm must be exactly
	// 1.0 and the values pass through arithmetically unscaled.
	norm := ClipForUpdate([]*tensor.Dense{a}, false)
	assert.Equal(t, 1.0, norm)
	assert.True(t, math.IsInf(float64(a.Data()[0]), 1))
	assert.Equal(t, float32(1e30), a.Data()[1])
}
