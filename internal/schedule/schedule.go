// Package schedule computes per-step learning rates: polynomial decay with
// a linear warmup ramp, optionally expanded into per-depth rates so layers
// closer to the input train more slowly.
package schedule

import (
	"fmt"
	"math"
	"strings"
)

// Polynomial decays a base rate to zero over a fixed number of steps, with
// an optional linear warmup ramp at the start.
//
// The decayed rate at step s is
//
//	base * (1 - min(s, total)/total)^power
//
// and during warmup it is additionally scaled by min(1, s/warmup), where
// warmup is the larger of WarmupSteps and TotalSteps*WarmupProportion.
// Power 1 gives linear decay.
type Polynomial struct {
	Base             float64
	TotalSteps       int64
	WarmupSteps      int64
	WarmupProportion float64
	Power            float64
}

// NewPolynomial creates a schedule with Power defaulting to 1 (linear).
func NewPolynomial(base float64, totalSteps int64) Polynomial {
	return Polynomial{Base: base, TotalSteps: totalSteps, Power: 1.0}
}

// Validate checks the schedule is usable.
func (p Polynomial) Validate() error {
	if p.TotalSteps <= 0 {
		return fmt.Errorf("total steps must be > 0, got %d", p.TotalSteps)
	}
	if p.Base < 0 {
		return fmt.Errorf("base rate must be >= 0, got %g", p.Base)
	}
	return nil
}

// warmup returns the effective warmup step count.
func (p Polynomial) warmup() float64 {
	return math.Max(float64(p.TotalSteps)*p.WarmupProportion, float64(p.WarmupSteps))
}

// Rate returns the effective rate at the given global step.
func (p Polynomial) Rate(step int64) float64 {
	s := min(step, p.TotalSteps)
	frac := 1.0 - float64(s)/float64(p.TotalSteps)
	rate := p.Base * math.Pow(frac, p.Power)

	if w := p.warmup(); w > 0 {
		rate *= math.Min(1.0, float64(step)/w)
	}
	return rate
}

// Group is one layer-wise learning-rate group. A parameter belongs to the
// first group whose Key is a substring of its name.
type Group struct {
	Key        string
	Depth      int
	Multiplier float64 // decay^(nLayers + 2 - Depth)
}

// LayerwiseGroups builds the depth table for an n-layer transformer:
// embedding groups at depth 0, encoder layer i at depth i+1, task-specific
// parameters at depth n+2. The multiplier shrinks exponentially toward the
// input, so depth 0 gets decay^(n+2) of the base rate.
//
// The slice order is the routing order; keys are chosen not to overlap.
func LayerwiseGroups(nLayers int, decay float64) []Group {
	groups := []Group{
		{Key: "/embeddings/", Depth: 0},
		{Key: "/embeddings_project/", Depth: 0},
		{Key: "task_specific/", Depth: nLayers + 2},
	}
	for layer := 0; layer < nLayers; layer++ {
		groups = append(groups, Group{
			Key:   fmt.Sprintf("encoder/layer_%d/", layer),
			Depth: layer + 1,
		})
	}
	for i := range groups {
		groups[i].Multiplier = math.Pow(decay, float64(nLayers+2-groups[i].Depth))
	}
	return groups
}

// Rates is the resolved learning-rate policy: a single scalar schedule, or
// the same schedule fanned out over layer-wise groups.
type Rates struct {
	Schedule Polynomial
	Groups   []Group // nil means a single scalar rate
}

// Scalar reports whether a single schedule applies to every parameter.
func (r Rates) Scalar() bool {
	return len(r.Groups) == 0
}

// Route returns the index of the first group whose key is contained in
// name. ok is false if no group matches; for a scalar policy every name
// routes to group -1.
func (r Rates) Route(name string) (group int, ok bool) {
	if r.Scalar() {
		return -1, true
	}
	for i, g := range r.Groups {
		if strings.Contains(name, g.Key) {
			return i, true
		}
	}
	return 0, false
}

// Rate returns the effective rate for a group index at the given step.
// Group -1 is the scalar rate.
func (r Rates) Rate(group int, step int64) float64 {
	base := r.Schedule.Rate(step)
	if group < 0 {
		return base
	}
	return base * r.Groups[group].Multiplier
}
