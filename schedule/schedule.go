// Copyright 2025 Ascent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package schedule exposes the learning-rate policies: polynomial decay
// with linear warmup, optionally fanned out into layer-wise groups so
// layers closer to the input train more slowly.
package schedule

import (
	"github.com/born-ml/ascent/internal/schedule"
)

// Polynomial decays a base rate to zero with an optional warmup ramp.
type Polynomial = schedule.Polynomial

// Group is one layer-wise learning-rate group.
type Group = schedule.Group

// Rates is the resolved policy: one scalar schedule, or per-group rates.
type Rates = schedule.Rates

// NewPolynomial creates a linear-decay schedule.
func NewPolynomial(base float64, totalSteps int64) Polynomial {
	return schedule.NewPolynomial(base, totalSteps)
}

// LayerwiseGroups builds the depth table for an n-layer transformer.
func LayerwiseGroups(nLayers int, decay float64) []Group {
	return schedule.LayerwiseGroups(nLayers, decay)
}
