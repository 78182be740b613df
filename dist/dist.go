// Copyright 2025 Ascent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dist exposes the collective-reduction contract workers agree on
// gradients through, an in-process Group realization, and the gradient
// wire codecs.
package dist

import (
	"github.com/born-ml/ascent/internal/dist"
)

// Reducer is the collective all-reduce contract.
type Reducer = dist.Reducer

// Group is an in-process collective over a fixed number of workers.
type Group = dist.Group

// Member is one worker's handle on a Group; it implements Reducer.
type Member = dist.Member

// Compression selects the gradient wire codec.
type Compression = dist.Compression

// Available codecs.
const (
	NoCompression      = dist.NoCompression
	Float16Compression = dist.Float16Compression
)

// NewGroup creates a collective group for size workers.
func NewGroup(size int) (*Group, error) {
	return dist.NewGroup(size)
}

// AllFiniteAcross ANDs per-worker finiteness flags via an integer
// all-reduce.
func AllFiniteAcross(r Reducer, finite bool) (bool, error) {
	return dist.AllFiniteAcross(r, finite)
}
