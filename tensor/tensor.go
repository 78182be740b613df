// Copyright 2025 Ascent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the dense host-side tensors the training core
// consumes and produces: parameter values, gradients, optimizer moments.
package tensor

import (
	"github.com/born-ml/ascent/internal/tensor"
)

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// Dense is a row-major float32 tensor, mutated in place by the optimizer.
type Dense = tensor.Dense

// RowSparse is a row-sparse gradient, densified before reduction.
type RowSparse = tensor.RowSparse

// Float16 is an IEEE half-precision value stored in a uint16.
type Float16 = tensor.Float16

// Zeros creates a zero-filled tensor with the given shape.
func Zeros(shape Shape) *Dense {
	return tensor.Zeros(shape)
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float32) *Dense {
	return tensor.Full(shape, value)
}

// FromSlice creates a tensor that adopts data as its backing buffer.
func FromSlice(data []float32, shape Shape) (*Dense, error) {
	return tensor.FromSlice(data, shape)
}

// NewRowSparse builds a row-sparse gradient for a (numRows, cols) parameter.
func NewRowSparse(rows []int, values *Dense, numRows, cols int) (*RowSparse, error) {
	return tensor.NewRowSparse(rows, values, numRows, cols)
}

// GlobalNorm returns the L2 norm over all elements of all tensors.
func GlobalNorm(tensors []*Dense) float64 {
	return tensor.GlobalNorm(tensors)
}

// ClipByGlobalNorm scales tensors by clipNorm / max(useNorm, clipNorm).
func ClipByGlobalNorm(tensors []*Dense, clipNorm, useNorm float64) {
	tensor.ClipByGlobalNorm(tensors, clipNorm, useNorm)
}

// AllFinite reports whether every element of t is finite.
func AllFinite(t *Dense) bool {
	return tensor.AllFinite(t)
}
