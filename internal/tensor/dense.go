// Package tensor provides the host-side dense tensors the training core
// operates on: parameter values, gradients, optimizer moments and
// accumulation buffers.
//
// The core is engine-agnostic. Whatever evaluates the network hands
// gradients over as plain float32 buffers; nothing here knows about devices
// or computation graphs.
package tensor

import "fmt"

// Dense is a row-major float32 tensor.
//
// Dense values are mutated in place by the optimizer (parameter updates,
// moment updates, gradient clipping). They are not safe for concurrent
// mutation.
type Dense struct {
	shape Shape
	data  []float32
}

// Zeros creates a zero-filled tensor with the given shape.
func Zeros(shape Shape) *Dense {
	if err := shape.Validate(); err != nil {
		panic(err) // Shape literals are produced by callers we control.
	}
	return &Dense{
		shape: shape.Clone(),
		data:  make([]float32, shape.NumElements()),
	}
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float32) *Dense {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// FromSlice creates a tensor that adopts data as its backing buffer.
//
// Returns an error if the data length does not match the shape.
func FromSlice(data []float32, shape Shape) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Dense{shape: shape.Clone(), data: data}, nil
}

// Shape returns the tensor's shape.
func (t *Dense) Shape() Shape {
	return t.shape
}

// Data returns the backing buffer. Mutations are visible to the tensor.
func (t *Dense) Data() []float32 {
	return t.data
}

// NumElements returns the total element count.
func (t *Dense) NumElements() int {
	return len(t.data)
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return &Dense{shape: t.shape.Clone(), data: data}
}

// CopyFrom overwrites this tensor's elements with src's.
//
// Returns an error on shape mismatch; the destination is untouched in that
// case.
func (t *Dense) CopyFrom(src *Dense) error {
	if !t.shape.Equal(src.shape) {
		return fmt.Errorf("shape mismatch: dst %v, src %v", t.shape, src.shape)
	}
	copy(t.data, src.data)
	return nil
}
