// Package param defines the trainable-parameter handle the optimizer
// updates. Parameters are owned by the model; the optimizer only references
// them.
package param

import (
	"regexp"

	"github.com/born-ml/ascent/internal/tensor"
)

// versionSuffix matches a trailing ":<index>" qualifier on a parameter name,
// e.g. "encoder/layer_0/dense/kernel:0".
var versionSuffix = regexp.MustCompile(`^(.*):\d+$`)

// Parameter is a named trainable tensor with a gradient slot.
//
// Example:
//
//	w := param.New("encoder/layer_0/dense/kernel", tensor.Zeros(tensor.Shape{768, 768}))
//	w.SetGrad(g)
type Parameter struct {
	name  string
	value *tensor.Dense
	grad  *tensor.Dense
}

// New creates a parameter referencing the given value tensor.
func New(name string, value *tensor.Dense) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the full parameter name as the model reports it.
func (p *Parameter) Name() string {
	return p.name
}

// BaseName returns the name with any trailing ":<index>" qualifier
// stripped. Optimizer state is persisted under the base name, so this must
// be stable across runs.
func (p *Parameter) BaseName() string {
	if m := versionSuffix.FindStringSubmatch(p.name); m != nil {
		return m[1]
	}
	return p.name
}

// Value returns the parameter tensor. The optimizer mutates it in place.
func (p *Parameter) Value() *tensor.Dense {
	return p.value
}

// Grad returns the current gradient, or nil if none has been set.
func (p *Parameter) Grad() *tensor.Dense {
	return p.grad
}

// SetGrad attaches a gradient tensor.
func (p *Parameter) SetGrad(g *tensor.Dense) {
	p.grad = g
}

// ZeroGrad clears the gradient slot.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}
