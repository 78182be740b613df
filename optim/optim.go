// Copyright 2025 Ascent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/ascent/internal/optim"
	"github.com/born-ml/ascent/internal/param"
	"github.com/born-ml/ascent/internal/tensor"
)

// Dense is re-exported so optimizer call sites do not need a second import
// for gradient maps.
type Dense = tensor.Dense

// Optimizer applies one gradient update to its parameters.
type Optimizer = optim.Optimizer

// AdamWeightDecay is Adam with decoupled weight decay and, optionally,
// layer-wise learning rates. It deliberately applies no bias correction to
// the moment estimates, for compatibility with pretrained checkpoints.
type AdamWeightDecay = optim.AdamWeightDecay

// AdamWeightDecayConfig configures AdamWeightDecay.
type AdamWeightDecayConfig = optim.AdamWeightDecayConfig

// Parameter is a named trainable tensor with a gradient slot.
type Parameter = param.Parameter

// Persisted state-name suffixes for the moment estimates.
const (
	FirstMomentSuffix  = optim.FirstMomentSuffix
	SecondMomentSuffix = optim.SecondMomentSuffix
)

// DefaultExcludeFromWeightDecay lists the parameter-name patterns that
// never receive weight decay.
var DefaultExcludeFromWeightDecay = optim.DefaultExcludeFromWeightDecay

// NewParameter creates a trainable parameter handle.
//
// Example:
//
//	w := optim.NewParameter("encoder/layer_0/dense/kernel", tensor.Zeros(tensor.Shape{768, 768}))
func NewParameter(name string, value *Dense) *Parameter {
	return param.New(name, value)
}

// NewAdamWeightDecay builds the optimizer and allocates zeroed moment
// state for every parameter.
func NewAdamWeightDecay(params []*Parameter, cfg AdamWeightDecayConfig) (*AdamWeightDecay, error) {
	return optim.NewAdamWeightDecay(params, cfg)
}
