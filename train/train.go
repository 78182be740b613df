// Copyright 2025 Ascent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import (
	"github.com/born-ml/ascent/internal/param"
	"github.com/born-ml/ascent/internal/tensor"
	"github.com/born-ml/ascent/internal/train"
)

// Config wires one training run's update policy.
type Config = train.Config

// RunConfig is the YAML shape of a run configuration file.
type RunConfig = train.RunConfig

// Driver owns one worker's optimizer state and step counters.
type Driver = train.Driver

// Result reports what one micro-step did.
type Result = train.Result

// LossScaler implements dynamic loss scaling for mixed-precision training.
type LossScaler = train.LossScaler

// Parameter is a named trainable tensor with a gradient slot.
type Parameter = param.Parameter

// New builds a driver for the given trainable parameters.
func New(params []*Parameter, cfg Config) (*Driver, error) {
	return train.New(params, cfg)
}

// NewParameter creates a trainable parameter handle.
func NewParameter(name string, value *tensor.Dense) *Parameter {
	return param.New(name, value)
}

// NewLossScaler creates a dynamic loss scaler at the initial 2^32 scale.
func NewLossScaler() *LossScaler {
	return train.NewLossScaler()
}

// LoadRunConfig reads and decodes a YAML run configuration.
func LoadRunConfig(path string) (RunConfig, error) {
	return train.LoadRunConfig(path)
}

// DensifyGradients converts row-sparse gradients to dense buffers so they
// can enter the step pipeline.
func DensifyGradients(sparse map[string]*tensor.RowSparse, grads map[string]*tensor.Dense) map[string]*tensor.Dense {
	return train.DensifyGradients(sparse, grads)
}
