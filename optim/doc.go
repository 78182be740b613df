// Copyright 2025 Ascent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the weight-decay Adam optimizer at the heart of
// the training core.
//
// # Overview
//
// AdamWeightDecay follows the update rule BERT-family pretraining used:
// raw (uncorrected) moment estimates, decoupled weight decay added to the
// update rather than the loss, and an exclusion list keeping decay away
// from normalization and bias parameters. Optimizer state is exported
// under the "<param>/adam_m" and "<param>/adam_v" names externally
// produced checkpoints expect.
//
// # Basic Usage
//
//	params := []*optim.Parameter{
//	    optim.NewParameter("encoder/layer_0/dense/kernel", kernel),
//	    optim.NewParameter("encoder/layer_0/LayerNorm/beta", beta),
//	}
//
//	opt, err := optim.NewAdamWeightDecay(params, optim.AdamWeightDecayConfig{
//	    Rates:           schedule.Rates{Schedule: schedule.NewPolynomial(5e-4, 100000)},
//	    WeightDecayRate: 0.01,
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = opt.Apply(grads, step)
//
// Most callers never construct the optimizer directly: the train package
// wires it behind accumulation, clipping and the finiteness guard.
package optim
