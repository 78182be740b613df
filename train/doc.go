// Copyright 2025 Ascent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train assembles the per-step update pipeline of a distributed
// mixed-precision trainer.
//
// # Overview
//
// A Driver consumes one micro-batch's gradients per call and runs them
// through, in order: loss-scale removal, collective reduction, the
// finiteness guard, global-norm clipping, gradient accumulation and - when
// an accumulation cycle completes and every worker's cycle was finite -
// the weight-decay Adam update. The global step advances only on applied
// updates, so the learning-rate schedule and checkpoint cadence never see
// skipped cycles.
//
// # Basic Usage
//
//	params := []*train.Parameter{
//	    train.NewParameter("encoder/layer_0/dense/kernel", kernel),
//	}
//
//	driver, err := train.New(params, train.Config{
//	    BaseLearningRate:  5e-4,
//	    TotalSteps:        100000,
//	    WarmupProportion:  0.1,
//	    WeightDecayRate:   0.01,
//	    AccumulationSteps: 4,
//	    MixedPrecision:    true,
//	})
//	if err != nil {
//	    return err
//	}
//
//	for batch := range batches {
//	    grads := computeGradients(batch) // external: network + autodiff
//	    res, err := driver.Step(grads)
//	    if err != nil {
//	        return err
//	    }
//	    if res.Applied {
//	        // res.GlobalStep advanced, res.LearningRate was used
//	    }
//	}
//
// # Distributed Training
//
// Set Config.Reducer to a dist.Reducer and every worker's gradients are
// averaged before the update; a non-finite cycle on any worker skips the
// update on all of them. Collective calls are lockstep barriers - workers
// must stay in identical cycle state.
package train
