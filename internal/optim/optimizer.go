// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001}, backend)
//
//	backend.Tape().StartRecording()
//	loss := lossFunc.Forward(model.Forward(input), targets)
//	grads := autodiff.Backward(loss, backend)
//	optimizer.Step(grads)
//	optimizer.ZeroGrad()
//
// Parameters marked non-trainable are never updated.
package optim

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all trainable parameters in-place.
	// grads is the map returned by autodiff.Backward.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

// Stateful is implemented by optimizers whose internal state can be
// saved and restored, so that training can resume from a checkpoint.
type Stateful interface {
	// Name identifies the optimizer kind, e.g. "adam".
	Name() string
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(state map[string]*tensor.RawTensor) error
}

// getGradient retrieves the gradient for a parameter.
//
// Returns nil for non-trainable parameters and for parameters that were
// not part of the computation graph.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil || !param.Trainable() {
		return nil
	}
	return grads[param.Tensor().Raw()]
}

// loadBuffer copies a saved buffer into dst after checking its shape.
func loadBuffer(key string, dst *tensor.RawTensor, state map[string]*tensor.RawTensor) (bool, error) {
	src, ok := state[key]
	if !ok {
		return false, nil
	}
	if !src.Shape().Equal(dst.Shape()) {
		return false, fmt.Errorf("%s shape mismatch: expected %v, got %v", key, dst.Shape(), src.Shape())
	}
	copy(dst.AsFloat32(), src.AsFloat32())
	return true, nil
}

func rawOf(values ...float32) *tensor.RawTensor {
	r := tensor.MustRaw(tensor.Shape{len(values)}, tensor.CPU)
	copy(r.AsFloat32(), values)
	return r
}
