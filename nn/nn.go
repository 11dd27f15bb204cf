// Copyright 2025 The rt-forecasting-var-enc-fcst Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the neural network building blocks used by the VAE
// encoders and decoders.
//
// Available modules:
//   - Linear: fully connected layer with Xavier initialization
//   - ReLU, Sigmoid, Tanh: activations
//   - Flatten, Unflatten: reshape between [batch, ...] and [batch, n]
//   - Sequential: module container
//   - MSELoss: squared error with mean or sum reduction
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	mlp := nn.NewSequential[Backend](
//	    nn.NewFlatten[Backend](),
//	    nn.NewLinear(30, 64, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(64, 4, backend),
//	)
//	fmt.Println(nn.Summary("mlp", mlp))
package nn

import (
	"math/rand"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Module is the interface all layers implement.
type Module[B tensor.Backend] = nn.Module[B]

// Describer is implemented by modules that describe themselves in Summary.
type Describer = nn.Describer

// Parameter is a named, optionally trainable tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// CountParameters returns the trainable and non-trainable element counts.
func CountParameters[B tensor.Backend](params []*Parameter[B]) (trainable, nonTrainable int) {
	return nn.CountParameters(params)
}

// Linear layers

// Linear is a fully connected layer: y = x @ W^T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// LinearOption customizes NewLinear.
type LinearOption = nn.LinearOption

// NewLinear creates a Linear layer with Xavier-initialized weights.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, opts ...LinearOption) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend, opts...)
}

// WithInitRand seeds weight initialization.
func WithInitRand(rng *rand.Rand) LinearOption { return nn.WithInitRand(rng) }

// WithoutBias drops the bias term.
func WithoutBias() LinearOption { return nn.WithoutBias() }

// Xavier draws U(-a, a) with a = sqrt(6 / (fanIn + fanOut)).
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[B] {
	return nn.Xavier(fanIn, fanOut, shape, rng, backend)
}

// Activations and reshapes

// ReLU is max(0, x).
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU module.
func NewReLU[B tensor.Backend]() *ReLU[B] { return nn.NewReLU[B]() }

// Sigmoid is 1 / (1 + exp(-x)).
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a Sigmoid module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] { return nn.NewSigmoid[B]() }

// Tanh is the hyperbolic tangent.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a Tanh module.
func NewTanh[B tensor.Backend]() *Tanh[B] { return nn.NewTanh[B]() }

// Flatten reshapes [batch, ...] to [batch, n].
type Flatten[B tensor.Backend] = nn.Flatten[B]

// NewFlatten creates a Flatten module.
func NewFlatten[B tensor.Backend]() *Flatten[B] { return nn.NewFlatten[B]() }

// Unflatten reshapes [batch, n] to [batch, dims...].
type Unflatten[B tensor.Backend] = nn.Unflatten[B]

// NewUnflatten creates an Unflatten module.
func NewUnflatten[B tensor.Backend](dims ...int) *Unflatten[B] { return nn.NewUnflatten[B](dims...) }

// Sequential chains modules.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Summary renders a layer table with parameter counts.
func Summary[B tensor.Backend](name string, m Module[B]) string {
	return nn.Summary(name, m)
}

// Losses

// Reduction selects mean or sum reduction.
type Reduction = nn.Reduction

// Reductions.
const (
	ReduceMean = nn.ReduceMean
	ReduceSum  = nn.ReduceSum
)

// MSELoss is the squared error between prediction and target.
type MSELoss[B tensor.Backend] = nn.MSELoss[B]

// NewMSELoss creates an MSELoss.
func NewMSELoss[B tensor.Backend](reduction Reduction) *MSELoss[B] {
	return nn.NewMSELoss[B](reduction)
}
