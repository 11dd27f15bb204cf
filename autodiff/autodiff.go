// Copyright 2025 The rt-forecasting-var-enc-fcst Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// Backend wraps any tensor backend and records operations on a gradient
// tape; Backward walks the tape from a scalar loss.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	x, _ := tensor.FromSlice([]float32{3}, tensor.Shape{}, backend)
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend) // dy/dx = 6
package autodiff

import (
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping inner.
func New[B tensor.Backend](inner B) *Backend[B] {
	return autodiff.New(inner)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is implemented by backends that own a gradient tape.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients of the scalar t with respect to every
// recorded tensor, keyed by raw tensor.
func Backward[B BackwardCapable](t *tensor.Tensor[B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
