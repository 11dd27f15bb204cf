// Copyright 2025 The rt-forecasting-var-enc-fcst Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public float32 tensor API.
//
//   - Tensor[B]: high-level tensor bound to a backend
//   - RawTensor: low-level contiguous storage used by backends
//   - Backend: interface implemented by compute backends
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3}, backend)
//	y := tensor.Ones(tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"math/rand"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Shape represents the dimensions of a tensor. An empty Shape is a scalar.
type Shape = tensor.Shape

// Device represents the device where tensor data resides.
type Device = tensor.Device

// CPU is the only supported device.
const CPU = tensor.CPU

// Backend is the interface compute backends implement.
type Backend = tensor.Backend

// RawTensor is the low-level tensor representation.
// Most users should use Tensor instead.
type RawTensor = tensor.RawTensor

// Tensor is a float32 tensor whose operations dispatch to backend B.
type Tensor[B Backend] = tensor.Tensor[B]

// NewRaw creates a zero-filled RawTensor.
func NewRaw(shape Shape, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, device)
}

// New wraps a RawTensor.
func New[B Backend](raw *RawTensor, b B) *Tensor[B] {
	return tensor.New(raw, b)
}

// FromSlice copies data into a new tensor of the given shape.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
func FromSlice[B Backend](data []float32, shape Shape, b B) (*Tensor[B], error) {
	return tensor.FromSlice(data, shape, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Zeros(shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Ones(shape, b)
}

// Full creates a tensor filled with value.
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	return tensor.Full(shape, value, b)
}

// Randn draws from N(0, 1). A nil rng uses the math/rand global source.
func Randn[B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[B] {
	return tensor.Randn(shape, rng, b)
}

// Uniform draws from U(low, high).
func Uniform[B Backend](shape Shape, low, high float32, rng *rand.Rand, b B) *Tensor[B] {
	return tensor.Uniform(shape, low, high, rng, b)
}
