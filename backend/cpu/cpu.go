// Copyright 2025 The rt-forecasting-var-enc-fcst Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// Element-wise loops are split across workers sized by the physical core
// count, and matrix multiplication goes through gonum's BLAS.
package cpu

import (
	internalcpu "github.com/readytensor/rt-forecasting-var-enc-fcst/internal/backend/cpu"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}
