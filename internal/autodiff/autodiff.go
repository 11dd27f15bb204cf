// Package autodiff implements reverse-mode automatic differentiation
// as a decorator over any tensor.Backend.
package autodiff

import (
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff/ops"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// AutodiffBackend wraps a backend and records every operation on a
// GradientTape while recording is enabled.
//
// Type parameter:
//   - B: the underlying backend that performs the computation (e.g. *cpu.CPUBackend)
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//	backend.Tape().StartRecording()
//	x := tensor.Randn(tensor.Shape{4, 3}, rng, backend)
//	loss := x.Square().Mean()
//	grads := autodiff.Backward(loss, backend)
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an AutodiffBackend over inner with a fresh, non-recording tape.
func New[B tensor.Backend](inner B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: inner,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name with an autodiff prefix.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the device of the wrapped backend.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records AddOp.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, out))
	return out
}

// Sub performs element-wise subtraction and records SubOp.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, out))
	return out
}

// Mul performs element-wise multiplication and records MulOp.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, out))
	return out
}

// MatMul performs matrix multiplication and records MatMulOp.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, out))
	return out
}

// Reshape changes the shape and records ReshapeOp.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(t, newShape)
	b.tape.Record(ops.NewReshapeOp(t, out))
	return out
}

// Transpose permutes dimensions and records TransposeOp.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	out := b.inner.Transpose(t, axes...)
	if b.tape.IsRecording() {
		if len(axes) == 0 {
			ndim := len(t.Shape())
			axes = make([]int, ndim)
			for i := range axes {
				axes[i] = ndim - 1 - i
			}
		}
		b.tape.Record(ops.NewTransposeOp(t, out, axes))
	}
	return out
}

// MulScalar multiplies by a scalar and records MulScalarOp.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	out := b.inner.MulScalar(x, scalar)
	b.tape.Record(ops.NewMulScalarOp(x, out, scalar))
	return out
}

// AddScalar adds a scalar and records AddScalarOp.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	out := b.inner.AddScalar(x, scalar)
	b.tape.Record(ops.NewAddScalarOp(x, out))
	return out
}

// Exp computes exp(x) and records ExpOp.
func (b *AutodiffBackend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Exp(x)
	b.tape.Record(ops.NewExpOp(x, out))
	return out
}

// ReLU computes max(0, x) and records ReLUOp.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.tape.Record(ops.NewReLUOp(x, out))
	return out
}

// Sigmoid computes σ(x) and records SigmoidOp.
func (b *AutodiffBackend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sigmoid(x)
	b.tape.Record(ops.NewSigmoidOp(x, out))
	return out
}

// Tanh computes tanh(x) and records TanhOp.
func (b *AutodiffBackend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Tanh(x)
	b.tape.Record(ops.NewTanhOp(x, out))
	return out
}

// Sum reduces to a scalar and records SumOp.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sum(x)
	b.tape.Record(ops.NewSumOp(x, out))
	return out
}

// SumDim reduces along one dimension and records SumDimOp.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	out := b.inner.SumDim(x, dim, keepDim)
	if dim < 0 {
		dim += len(x.Shape())
	}
	b.tape.Record(ops.NewSumDimOp(x, out, dim, keepDim))
	return out
}
