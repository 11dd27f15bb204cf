package ops

import "github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"

// ExpOp represents the exponential operation: y = exp(x).
//
// Since d(exp(x))/dx = exp(x) = y, grad_input = grad_output * output.
type ExpOp struct{ unaryOp }

// NewExpOp creates a new ExpOp.
func NewExpOp(input, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{unaryOp{input: input, output: output}}
}

// Backward computes input gradient for exp.
func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

// ReLUOp represents a ReLU activation: output = max(0, x).
//
// d(ReLU(x))/dx = 1 if x > 0, else 0.
type ReLUOp struct{ unaryOp }

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{unaryOp{input: input, output: output}}
}

// Backward computes input gradient for ReLU.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	in := op.input.AsFloat32()
	return []*tensor.RawTensor{mapGrad(outputGrad, func(i int, g float32) float32 {
		if in[i] > 0 {
			return g
		}
		return 0
	})}
}

// SigmoidOp represents σ(x) = 1 / (1 + exp(-x)).
//
// dσ/dx = σ(x) * (1 - σ(x)), computed from the saved output.
type SigmoidOp struct{ unaryOp }

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{unaryOp{input: input, output: output}}
}

// Backward computes input gradient for sigmoid.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	out := op.output.AsFloat32()
	return []*tensor.RawTensor{mapGrad(outputGrad, func(i int, g float32) float32 {
		return g * out[i] * (1 - out[i])
	})}
}

// TanhOp represents tanh(x).
//
// d(tanh(x))/dx = 1 - tanh²(x), computed from the saved output.
type TanhOp struct{ unaryOp }

// NewTanhOp creates a new TanhOp.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{unaryOp{input: input, output: output}}
}

// Backward computes input gradient for tanh.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	out := op.output.AsFloat32()
	return []*tensor.RawTensor{mapGrad(outputGrad, func(i int, g float32) float32 {
		return g * (1 - out[i]*out[i])
	})}
}
