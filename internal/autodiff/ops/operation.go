// Package ops defines the differentiable operations recorded on the gradient tape.
//
// Each operation keeps its inputs and output from the forward pass and
// computes input gradients from the output gradient in the backward pass.
//
// Supported operations:
//   - AddOp, SubOp, MulOp: element-wise with broadcasting
//   - MatMulOp: d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad
//   - ReshapeOp, TransposeOp: shape plumbing
//   - MulScalarOp, AddScalarOp: scalar affine maps
//   - ExpOp, ReLUOp, SigmoidOp, TanhOp: element-wise functions
//   - SumOp, SumDimOp: reductions
package ops

import "github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// The result has one entry per input; nil entries mean no gradient.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}

// unaryOp holds the bookkeeping shared by single-input operations.
type unaryOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// Inputs returns the input tensor [x].
func (op *unaryOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *unaryOp) Output() *tensor.RawTensor {
	return op.output
}

// binaryOp holds the bookkeeping shared by two-input operations.
type binaryOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
}

// Inputs returns the input tensors [a, b].
func (op *binaryOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor.
func (op *binaryOp) Output() *tensor.RawTensor {
	return op.output
}
