package ops

import "github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"

// ReshapeOp represents a reshape. The gradient is reshaped back to the
// input shape, so parameters reshaped for broadcasting (e.g. a bias viewed
// as [1, out]) still receive gradients.
type ReshapeOp struct{ unaryOp }

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(input, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{unaryOp{input: input, output: output}}
}

// Backward reshapes the output gradient to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.input.Shape())}
}

// TransposeOp represents a dimension permutation.
// The backward pass applies the inverse permutation.
type TransposeOp struct {
	unaryOp
	axes []int
}

// NewTransposeOp creates a new TransposeOp. axes must be the full permutation.
func NewTransposeOp(input, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{
		unaryOp: unaryOp{input: input, output: output},
		axes:    append([]int(nil), axes...),
	}
}

// Backward transposes the output gradient with the inverse permutation.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// SumOp represents a full reduction to a scalar.
// Every input element receives the scalar output gradient.
type SumOp struct{ unaryOp }

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{unaryOp{input: input, output: output}}
}

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{expandTo(outputGrad, op.input.Shape(), backend)}
}

// SumDimOp represents a reduction along one dimension.
type SumDimOp struct {
	unaryOp
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp. dim must already be normalized (>= 0).
func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{unaryOp: unaryOp{input: input, output: output}, dim: dim, keepDim: keepDim}
}

// Backward broadcasts the gradient back along the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		kept := op.input.Shape().Clone()
		kept[op.dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	return []*tensor.RawTensor{expandTo(grad, op.input.Shape(), backend)}
}
