package ops

import (
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()
	if gradShape.Equal(targetShape) {
		return grad
	}

	if len(targetShape) == 0 {
		return backend.Sum(grad)
	}

	// Broadcasting aligns shapes from the right: sum away leading dimensions
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	// Then sum along dimensions where the target has size 1
	for i, dim := range targetShape {
		if dim == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// expandTo broadcasts grad to shape by adding it to zeros.
func expandTo(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	zeros := tensor.MustRaw(shape, backend.Device())
	return backend.Add(zeros, grad)
}

// mapGrad builds a new tensor with f(i, grad[i]) for every element.
func mapGrad(grad *tensor.RawTensor, f func(i int, g float32) float32) *tensor.RawTensor {
	result := tensor.MustRaw(grad.Shape(), grad.Device())
	in, out := grad.AsFloat32(), result.AsFloat32()
	for i, g := range in {
		out[i] = f(i, g)
	}
	return result
}
