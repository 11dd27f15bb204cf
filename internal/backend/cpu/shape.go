package cpu

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Reshape returns a copy of t with a new shape.
// The number of elements must not change.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}

	// Copy so that the result has its own identity on the autodiff tape.
	view, err := t.Clone().View(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Transpose permutes the dimensions of t.
// With no axes, all dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v for %dD tensor", axes, ndim))
		}
		seen[ax] = true
		outShape[i] = shape[ax]
	}

	result := tensor.MustRaw(outShape, cpu.device)
	in, out := t.AsFloat32(), result.AsFloat32()

	// 2D fast path
	if ndim == 2 && axes[0] == 1 {
		rows, cols := shape[0], shape[1]
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out[j*rows+i] = in[i*cols+j]
			}
		}
		return result
	}

	inStrides := t.Strides()
	outStrides := outShape.ComputeStrides()
	for i := range out {
		rem := i
		src := 0
		for d, s := range outStrides {
			coord := rem / s
			rem -= coord * s
			src += coord * inStrides[axes[d]]
		}
		out[i] = in[src]
	}

	return result
}
