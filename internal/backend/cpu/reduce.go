package cpu

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Sum adds up all elements into a scalar tensor (shape []).
// Accumulation is done in float64.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	var sum float64
	for _, v := range x.AsFloat32() {
		sum += float64(v)
	}

	result := tensor.MustRaw(tensor.Shape{}, cpu.device)
	result.AsFloat32()[0] = float32(sum)
	return result
}

// SumDim sums tensor elements along the specified dimension.
//
// Parameters:
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1; if false, remove it
//
// Example:
//
//	y := backend.SumDim(x, -1, true)   // [2, 3, 4] -> [2, 3, 1]
//	z := backend.SumDim(x, -1, false)  // [2, 3, 4] -> [2, 3]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, ndim-1)
		for i := 0; i < ndim; i++ {
			if i != dim {
				outShape = append(outShape, shape[i])
			}
		}
	}

	result := tensor.MustRaw(outShape, cpu.device)

	// View x as [outer, dimSize, inner]
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < ndim; i++ {
		inner *= shape[i]
	}
	dimSize := shape[dim]

	in, out := x.AsFloat32(), result.AsFloat32()
	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			var sum float32
			base := o*dimSize*inner + j
			for d := 0; d < dimSize; d++ {
				sum += in[base+d*inner]
			}
			out[o*inner+j] = sum
		}
	}

	return result
}
