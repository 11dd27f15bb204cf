package cpu

import (
	"math"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/parallel"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// unary allocates a result with x's shape and fills it with f(x[i]).
func (cpu *CPUBackend) unary(x *tensor.RawTensor, f func(v float32) float32) *tensor.RawTensor {
	result := tensor.MustRaw(x.Shape(), cpu.device)
	in, out := x.AsFloat32(), result.AsFloat32()

	parallel.ForRange(len(out), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = f(in[i])
		}
	}, cpu.par)

	return result
}

// MulScalar multiplies every element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return v * scalar })
}

// AddScalar adds scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return v + scalar })
}

// Exp computes e^x element-wise.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 {
		return float32(math.Exp(float64(v)))
	})
}

// ReLU computes max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// Sigmoid computes σ(x) = 1 / (1 + exp(-x)) element-wise.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 {
		return float32(1.0 / (1.0 + math.Exp(float64(-v))))
	})
}

// Tanh computes the hyperbolic tangent element-wise.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}
