// Package cpu implements the CPU backend: pure Go element-wise kernels split
// across cores, and matrix multiplication through gonum's BLAS.
package cpu

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/parallel"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend using all physical cores.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallelism config.
// Use parallel.Sequential() for fully deterministic single-threaded runs.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Info describes the host processor, e.g. for run logs.
func (cpu *CPUBackend) Info() string {
	return fmt.Sprintf("%s (%d physical / %d logical cores, %d workers)",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, cpu.workers())
}

func (cpu *CPUBackend) workers() int {
	if !cpu.par.Enabled {
		return 1
	}
	return cpu.par.NumWorkers
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// binary applies f element-wise, broadcasting a and b to a common shape.
func (cpu *CPUBackend) binary(name string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	out := result.AsFloat32()
	aData, bData := a.AsFloat32(), b.AsFloat32()

	if !needsBroadcast {
		// Fast path: same shape
		parallel.ForRange(len(out), func(start, end int) {
			for i := start; i < end; i++ {
				out[i] = f(aData[i], bData[i])
			}
		}, cpu.par)
		return result
	}

	// Slow path: walk the output index space with per-input strides
	aStrides := tensor.BroadcastStrides(a.Shape(), outShape)
	bStrides := tensor.BroadcastStrides(b.Shape(), outShape)
	outStrides := outShape.ComputeStrides()

	parallel.ForRange(len(out), func(start, end int) {
		for i := start; i < end; i++ {
			aIdx, bIdx := 0, 0
			rem := i
			for d, s := range outStrides {
				coord := rem / s
				rem -= coord * s
				aIdx += coord * aStrides[d]
				bIdx += coord * bStrides[d]
			}
			out[i] = f(aData[aIdx], bData[bIdx])
		}
	}, cpu.par)

	return result
}
