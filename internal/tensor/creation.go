package tensor

import (
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros(Shape{3, 4}, backend)
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	return New(MustRaw(shape, b.Device()), b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return Full(shape, 1, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full(Shape{3, 3}, 3.14, backend)
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	t := Zeros(shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a tensor with values drawn from the standard normal
// distribution N(0, 1).
//
// rng may be nil, in which case the math/rand global source is used.
// Passing a seeded *rand.Rand makes the draw reproducible.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	t := tensor.Randn(Shape{100, 100}, rng, backend)
func Randn[B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[B] {
	t := Zeros(shape, b)
	data := t.Data()
	for i := range data {
		if rng != nil {
			data[i] = float32(rng.NormFloat64())
		} else {
			data[i] = float32(rand.NormFloat64()) //nolint:gosec // G404: ML sampling, not security-critical
		}
	}
	return t
}

// Uniform creates a tensor with values drawn uniformly from [low, high).
// rng may be nil, in which case the math/rand global source is used.
func Uniform[B Backend](shape Shape, low, high float32, rng *rand.Rand, b B) *Tensor[B] {
	t := Zeros(shape, b)
	data := t.Data()
	span := float64(high - low)
	for i := range data {
		var u float64
		if rng != nil {
			u = rng.Float64()
		} else {
			u = rand.Float64() //nolint:gosec // G404: ML initialization, not security-critical
		}
		data[i] = low + float32(u*span)
	}
	return t
}
