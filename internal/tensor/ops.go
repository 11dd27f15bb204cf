package tensor

import "fmt"

// Add performs element-wise addition with broadcasting.
//
// Example:
//
//	a := tensor.Ones(Shape{3, 1}, backend)
//	b := tensor.Ones(Shape{3, 5}, backend)
//	c := a.Add(b) // Shape: [3, 5] (broadcasted)
func (t *Tensor[B]) Add(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor[B]) Sub(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor[B]) Mul(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Mul(t.raw, other.raw), t.backend)
}

// Square returns t * t.
func (t *Tensor[B]) Square() *Tensor[B] {
	return t.Mul(t)
}

// MatMul performs matrix multiplication: (M, K) @ (K, N) → (M, N).
func (t *Tensor[B]) MatMul(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.MatMul(t.raw, other.raw), t.backend)
}

// Reshape returns a tensor with the same data but different shape.
// A single dimension may be -1 and is inferred from the element count.
//
// Example:
//
//	t := tensor.Zeros(Shape{12}, backend)
//	reshaped := t.Reshape(3, -1) // Shape: [3, 4]
func (t *Tensor[B]) Reshape(newShape ...int) *Tensor[B] {
	shape, err := Shape(newShape).Resolve(t.NumElements())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return New(t.backend.Reshape(t.raw, shape), t.backend)
}

// Transpose permutes the tensor's dimensions.
// With no axes all dimensions are reversed (standard transpose for 2D).
func (t *Tensor[B]) Transpose(axes ...int) *Tensor[B] {
	return New(t.backend.Transpose(t.raw, axes...), t.backend)
}

// MulScalar multiplies every element by s.
func (t *Tensor[B]) MulScalar(s float32) *Tensor[B] {
	return New(t.backend.MulScalar(t.raw, s), t.backend)
}

// AddScalar adds s to every element.
func (t *Tensor[B]) AddScalar(s float32) *Tensor[B] {
	return New(t.backend.AddScalar(t.raw, s), t.backend)
}

// Exp computes e^x element-wise.
func (t *Tensor[B]) Exp() *Tensor[B] {
	return New(t.backend.Exp(t.raw), t.backend)
}

// ReLU computes max(0, x) element-wise.
func (t *Tensor[B]) ReLU() *Tensor[B] {
	return New(t.backend.ReLU(t.raw), t.backend)
}

// Sigmoid computes 1 / (1 + e^-x) element-wise.
func (t *Tensor[B]) Sigmoid() *Tensor[B] {
	return New(t.backend.Sigmoid(t.raw), t.backend)
}

// Tanh computes the hyperbolic tangent element-wise.
func (t *Tensor[B]) Tanh() *Tensor[B] {
	return New(t.backend.Tanh(t.raw), t.backend)
}

// Sum reduces all elements to a scalar tensor (shape []).
func (t *Tensor[B]) Sum() *Tensor[B] {
	return New(t.backend.Sum(t.raw), t.backend)
}

// Mean reduces all elements to their arithmetic mean (shape []).
func (t *Tensor[B]) Mean() *Tensor[B] {
	return t.Sum().MulScalar(1 / float32(t.NumElements()))
}

// SumDim sums along one dimension. Negative dims count from the end.
func (t *Tensor[B]) SumDim(dim int, keepDim bool) *Tensor[B] {
	return New(t.backend.SumDim(t.raw, dim, keepDim), t.backend)
}
