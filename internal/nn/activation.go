package nn

import (
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// ReLU applies f(x) = max(0, x) element-wise.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU activation.
func (r *ReLU[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return input.ReLU()
}

// Parameters returns nil; activations have no parameters.
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Describe implements Describer.
func (r *ReLU[B]) Describe() string {
	return "ReLU()"
}

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)) element-wise.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies sigmoid activation.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return input.Sigmoid()
}

// Parameters returns nil; activations have no parameters.
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}

// Describe implements Describer.
func (s *Sigmoid[B]) Describe() string {
	return "Sigmoid()"
}

// Tanh applies tanh(x) element-wise.
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a new Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies tanh activation.
func (t *Tanh[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return input.Tanh()
}

// Parameters returns nil; activations have no parameters.
func (t *Tanh[B]) Parameters() []*Parameter[B] {
	return nil
}

// Describe implements Describer.
func (t *Tanh[B]) Describe() string {
	return "Tanh()"
}
