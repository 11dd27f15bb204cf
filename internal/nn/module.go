// Package nn implements the neural network building blocks used by the
// VAE encoders and decoders.
//
// This package provides:
//   - Module interface: Base interface for all NN components
//   - Parameter: Tensors with gradient tracking and a trainable flag
//   - Linear: Fully connected layer
//   - Activations: ReLU, Sigmoid, Tanh
//   - Flatten / Unflatten: sequence <-> feature vector reshapes
//   - Sequential: Container for stacking layers
//   - MSELoss: squared error with mean or sum reduction
package nn

import (
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewFlatten[Backend](),
//	    nn.NewLinear(30, 64, backend),
//	    nn.NewReLU[Backend](),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns all parameters of this module, trainable or not.
	// Returns an empty slice for modules without parameters.
	Parameters() []*Parameter[B]
}

// Describer is implemented by modules that can render a one-line
// description of themselves, e.g. "Linear(in=8, out=4)".
type Describer interface {
	Describe() string
}
