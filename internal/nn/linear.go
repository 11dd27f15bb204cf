package nn

import (
	"fmt"
	"math/rand"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
//
// Example:
//
//	layer := nn.NewLinear(30, 64, backend, nn.WithInitRand(rng))
//	output := layer.Forward(input) // [batch, 30] -> [batch, 64]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
}

// LinearOption configures NewLinear.
type LinearOption func(*linearOptions)

type linearOptions struct {
	rng     *rand.Rand
	useBias bool
}

// WithInitRand draws the initial weights from rng, for reproducible models.
func WithInitRand(rng *rand.Rand) LinearOption {
	return func(o *linearOptions) { o.rng = rng }
}

// WithoutBias creates the layer without a bias term.
func WithoutBias() LinearOption {
	return func(o *linearOptions) { o.useBias = false }
}

// NewLinear creates a new Linear layer.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, opts ...LinearOption) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("NewLinear: features must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}

	o := linearOptions{useBias: true}
	for _, opt := range opts {
		opt(&o)
	}

	weightShape := tensor.Shape{outFeatures, inFeatures}
	l := &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", Xavier(inFeatures, outFeatures, weightShape, o.rng, backend)),
	}
	if o.useBias {
		l.bias = NewParameter("bias", tensor.Zeros(tensor.Shape{outFeatures}, backend))
	}
	return l
}

// Forward computes y = x @ W.T + b.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	output := input.MatMul(l.weight.Tensor().Transpose())

	if l.bias != nil {
		// [out] -> [1, out] so it broadcasts over the batch
		output = output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
	}
	return output
}

// Parameters returns [weight, bias], or [weight] without bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter, or nil.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// Describe implements Describer.
func (l *Linear[B]) Describe() string {
	return fmt.Sprintf("Linear(in=%d, out=%d, bias=%t)", l.inFeatures, l.outFeatures, l.bias != nil)
}
