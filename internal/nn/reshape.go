package nn

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Flatten collapses every dimension after the batch dimension:
// [batch, d1, d2, ...] -> [batch, d1*d2*...].
type Flatten[B tensor.Backend] struct{}

// NewFlatten creates a new Flatten module.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return &Flatten[B]{}
}

// Forward flattens input to 2D.
func (f *Flatten[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := input.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("Flatten.Forward: expected at least 2D input, got shape %v", shape))
	}
	if len(shape) == 2 {
		return input
	}
	return input.Reshape(shape[0], -1)
}

// Parameters returns nil.
func (f *Flatten[B]) Parameters() []*Parameter[B] {
	return nil
}

// Describe implements Describer.
func (f *Flatten[B]) Describe() string {
	return "Flatten()"
}

// Unflatten expands the feature dimension of a 2D input:
// [batch, prod(dims)] -> [batch, dims...].
type Unflatten[B tensor.Backend] struct {
	dims []int
}

// NewUnflatten creates a new Unflatten module producing [batch, dims...].
func NewUnflatten[B tensor.Backend](dims ...int) *Unflatten[B] {
	for _, d := range dims {
		if d <= 0 {
			panic(fmt.Sprintf("NewUnflatten: dimensions must be positive, got %v", dims))
		}
	}
	return &Unflatten[B]{dims: append([]int(nil), dims...)}
}

// Forward reshapes input to [batch, dims...].
func (u *Unflatten[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := input.Shape()
	want := tensor.Shape(u.dims).NumElements()
	if len(shape) != 2 || shape[1] != want {
		panic(fmt.Sprintf("Unflatten.Forward: expected [batch, %d], got shape %v", want, shape))
	}
	return input.Reshape(append([]int{shape[0]}, u.dims...)...)
}

// Parameters returns nil.
func (u *Unflatten[B]) Parameters() []*Parameter[B] {
	return nil
}

// Describe implements Describer.
func (u *Unflatten[B]) Describe() string {
	return fmt.Sprintf("Unflatten(%v)", u.dims)
}
