package autodiff

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// BackwardCapable is a backend that owns a gradient tape.
// AutodiffBackend is the only implementation.
type BackwardCapable interface {
	tensor.Backend
	Tape() *GradientTape
}

// Backward computes gradients of t with respect to all recorded inputs.
// t must be a scalar (one element), typically a loss.
//
// Example:
//
//	backend.Tape().StartRecording()
//	loss := pred.Sub(target).Square().Mean()
//	grads := autodiff.Backward(loss, backend)
//	gradW := grads[weight.Raw()]
func Backward[B BackwardCapable](t *tensor.Tensor[B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("backward: expected scalar output, got shape %v", t.Shape()))
	}

	seed := tensor.MustRaw(t.Shape(), t.Device())
	seed.AsFloat32()[0] = 1

	return backend.Tape().Backward(t.Raw(), seed, backend)
}
