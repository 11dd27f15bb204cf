package nn

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Reduction selects how element-wise losses are combined into a scalar.
type Reduction int

const (
	// ReduceMean averages over all elements.
	ReduceMean Reduction = iota
	// ReduceSum adds up all elements.
	ReduceSum
)

// String returns "mean" or "sum".
func (r Reduction) String() string {
	switch r {
	case ReduceMean:
		return "mean"
	case ReduceSum:
		return "sum"
	default:
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
}

// Reduce applies r to x and returns a scalar tensor (shape []).
// The result is differentiable when x lives on an autodiff backend.
func Reduce[B tensor.Backend](x *tensor.Tensor[B], r Reduction) *tensor.Tensor[B] {
	switch r {
	case ReduceMean:
		return x.Mean()
	case ReduceSum:
		return x.Sum()
	default:
		panic(fmt.Sprintf("Reduce: unknown reduction %d", int(r)))
	}
}

// MSELoss computes squared error loss.
//
// Loss = reduce((predictions - targets)²)
//
// Example:
//
//	mse := nn.NewMSELoss[Backend](nn.ReduceMean)
//	loss := mse.Forward(predictions, targets)
type MSELoss[B tensor.Backend] struct {
	reduction Reduction
}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss[B tensor.Backend](reduction Reduction) *MSELoss[B] {
	return &MSELoss[B]{reduction: reduction}
}

// Forward computes the loss. predictions and targets must have equal shapes.
func (m *MSELoss[B]) Forward(predictions, targets *tensor.Tensor[B]) *tensor.Tensor[B] {
	if !predictions.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("MSELoss: predictions shape %v does not match targets shape %v",
			predictions.Shape(), targets.Shape()))
	}
	return Reduce(predictions.Sub(targets).Square(), m.reduction)
}

// Reduction returns the configured reduction.
func (m *MSELoss[B]) Reduction() Reduction {
	return m.reduction
}
