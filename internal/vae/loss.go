package vae

import (
	"fmt"
	"math"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Reduction selects mean or sum reduction of the loss terms.
type Reduction = nn.Reduction

// Reductions.
const (
	ReduceMean = nn.ReduceMean
	ReduceSum  = nn.ReduceSum
)

// Losses holds the three scalar loss tensors of one forward pass.
type Losses[B tensor.Backend] struct {
	Total          *tensor.Tensor[B]
	Reconstruction *tensor.Tensor[B]
	KL             *tensor.Tensor[B]
}

// LossValues is the float32 snapshot of Losses.
type LossValues struct {
	Total          float32
	Reconstruction float32
	KL             float32
}

// Values extracts the scalar values.
func (l Losses[B]) Values() LossValues {
	return LossValues{
		Total:          l.Total.Item(),
		Reconstruction: l.Reconstruction.Item(),
		KL:             l.KL.Item(),
	}
}

// ComputeLosses evaluates the VAE objective:
//
//	reconstruction = reduce((y - xHat)²)
//	kl             = -0.5 * reduce(1 + z_log_var - z_mean² - exp(z_log_var))
//	total          = weight * reconstruction + kl
//
// All terms use the same reduction. y and xHat must have equal shapes, as
// must zMean and zLogVar; mismatches panic.
func ComputeLosses[B tensor.Backend](y, xHat, zMean, zLogVar *tensor.Tensor[B], reduction Reduction, weight float32) Losses[B] {
	if !y.Shape().Equal(xHat.Shape()) {
		panic(fmt.Sprintf("ComputeLosses: reconstruction shape %v does not match target shape %v", xHat.Shape(), y.Shape()))
	}
	if !zMean.Shape().Equal(zLogVar.Shape()) {
		panic(fmt.Sprintf("ComputeLosses: z_mean shape %v does not match z_log_var shape %v", zMean.Shape(), zLogVar.Shape()))
	}

	reconstruction := nn.NewMSELoss[B](reduction).Forward(xHat, y)

	klTerms := zLogVar.AddScalar(1).Sub(zMean.Square()).Sub(zLogVar.Exp())
	kl := nn.Reduce(klTerms, reduction).MulScalar(-0.5)

	return Losses[B]{
		Total:          reconstruction.MulScalar(weight).Add(kl),
		Reconstruction: reconstruction,
		KL:             kl,
	}
}

// CheckFinite returns ErrNonFiniteLoss naming the first NaN or Inf term.
func CheckFinite(v LossValues) error {
	terms := []struct {
		name  string
		value float32
	}{
		{"loss", v.Total},
		{"reconstruction_loss", v.Reconstruction},
		{"kl_loss", v.KL},
	}
	for _, t := range terms {
		f := float64(t.value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s = %v", ErrNonFiniteLoss, t.name, t.value)
		}
	}
	return nil
}
