package vae

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// StepResult holds the trackers' running means after a step.
type StepResult struct {
	Loss               float32
	ReconstructionLoss float32
	KLLoss             float32
}

// Map returns the result keyed "loss", "reconstruction_loss", "kl_loss".
func (r StepResult) Map() map[string]float32 {
	return map[string]float32{
		MetricLoss:               r.Loss,
		MetricReconstructionLoss: r.ReconstructionLoss,
		MetricKLLoss:             r.KLLoss,
	}
}

// Values returns the result as LossValues, for CheckFinite.
func (r StepResult) Values() LossValues {
	return LossValues{Total: r.Loss, Reconstruction: r.ReconstructionLoss, KL: r.KLLoss}
}

// TrainStep runs one optimization step on the batch (x, y).
//
// The encoder samples z, the decoder reconstructs from z, and the
// mean-reduced total loss is differentiated with respect to every
// trainable parameter. The attached optimizer applies one update, then
// the trackers record this step's losses.
//
// Returns ErrNoOptimizer before Compile, and ErrMissingGradient (with
// parameters untouched) if a trainable parameter is not reached by the loss.
func (m *Model[B]) TrainStep(x, y *tensor.Tensor[B]) (StepResult, error) {
	if m.optimizer == nil {
		return StepResult{}, ErrNoOptimizer
	}

	tape := m.backend.Tape()
	tape.Clear()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	zMean, zLogVar, z := m.encoder.Encode(x)
	xHat := m.reconstruct(z)
	losses := ComputeLosses(y, xHat, zMean, zLogVar, ReduceMean, m.cfg.ReconstructionWeight)

	grads := autodiff.Backward(losses.Total, m.backend)
	tape.StopRecording()

	if err := m.checkGradients(grads); err != nil {
		return StepResult{}, err
	}

	m.optimizer.Step(grads)
	m.optimizer.ZeroGrad()

	m.record(losses.Values())
	return m.result(), nil
}

// TestStep evaluates the batch (x, y) without updating parameters.
//
// It follows the same stochastic path as TrainStep (the decoder sees the
// sampled z) but reports sum-reduced losses.
func (m *Model[B]) TestStep(x, y *tensor.Tensor[B]) (StepResult, error) {
	var values LossValues
	m.withoutRecording(func() {
		zMean, zLogVar, z := m.encoder.Encode(x)
		xHat := m.reconstruct(z)
		values = ComputeLosses(y, xHat, zMean, zLogVar, ReduceSum, m.cfg.ReconstructionWeight).Values()
	})

	m.record(values)
	return m.result(), nil
}

// checkGradients verifies that every trainable parameter has a gradient.
func (m *Model[B]) checkGradients(grads map[*tensor.RawTensor]*tensor.RawTensor) error {
	for _, part := range []struct {
		prefix string
		params []nn.NamedParameter[B]
	}{
		{"encoder", nn.NamedOf[B](m.encoder)},
		{"decoder", nn.NamedOf[B](m.decoder)},
	} {
		for _, np := range part.params {
			if !np.Param.Trainable() {
				continue
			}
			if _, ok := grads[np.Param.Tensor().Raw()]; !ok {
				return fmt.Errorf("%w: %s", ErrMissingGradient, nn.StateKey(part.prefix, np.Path))
			}
		}
	}
	return nil
}

func (m *Model[B]) record(v LossValues) {
	m.totalTracker.Update(v.Total)
	m.reconTracker.Update(v.Reconstruction)
	m.klTracker.Update(v.KL)
}

func (m *Model[B]) result() StepResult {
	return StepResult{
		Loss:               m.totalTracker.Result(),
		ReconstructionLoss: m.reconTracker.Result(),
		KLLoss:             m.klTracker.Result(),
	}
}
