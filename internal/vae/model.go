package vae

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/metrics"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/optim"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Tracker names, also the keys of StepResult.Map.
const (
	MetricLoss               = "loss"
	MetricReconstructionLoss = "reconstruction_loss"
	MetricKLLoss             = "kl_loss"
)

// Model is a variational autoencoder built from an Encoder and a Decoder.
//
// Type parameter B is the autodiff backend the encoder and decoder run
// on; TrainStep records on its tape.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	cfg := vae.NewConfig(10, 10, 3, 2)
//	model, err := vae.New[Backend](dense.NewBuilder(backend), cfg, backend)
//	model.Compile(optim.NewAdam(model.Parameters(), optim.AdamConfig{}, backend))
//	result, err := model.TrainStep(x, y)
type Model[B autodiff.BackwardCapable] struct {
	cfg       Config
	name      string
	backend   B
	encoder   Encoder[B]
	decoder   Decoder[B]
	optimizer optim.Optimizer
	rng       *rand.Rand

	totalTracker *metrics.Mean
	reconTracker *metrics.Mean
	klTracker    *metrics.Mean
}

// New builds the encoder and decoder with builder and checks them with a
// single-example dry run on a zero input.
//
// Errors: ErrNilBuilder, ErrInvalidConfig, a wrapped builder error,
// ErrMissingEncoder, ErrMissingDecoder, ErrContractViolation.
func New[B autodiff.BackwardCapable](builder Builder[B], cfg Config, backend B, opts ...Option) (*Model[B], error) {
	if builder == nil {
		return nil, ErrNilBuilder
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{name: "vae"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // G404: ML sampling, not security-critical
	}

	encoder, err := builder.BuildEncoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("vae: build encoder: %w", err)
	}
	if encoder == nil {
		return nil, ErrMissingEncoder
	}

	decoder, err := builder.BuildDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("vae: build decoder: %w", err)
	}
	if decoder == nil {
		return nil, ErrMissingDecoder
	}

	m := &Model[B]{
		cfg:          cfg,
		name:         o.name,
		backend:      backend,
		encoder:      encoder,
		decoder:      decoder,
		rng:          o.rng,
		totalTracker: metrics.NewMean(MetricLoss),
		reconTracker: metrics.NewMean(MetricReconstructionLoss),
		klTracker:    metrics.NewMean(MetricKLLoss),
	}

	if err := m.probe(); err != nil {
		return nil, err
	}
	return m, nil
}

// probe runs one zero example through the encoder and decoder and checks
// the output shapes. Panics raised by either are reported as errors.
func (m *Model[B]) probe() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: dry run panicked: %v", ErrContractViolation, r)
		}
	}()

	m.withoutRecording(func() {
		x := tensor.Zeros(tensor.Shape(m.cfg.InputShape(1)), m.backend)
		zMean, zLogVar, z := m.encoder.Encode(x)

		latent := tensor.Shape{1, m.cfg.LatentDim}
		for _, out := range []struct {
			name string
			t    *tensor.Tensor[B]
		}{{"z_mean", zMean}, {"z_log_var", zLogVar}, {"z", z}} {
			if out.t == nil {
				err = fmt.Errorf("%w: encoder returned nil %s", ErrContractViolation, out.name)
				return
			}
			if !out.t.Shape().Equal(latent) {
				err = fmt.Errorf("%w: encoder %s shape %v, want %v", ErrContractViolation, out.name, out.t.Shape(), latent)
				return
			}
		}

		xHat := m.decoder.Decode(z)
		if xHat == nil {
			err = fmt.Errorf("%w: decoder returned nil", ErrContractViolation)
			return
		}
		if !m.decodedShapeOK(xHat.Shape(), 1) {
			err = fmt.Errorf("%w: decoder output shape %v, want %v", ErrContractViolation,
				xHat.Shape(), m.cfg.OutputShape(1))
		}
	})
	return err
}

// decodedShapeOK accepts [batch, decode_len, feat_dim], the flattened
// [batch, decode_len*feat_dim], and for a single example the unbatched
// [decode_len*feat_dim].
func (m *Model[B]) decodedShapeOK(shape tensor.Shape, batch int) bool {
	flat := m.cfg.DecodeLen * m.cfg.FeatDim
	switch {
	case shape.Equal(tensor.Shape(m.cfg.OutputShape(batch))):
		return true
	case shape.Equal(tensor.Shape{batch, flat}):
		return true
	case batch == 1 && shape.Equal(tensor.Shape{flat}):
		return true
	default:
		return false
	}
}

// reconstruct decodes z and brings accepted flattened outputs back to
// [batch, decode_len, feat_dim]. Other shapes are returned unchanged.
func (m *Model[B]) reconstruct(z *tensor.Tensor[B]) *tensor.Tensor[B] {
	xHat := m.decoder.Decode(z)
	batch := z.Shape()[0]
	want := tensor.Shape(m.cfg.OutputShape(batch))
	if !xHat.Shape().Equal(want) && m.decodedShapeOK(xHat.Shape(), batch) {
		return xHat.Reshape(want...)
	}
	return xHat
}

// withoutRecording runs f with the tape paused, restoring its state afterwards.
func (m *Model[B]) withoutRecording(f func()) {
	tape := m.backend.Tape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()
	f()
}

// Compile attaches the optimizer used by TrainStep.
func (m *Model[B]) Compile(opt optim.Optimizer) {
	m.optimizer = opt
}

// Optimizer returns the attached optimizer, or nil.
func (m *Model[B]) Optimizer() optim.Optimizer {
	return m.optimizer
}

// Encoder returns the encoder.
func (m *Model[B]) Encoder() Encoder[B] {
	return m.encoder
}

// Decoder returns the decoder.
func (m *Model[B]) Decoder() Decoder[B] {
	return m.decoder
}

// Config returns a copy of the model configuration.
func (m *Model[B]) Config() Config {
	return m.cfg
}

// Name returns the model name.
func (m *Model[B]) Name() string {
	return m.name
}

// Backend returns the backend the model runs on.
func (m *Model[B]) Backend() B {
	return m.backend
}

// Parameters returns the encoder parameters followed by the decoder parameters.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	params := append([]*nn.Parameter[B](nil), m.encoder.Parameters()...)
	return append(params, m.decoder.Parameters()...)
}

// ParameterCounts returns the number of trainable, non-trainable and
// total scalar parameters across encoder and decoder.
func (m *Model[B]) ParameterCounts() (trainable, nonTrainable, total int) {
	trainable, nonTrainable = nn.CountParameters(m.Parameters())
	return trainable, nonTrainable, trainable + nonTrainable
}

// Summary returns the encoder summary followed by the decoder summary.
func (m *Model[B]) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "VAE %q: encode_len=%d decode_len=%d feat_dim=%d latent_dim=%d reconstruction_weight=%g\n",
		m.name, m.cfg.EncodeLen, m.cfg.DecodeLen, m.cfg.FeatDim, m.cfg.LatentDim, m.cfg.ReconstructionWeight)
	sb.WriteString(m.encoder.Summary())
	sb.WriteString(m.decoder.Summary())
	return sb.String()
}

// Metrics returns the loss, reconstruction_loss and kl_loss trackers.
func (m *Model[B]) Metrics() []*metrics.Mean {
	return []*metrics.Mean{m.totalTracker, m.reconTracker, m.klTracker}
}

// ResetMetrics resets all three trackers. Callers reset at epoch boundaries.
func (m *Model[B]) ResetMetrics() {
	metrics.ResetAll(m.Metrics()...)
}

// StateDict returns the parameters keyed "encoder.<path>" and
// "decoder.<path>", where path is the layer-qualified name reported by the
// encoder or decoder, e.g. "decoder.0.bias". The tensors are shared with
// the model.
func (m *Model[B]) StateDict() map[string]*tensor.RawTensor {
	state := nn.StateDict("encoder", nn.NamedOf[B](m.encoder))
	for k, v := range nn.StateDict("decoder", nn.NamedOf[B](m.decoder)) {
		state[k] = v
	}
	return state
}

// LoadStateDict copies parameter values saved by StateDict into the model.
func (m *Model[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	err := errors.Join(
		nn.LoadStateDict("encoder", nn.NamedOf[B](m.encoder), state),
		nn.LoadStateDict("decoder", nn.NamedOf[B](m.decoder), state),
	)
	if err != nil {
		return fmt.Errorf("vae: load state dict: %w", err)
	}
	return nil
}
