// Package checkpoint saves and restores VAE training state in .vae files.
//
// A checkpoint holds the model parameters, the optimizer buffers, the
// configuration the model was built with and the epoch/step counters, so an
// interrupted run can continue where it stopped.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/optim"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/serialization"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae"
)

// Tensor name prefixes inside the container.
const (
	paramPrefix = "param/"
	optimPrefix = "optim/"
)

var (
	// ErrInvalidFormat is returned when a file is not a readable checkpoint.
	ErrInvalidFormat = errors.New("checkpoint: invalid format")
	// ErrConfigMismatch is returned when restoring into a model built with a different configuration.
	ErrConfigMismatch = errors.New("checkpoint: config mismatch")
	// ErrOptimizerMismatch is returned when the saved optimizer type differs from the model's.
	ErrOptimizerMismatch = errors.New("checkpoint: optimizer mismatch")
)

// State is a resumable snapshot of a training run.
type State struct {
	RunID         string
	Epoch         int
	Step          int
	Loss          float32
	Config        vae.Config
	Params        map[string]*tensor.RawTensor
	Optimizer     map[string]*tensor.RawTensor
	OptimizerType string
	LR            float32
}

// payload is the JSON part of State stored in the container header.
type payload struct {
	RunID         string     `json:"run_id"`
	Epoch         int        `json:"epoch"`
	Step          int        `json:"step"`
	Loss          float32    `json:"loss"`
	Config        vae.Config `json:"config"`
	OptimizerType string     `json:"optimizer_type,omitempty"`
	LR            float32    `json:"lr,omitempty"`
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Capture snapshots a model and its attached optimizer.
// An empty runID is replaced by a new one.
func Capture[B autodiff.BackwardCapable](m *vae.Model[B], runID string, epoch, step int, loss float32) *State {
	if runID == "" {
		runID = NewRunID()
	}
	s := &State{
		RunID:  runID,
		Epoch:  epoch,
		Step:   step,
		Loss:   loss,
		Config: m.Config(),
		Params: m.StateDict(),
	}
	if opt := m.Optimizer(); opt != nil {
		s.LR = opt.GetLR()
		if st, ok := opt.(optim.Stateful); ok {
			s.OptimizerType = st.Name()
			s.Optimizer = st.StateDict()
		}
	}
	return s
}

// Restore loads parameters and optimizer buffers from s into m.
// The model must have been built with the same configuration.
func Restore[B autodiff.BackwardCapable](m *vae.Model[B], s *State) error {
	if s.Config != m.Config() {
		return fmt.Errorf("%w: saved %+v, model %+v", ErrConfigMismatch, s.Config, m.Config())
	}
	if err := m.LoadStateDict(s.Params); err != nil {
		return fmt.Errorf("checkpoint: restore: %w", err)
	}
	if s.OptimizerType == "" {
		return nil
	}

	st, ok := m.Optimizer().(optim.Stateful)
	if !ok {
		return fmt.Errorf("%w: saved %q, model has none", ErrOptimizerMismatch, s.OptimizerType)
	}
	if st.Name() != s.OptimizerType {
		return fmt.Errorf("%w: saved %q, model has %q", ErrOptimizerMismatch, s.OptimizerType, st.Name())
	}
	if err := st.LoadStateDict(s.Optimizer); err != nil {
		return fmt.Errorf("checkpoint: restore optimizer: %w", err)
	}
	return nil
}

// Save writes s to path atomically.
func Save(path string, s *State) error {
	if s == nil {
		return errors.New("checkpoint: nil state")
	}

	meta, err := json.Marshal(payload{
		RunID:         s.RunID,
		Epoch:         s.Epoch,
		Step:          s.Step,
		Loss:          s.Loss,
		Config:        s.Config,
		OptimizerType: s.OptimizerType,
		LR:            s.LR,
	})
	if err != nil {
		return fmt.Errorf("checkpoint: encode state: %w", err)
	}

	tensors := make(map[string]*tensor.RawTensor, len(s.Params)+len(s.Optimizer))
	for k, v := range s.Params {
		tensors[paramPrefix+k] = v
	}
	flags := serialization.FlagHasMetadata
	for k, v := range s.Optimizer {
		tensors[optimPrefix+k] = v
	}
	if len(s.Optimizer) > 0 {
		flags |= serialization.FlagHasOptimizer
	}

	header := serialization.Header{
		Metadata: map[string]string{"run_id": s.RunID, "kind": "vae-checkpoint"},
		Payload:  meta,
	}
	if err := serialization.WriteFile(path, tensors, header, flags); err != nil {
		return fmt.Errorf("checkpoint: save %s: %w", path, err)
	}
	return nil
}

// Load reads a checkpoint written by Save.
func Load(path string) (*State, error) {
	file, err := serialization.ReadFile(path)
	if err != nil {
		if isFormatError(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFormat, path, err)
		}
		return nil, fmt.Errorf("checkpoint: load %s: %w", path, err)
	}

	var meta payload
	if err := json.Unmarshal(file.Header.Payload, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: state: %w", ErrInvalidFormat, path, err)
	}

	s := &State{
		RunID:         meta.RunID,
		Epoch:         meta.Epoch,
		Step:          meta.Step,
		Loss:          meta.Loss,
		Config:        meta.Config,
		Params:        make(map[string]*tensor.RawTensor),
		OptimizerType: meta.OptimizerType,
		LR:            meta.LR,
	}
	for name, raw := range file.Tensors {
		switch {
		case strings.HasPrefix(name, paramPrefix):
			s.Params[strings.TrimPrefix(name, paramPrefix)] = raw
		case strings.HasPrefix(name, optimPrefix):
			if s.Optimizer == nil {
				s.Optimizer = make(map[string]*tensor.RawTensor)
			}
			s.Optimizer[strings.TrimPrefix(name, optimPrefix)] = raw
		default:
			return nil, fmt.Errorf("%w: %s: unexpected tensor %q", ErrInvalidFormat, path, name)
		}
	}
	return s, nil
}

func isFormatError(err error) bool {
	var verr *serialization.ValidationError
	return errors.Is(err, serialization.ErrInvalidMagic) ||
		errors.Is(err, serialization.ErrUnsupportedVersion) ||
		errors.Is(err, serialization.ErrChecksumMismatch) ||
		errors.Is(err, serialization.ErrHeaderTooLarge) ||
		errors.As(err, &verr)
}
