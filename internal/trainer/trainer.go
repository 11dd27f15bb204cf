// Package trainer runs the epoch loop around a vae.Model.
//
// The trainer owns batching, per-epoch tracker resets, validation,
// finite-loss checks, cancellation and periodic checkpoints. Each step is
// delegated to Model.TrainStep or Model.TestStep.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/checkpoint"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/data"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/metrics"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/parallel"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae"
)

// ErrDatasetMismatch is returned when dataset windows do not match the model config.
var ErrDatasetMismatch = errors.New("trainer: dataset does not match model config")

// Config controls the epoch loop.
type Config struct {
	Epochs    int   // total epochs, including those restored by Resume
	BatchSize int   // windows per step (default: 32)
	Seed      int64 // shuffle seed; epoch e shuffles with Seed+e
	NoShuffle bool

	// Validation is evaluated with TestStep after every epoch when non-nil.
	Validation *data.Dataset

	// CheckpointPath enables checkpoints every CheckpointEvery epochs
	// (default: 1) and after the last epoch.
	CheckpointPath  string
	CheckpointEvery int

	// Parallel bounds the workers used to assemble batch tensors.
	Parallel parallel.Config
}

// EpochResult summarizes one epoch.
type EpochResult struct {
	Epoch      int // 1-based
	Steps      int
	Train      vae.StepResult
	Validation *vae.StepResult
	Duration   time.Duration
}

// Trainer fits a model on an in-memory dataset.
type Trainer[B autodiff.BackwardCapable] struct {
	model  *vae.Model[B]
	cfg    Config
	logger *logrus.Logger

	runID string
	epoch int // completed epochs
	step  int // completed steps
}

// New creates a trainer. A nil logger falls back to logrus.New().
func New[B autodiff.BackwardCapable](model *vae.Model[B], cfg Config, logger *logrus.Logger) *Trainer[B] {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 1
	}
	if cfg.Parallel.NumWorkers == 0 {
		cfg.Parallel = parallel.DefaultConfig()
	}
	return &Trainer[B]{
		model:  model,
		cfg:    cfg,
		logger: logger,
		runID:  checkpoint.NewRunID(),
	}
}

// RunID returns the identifier written into checkpoints.
func (t *Trainer[B]) RunID() string { return t.runID }

// Epoch returns the number of completed epochs.
func (t *Trainer[B]) Epoch() int { return t.epoch }

// Step returns the number of completed optimization steps.
func (t *Trainer[B]) Step() int { return t.step }

// Resume restores model, optimizer and counters from a checkpoint.
// Fit then continues with the epoch after the saved one.
func (t *Trainer[B]) Resume(path string) error {
	state, err := checkpoint.Load(path)
	if err != nil {
		return err
	}
	if err := checkpoint.Restore(t.model, state); err != nil {
		return err
	}
	t.runID, t.epoch, t.step = state.RunID, state.Epoch, state.Step

	t.logger.WithFields(logrus.Fields{
		"run_id": t.runID,
		"epoch":  t.epoch,
		"step":   t.step,
		"path":   path,
	}).Info("resumed from checkpoint")
	return nil
}

// Fit trains until cfg.Epochs epochs have completed and returns the
// history of the epochs run by this call.
//
// A non-finite loss aborts with an error wrapping vae.ErrNonFiniteLoss.
// Cancellation is checked between steps and returns ctx.Err().
func (t *Trainer[B]) Fit(ctx context.Context, train *data.Dataset) ([]EpochResult, error) {
	if err := t.checkDataset(train); err != nil {
		return nil, err
	}
	if t.cfg.Validation != nil {
		if err := t.checkDataset(t.cfg.Validation); err != nil {
			return nil, err
		}
	}

	log := t.logger.WithField("run_id", t.runID)
	log.WithFields(logrus.Fields{
		"model":      t.model.Name(),
		"windows":    train.Len(),
		"batch_size": t.cfg.BatchSize,
		"epochs":     t.cfg.Epochs,
		"start":      t.epoch,
	}).Info("training started")

	var history []EpochResult
	for t.epoch < t.cfg.Epochs {
		res, err := t.runEpoch(ctx, train)
		if err != nil {
			return history, err
		}
		t.epoch++
		history = append(history, res)

		fields := logrus.Fields{
			"epoch":                      res.Epoch,
			vae.MetricLoss:               res.Train.Loss,
			vae.MetricReconstructionLoss: res.Train.ReconstructionLoss,
			vae.MetricKLLoss:             res.Train.KLLoss,
			"duration":                   res.Duration.Round(time.Millisecond),
		}
		if res.Validation != nil {
			fields["val_"+vae.MetricLoss] = res.Validation.Loss
		}
		log.WithFields(fields).Info("epoch done")

		if t.shouldCheckpoint() {
			if err := t.saveCheckpoint(res.Train.Loss); err != nil {
				return history, err
			}
			log.WithFields(logrus.Fields{"epoch": t.epoch, "path": t.cfg.CheckpointPath}).Debug("checkpoint saved")
		}
	}
	return history, nil
}

func (t *Trainer[B]) runEpoch(ctx context.Context, train *data.Dataset) (EpochResult, error) {
	start := time.Now()
	res := EpochResult{Epoch: t.epoch + 1}

	var rng *rand.Rand
	if !t.cfg.NoShuffle {
		rng = rand.New(rand.NewSource(t.cfg.Seed + int64(t.epoch))) //nolint:gosec // G404: shuffling
	}
	batches, err := t.prepare(ctx, train, train.Batches(t.cfg.BatchSize, rng))
	if err != nil {
		return res, err
	}

	t.model.ResetMetrics()
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		step, err := t.model.TrainStep(b.x, b.y)
		if err != nil {
			return res, fmt.Errorf("trainer: epoch %d step %d: %w", res.Epoch, t.step+1, err)
		}
		if err := vae.CheckFinite(step.Values()); err != nil {
			return res, fmt.Errorf("trainer: epoch %d step %d: %w", res.Epoch, t.step+1, err)
		}
		t.step++
		res.Steps++
		res.Train = step

		if t.logger.IsLevelEnabled(logrus.TraceLevel) {
			fields := logrus.Fields{"epoch": res.Epoch, "step": t.step}
			for name, v := range metrics.Results(t.model.Metrics()...) {
				fields[name] = v
			}
			t.logger.WithFields(fields).Trace("train step")
		}
	}

	if t.cfg.Validation != nil {
		val, err := t.Evaluate(ctx, t.cfg.Validation)
		if err != nil {
			return res, err
		}
		res.Validation = &val
	}

	res.Duration = time.Since(start)
	return res, nil
}

// Evaluate runs TestStep over every window of d in order and returns the
// trackers' means. The model's trackers are reset first.
func (t *Trainer[B]) Evaluate(ctx context.Context, d *data.Dataset) (vae.StepResult, error) {
	if err := t.checkDataset(d); err != nil {
		return vae.StepResult{}, err
	}
	batches, err := t.prepare(ctx, d, d.Batches(t.cfg.BatchSize, nil))
	if err != nil {
		return vae.StepResult{}, err
	}

	t.model.ResetMetrics()
	var res vae.StepResult
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res, err = t.model.TestStep(b.x, b.y)
		if err != nil {
			return res, fmt.Errorf("trainer: evaluate: %w", err)
		}
	}
	for _, m := range t.model.Metrics() {
		if !m.Finite() {
			return res, fmt.Errorf("trainer: evaluate: %w: %s = %v", vae.ErrNonFiniteLoss, m.Name(), m.Result())
		}
	}
	return res, nil
}

type batch[B tensor.Backend] struct {
	x, y *tensor.Tensor[B]
}

// prepare gathers every batch into tensors concurrently.
func (t *Trainer[B]) prepare(ctx context.Context, d *data.Dataset, idx [][]int) ([]batch[B], error) {
	backend := t.model.Backend()
	out := make([]batch[B], len(idx))
	err := parallel.Map(ctx, len(idx), func(_ context.Context, i int) error {
		n := len(idx[i])
		xs, ys := d.Gather(idx[i])
		x, err := tensor.FromSlice(xs, tensor.Shape{n, d.EncodeLen(), d.FeatDim()}, backend)
		if err != nil {
			return fmt.Errorf("trainer: batch %d: %w", i, err)
		}
		y, err := tensor.FromSlice(ys, tensor.Shape{n, d.DecodeLen(), d.FeatDim()}, backend)
		if err != nil {
			return fmt.Errorf("trainer: batch %d: %w", i, err)
		}
		out[i] = batch[B]{x: x, y: y}
		return nil
	}, t.cfg.Parallel)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Trainer[B]) checkDataset(d *data.Dataset) error {
	if d == nil {
		return fmt.Errorf("%w: nil dataset", ErrDatasetMismatch)
	}
	cfg := t.model.Config()
	if d.EncodeLen() != cfg.EncodeLen || d.DecodeLen() != cfg.DecodeLen || d.FeatDim() != cfg.FeatDim {
		return fmt.Errorf("%w: windows [%d→%d]x%d, model [%d→%d]x%d", ErrDatasetMismatch,
			d.EncodeLen(), d.DecodeLen(), d.FeatDim(), cfg.EncodeLen, cfg.DecodeLen, cfg.FeatDim)
	}
	return nil
}

func (t *Trainer[B]) shouldCheckpoint() bool {
	if t.cfg.CheckpointPath == "" {
		return false
	}
	return t.epoch%t.cfg.CheckpointEvery == 0 || t.epoch == t.cfg.Epochs
}

func (t *Trainer[B]) saveCheckpoint(loss float32) error {
	state := checkpoint.Capture(t.model, t.runID, t.epoch, t.step, loss)
	if err := checkpoint.Save(t.cfg.CheckpointPath, state); err != nil {
		return fmt.Errorf("trainer: %w", err)
	}
	return nil
}
