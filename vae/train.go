// Copyright 2025 The rt-forecasting-var-enc-fcst Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package vae

import (
	"github.com/sirupsen/logrus"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/checkpoint"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/data"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/trainer"
)

// Datasets

// Dataset is an in-memory set of (history, target) windows.
type Dataset = data.Dataset

// SineConfig describes a synthetic sinusoid dataset.
type SineConfig = data.SineConfig

// Scaler min-max scales each feature.
type Scaler = data.Scaler

// NewDataset wraps flat X [n, encode_len, feat_dim] and Y [n, decode_len, feat_dim] buffers.
func NewDataset(x, y []float32, n, encodeLen, decodeLen, featDim int) (*Dataset, error) {
	return data.New(x, y, n, encodeLen, decodeLen, featDim)
}

// WindowsFromSeries cuts sliding windows from series shaped [series][time][feat].
func WindowsFromSeries(series [][][]float32, encodeLen, decodeLen, stride int) (*Dataset, error) {
	return data.FromSeries(series, encodeLen, decodeLen, stride)
}

// Sinusoids generates a synthetic dataset.
func Sinusoids(cfg SineConfig) (*Dataset, error) { return data.Sinusoids(cfg) }

// FitScaler fits a Scaler on the history windows of d.
func FitScaler(d *Dataset) *Scaler { return data.FitScaler(d) }

// Training loop

// Trainer runs epochs over a Dataset.
type Trainer[B autodiff.BackwardCapable] = trainer.Trainer[B]

// TrainerConfig controls the epoch loop.
type TrainerConfig = trainer.Config

// EpochResult summarizes one epoch.
type EpochResult = trainer.EpochResult

// NewTrainer creates a Trainer. A nil logger uses logrus defaults.
//
// Example:
//
//	tr := vae.NewTrainer(model, vae.TrainerConfig{Epochs: 50, BatchSize: 32}, nil)
//	history, err := tr.Fit(ctx, dataset)
func NewTrainer[B autodiff.BackwardCapable](model *Model[B], cfg TrainerConfig, logger *logrus.Logger) *Trainer[B] {
	return trainer.New(model, cfg, logger)
}

// Checkpoints

// Checkpoint is a resumable snapshot of a training run.
type Checkpoint = checkpoint.State

// ErrInvalidCheckpoint is returned when a file is not a readable checkpoint.
var ErrInvalidCheckpoint = checkpoint.ErrInvalidFormat

// SaveCheckpoint snapshots model and its optimizer to path.
func SaveCheckpoint[B autodiff.BackwardCapable](path string, model *Model[B], epoch, step int) error {
	return checkpoint.Save(path, checkpoint.Capture(model, "", epoch, step, 0))
}

// LoadCheckpoint restores a checkpoint into model and returns it.
func LoadCheckpoint[B autodiff.BackwardCapable](path string, model *Model[B]) (*Checkpoint, error) {
	state, err := checkpoint.Load(path)
	if err != nil {
		return nil, err
	}
	if err := checkpoint.Restore(model, state); err != nil {
		return nil, err
	}
	return state, nil
}
