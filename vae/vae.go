// Copyright 2025 The rt-forecasting-var-enc-fcst Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package vae provides a variational autoencoder for multivariate time
// series windows.
//
// A Model wires a user-supplied Encoder and Decoder together, computes the
// reconstruction and KL losses, and runs single training or evaluation
// steps. The dense Builder gives a ready-to-use fully connected
// encoder/decoder pair.
//
// Example:
//
//	import (
//	    "github.com/readytensor/rt-forecasting-var-enc-fcst/autodiff"
//	    "github.com/readytensor/rt-forecasting-var-enc-fcst/backend/cpu"
//	    "github.com/readytensor/rt-forecasting-var-enc-fcst/optim"
//	    "github.com/readytensor/rt-forecasting-var-enc-fcst/vae"
//	)
//
//	type Backend = *autodiff.Backend[*cpu.Backend]
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    cfg := vae.NewConfig(24, 12, 3, 4)
//
//	    model, err := vae.New[Backend](vae.NewDenseBuilder(backend, 64, 32), cfg, backend)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    model.Compile(optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 1e-3}, backend))
//
//	    result, err := model.TrainStep(x, y) // x [b, 24, 3], y [b, 12, 3]
//	}
package vae

import (
	"math/rand"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae/dense"
)

// Model is a variational autoencoder over backend B.
type Model[B autodiff.BackwardCapable] = vae.Model[B]

// New builds the encoder and decoder from builder and validates them with
// a dry run.
func New[B autodiff.BackwardCapable](builder Builder[B], cfg Config, backend B, opts ...Option) (*Model[B], error) {
	return vae.New(builder, cfg, backend, opts...)
}

// Option customizes New.
type Option = vae.Option

// WithRand sets the noise source used by SamplePrior.
func WithRand(rng *rand.Rand) Option { return vae.WithRand(rng) }

// WithName sets the model name shown in Summary.
func WithName(name string) Option { return vae.WithName(name) }

// Configuration

// Config holds the model dimensions and loss weighting.
type Config = vae.Config

// ConfigOption customizes NewConfig.
type ConfigOption = vae.ConfigOption

// DefaultReconstructionWeight multiplies the reconstruction loss by default.
const DefaultReconstructionWeight = vae.DefaultReconstructionWeight

// NewConfig creates a Config with DefaultReconstructionWeight.
func NewConfig(encodeLen, decodeLen, featDim, latentDim int, opts ...ConfigOption) Config {
	return vae.NewConfig(encodeLen, decodeLen, featDim, latentDim, opts...)
}

// WithReconstructionWeight overrides the reconstruction loss weight.
func WithReconstructionWeight(w float32) ConfigOption {
	return vae.WithReconstructionWeight(w)
}

// Encoder/decoder contract

// Encoder maps [batch, encode_len, feat_dim] to (z_mean, z_log_var, z).
type Encoder[B tensor.Backend] = vae.Encoder[B]

// Decoder maps [batch, latent_dim] to [batch, decode_len, feat_dim].
type Decoder[B tensor.Backend] = vae.Decoder[B]

// Builder constructs an Encoder and Decoder for a Config.
type Builder[B tensor.Backend] = vae.Builder[B]

// Sampling returns z = z_mean + exp(0.5 * z_log_var) * eps with eps ~ N(0, 1).
func Sampling[B tensor.Backend](zMean, zLogVar *tensor.Tensor[B], rng *rand.Rand) *tensor.Tensor[B] {
	return vae.Sampling(zMean, zLogVar, rng)
}

// DenseBuilder builds fully connected encoders and decoders.
type DenseBuilder[B tensor.Backend] = dense.Builder[B]

// NewDenseBuilder creates a DenseBuilder with the given encoder hidden
// widths (the decoder mirrors them).
func NewDenseBuilder[B tensor.Backend](backend B, hidden ...int) *DenseBuilder[B] {
	return dense.NewBuilder(backend, hidden...)
}

// Losses

// Reduction selects mean or sum reduction of the loss terms.
type Reduction = vae.Reduction

// Reductions.
const (
	ReduceMean = vae.ReduceMean
	ReduceSum  = vae.ReduceSum
)

// Losses holds the total, reconstruction and KL loss tensors.
type Losses[B tensor.Backend] = vae.Losses[B]

// LossValues holds the loss terms as floats.
type LossValues = vae.LossValues

// StepResult holds the tracker means after a step.
type StepResult = vae.StepResult

// ComputeLosses computes the weighted reconstruction loss, the KL
// divergence to N(0, I) and their sum.
func ComputeLosses[B tensor.Backend](y, xHat, zMean, zLogVar *tensor.Tensor[B], reduction Reduction, weight float32) Losses[B] {
	return vae.ComputeLosses(y, xHat, zMean, zLogVar, reduction, weight)
}

// CheckFinite returns ErrNonFiniteLoss if any loss term is NaN or Inf.
func CheckFinite(v LossValues) error { return vae.CheckFinite(v) }

// Tracker names.
const (
	MetricLoss               = vae.MetricLoss
	MetricReconstructionLoss = vae.MetricReconstructionLoss
	MetricKLLoss             = vae.MetricKLLoss
)

// Errors.
var (
	ErrNilBuilder        = vae.ErrNilBuilder
	ErrMissingEncoder    = vae.ErrMissingEncoder
	ErrMissingDecoder    = vae.ErrMissingDecoder
	ErrContractViolation = vae.ErrContractViolation
	ErrInvalidConfig     = vae.ErrInvalidConfig
	ErrNoOptimizer       = vae.ErrNoOptimizer
	ErrMissingGradient   = vae.ErrMissingGradient
	ErrNonFiniteLoss     = vae.ErrNonFiniteLoss
)
