package vae

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultReconstructionWeight is the reconstruction loss multiplier used
// when none is configured.
const DefaultReconstructionWeight float32 = 5.0

// Config holds the model dimensions and loss weighting.
// It is copied into the Model at construction and never mutated afterwards.
type Config struct {
	EncodeLen            int     `json:"encode_len"`
	DecodeLen            int     `json:"decode_len"`
	FeatDim              int     `json:"feat_dim"`
	LatentDim            int     `json:"latent_dim"`
	ReconstructionWeight float32 `json:"reconstruction_weight"`
}

// ConfigOption customizes NewConfig.
type ConfigOption func(*Config)

// WithReconstructionWeight overrides DefaultReconstructionWeight.
func WithReconstructionWeight(w float32) ConfigOption {
	return func(c *Config) { c.ReconstructionWeight = w }
}

// NewConfig creates a Config with the default reconstruction weight.
//
// Example:
//
//	cfg := vae.NewConfig(10, 10, 3, 2)                                // weight 5.0
//	cfg := vae.NewConfig(10, 10, 3, 2, vae.WithReconstructionWeight(1)) // weight 1.0
func NewConfig(encodeLen, decodeLen, featDim, latentDim int, opts ...ConfigOption) Config {
	cfg := Config{
		EncodeLen:            encodeLen,
		DecodeLen:            decodeLen,
		FeatDim:              featDim,
		LatentDim:            latentDim,
		ReconstructionWeight: DefaultReconstructionWeight,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate checks that all dimensions are positive and the weight is a
// finite non-negative number.
func (c Config) Validate() error {
	dims := []struct {
		name  string
		value int
	}{
		{"encode_len", c.EncodeLen},
		{"decode_len", c.DecodeLen},
		{"feat_dim", c.FeatDim},
		{"latent_dim", c.LatentDim},
	}
	for _, d := range dims {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, d.name, d.value)
		}
	}

	w := float64(c.ReconstructionWeight)
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("%w: reconstruction_weight must be finite and >= 0, got %v", ErrInvalidConfig, c.ReconstructionWeight)
	}
	return nil
}

// InputShape returns the encoder input shape for a batch.
func (c Config) InputShape(batch int) []int {
	return []int{batch, c.EncodeLen, c.FeatDim}
}

// OutputShape returns the decoder output shape for a batch.
func (c Config) OutputShape(batch int) []int {
	return []int{batch, c.DecodeLen, c.FeatDim}
}

// Option customizes a Model.
type Option func(*options)

type options struct {
	rng  *rand.Rand
	name string
}

// WithRand sets the random source used for prior sampling.
// Without it, the model uses a source seeded from the current time.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithName sets the model name shown in Summary.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}
