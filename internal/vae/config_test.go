package vae_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := vae.NewConfig(10, 5, 3, 2)
	assert.Equal(t, vae.Config{EncodeLen: 10, DecodeLen: 5, FeatDim: 3, LatentDim: 2, ReconstructionWeight: 5.0}, cfg)
	require.NoError(t, cfg.Validate())

	cfg = vae.NewConfig(10, 5, 3, 2, vae.WithReconstructionWeight(0.5))
	assert.Equal(t, float32(0.5), cfg.ReconstructionWeight)
	assert.Equal(t, []int{4, 10, 3}, cfg.InputShape(4))
	assert.Equal(t, []int{4, 5, 3}, cfg.OutputShape(4))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  vae.Config
		want string
	}{
		{"ZeroEncodeLen", vae.NewConfig(0, 5, 3, 2), "encode_len"},
		{"NegativeDecodeLen", vae.NewConfig(10, -1, 3, 2), "decode_len"},
		{"ZeroFeat", vae.NewConfig(10, 5, 0, 2), "feat_dim"},
		{"ZeroLatent", vae.NewConfig(10, 5, 3, 0), "latent_dim"},
		{"NegativeWeight", vae.NewConfig(10, 5, 3, 2, vae.WithReconstructionWeight(-1)), "reconstruction_weight"},
		{"NaNWeight", vae.NewConfig(10, 5, 3, 2, vae.WithReconstructionWeight(float32(math.NaN()))), "reconstruction_weight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.ErrorIs(t, err, vae.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, vae.NewConfig(1, 1, 1, 1, vae.WithReconstructionWeight(0)).Validate())
}
