package vae

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Call reconstructs x deterministically by decoding z_mean instead of a
// sample. Nothing is recorded on the tape.
//
// A rank-1 decoder output is reshaped to [1, n]; other ranks are
// returned as produced by the decoder.
func (m *Model[B]) Call(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	var out *tensor.Tensor[B]
	m.withoutRecording(func() {
		zMean, _, _ := m.encoder.Encode(x)
		out = m.decoder.Decode(zMean)
		if len(out.Shape()) == 1 {
			out = out.Reshape(1, -1)
		}
	})
	return out
}

// PriorSamples decodes caller-supplied latent vectors z [n, latent_dim].
// Trackers and parameters are left untouched.
func (m *Model[B]) PriorSamples(z *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := z.Shape()
	if len(shape) != 2 || shape[1] != m.cfg.LatentDim {
		panic(fmt.Sprintf("PriorSamples: expected z of shape [n, %d], got %v", m.cfg.LatentDim, shape))
	}

	var out *tensor.Tensor[B]
	m.withoutRecording(func() {
		out = m.decoder.Decode(z)
	})
	return out
}

// SamplePrior draws n latent vectors from N(0, I) with the model's random
// source and decodes them.
func (m *Model[B]) SamplePrior(n int) *tensor.Tensor[B] {
	if n <= 0 {
		panic(fmt.Sprintf("SamplePrior: n must be positive, got %d", n))
	}
	z := tensor.Randn(tensor.Shape{n, m.cfg.LatentDim}, m.rng, m.backend)
	return m.PriorSamples(z)
}
