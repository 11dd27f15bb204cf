package vae

import (
	"fmt"
	"math/rand"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Encoder maps a batch of input windows to the latent distribution.
//
// Encode takes X with shape [batch, encode_len, feat_dim] and returns
// z_mean, z_log_var and z, each [batch, latent_dim]. z must be a fresh
// reparameterized sample on every call (see Sampling).
type Encoder[B tensor.Backend] interface {
	Encode(x *tensor.Tensor[B]) (zMean, zLogVar, z *tensor.Tensor[B])
	Parameters() []*nn.Parameter[B]
	Summary() string
}

// Decoder maps latent vectors back to windows.
//
// Decode takes z with shape [batch, latent_dim] and returns the
// reconstruction [batch, decode_len, feat_dim], or the flattened
// [batch, decode_len*feat_dim]. Decode is deterministic.
type Decoder[B tensor.Backend] interface {
	Decode(z *tensor.Tensor[B]) *tensor.Tensor[B]
	Parameters() []*nn.Parameter[B]
	Summary() string
}

// Builder constructs the encoder and decoder for a configuration.
// It is the extension point for concrete architectures.
type Builder[B tensor.Backend] interface {
	BuildEncoder(cfg Config) (Encoder[B], error)
	BuildDecoder(cfg Config) (Decoder[B], error)
}

// Sampling draws z = z_mean + exp(0.5 * z_log_var) * epsilon with
// epsilon ~ N(0, I) from rng (the global source if rng is nil).
//
// The computation runs on the tensors' backend, so on a recording
// autodiff backend gradients flow into both z_mean and z_log_var.
func Sampling[B tensor.Backend](zMean, zLogVar *tensor.Tensor[B], rng *rand.Rand) *tensor.Tensor[B] {
	if !zMean.Shape().Equal(zLogVar.Shape()) {
		panic(fmt.Sprintf("Sampling: z_mean shape %v does not match z_log_var shape %v", zMean.Shape(), zLogVar.Shape()))
	}
	epsilon := tensor.Randn(zMean.Shape(), rng, zMean.Backend())
	std := zLogVar.MulScalar(0.5).Exp()
	return zMean.Add(std.Mul(epsilon))
}
