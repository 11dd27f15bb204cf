package vae_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/backend/cpu"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/optim"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae/dense"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() Backend {
	return autodiff.New(cpu.New())
}

// newDenseModel builds a seeded dense VAE with an Adam optimizer attached.
func newDenseModel(t *testing.T, cfg vae.Config, seed int64) *vae.Model[Backend] {
	t.Helper()
	backend := newBackend()
	builder := dense.NewBuilder(backend, 16)
	builder.Rand = rand.New(rand.NewSource(seed))

	model, err := vae.New[Backend](builder, cfg, backend, vae.WithRand(rand.New(rand.NewSource(seed+1))))
	require.NoError(t, err)
	model.Compile(optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.01}, backend))
	return model
}

// sineBatch returns a [batch, length, feat] tensor of offset sinusoids.
func sineBatch(t *testing.T, backend Backend, batch, length, feat int) *tensor.Tensor[Backend] {
	t.Helper()
	data := make([]float32, 0, batch*length*feat)
	for b := range batch {
		for s := range length {
			for f := range feat {
				phase := float64(b)*0.7 + float64(f)*1.3
				data = append(data, float32(2+math.Sin(float64(s)*0.5+phase)))
			}
		}
	}
	x, err := tensor.FromSlice(data, tensor.Shape{batch, length, feat}, backend)
	require.NoError(t, err)
	return x
}

func snapshot(params []*nn.Parameter[Backend]) [][]float32 {
	out := make([][]float32, len(params))
	for i, p := range params {
		out[i] = append([]float32(nil), p.Tensor().Data()...)
	}
	return out
}

func mse(a, b *tensor.Tensor[Backend]) float64 {
	var sum float64
	ad, bd := a.Data(), b.Data()
	for i := range ad {
		d := float64(ad[i] - bd[i])
		sum += d * d
	}
	return sum / float64(len(ad))
}

// funcEncoder adapts a function to vae.Encoder.
type funcEncoder struct {
	encode func(x *tensor.Tensor[Backend]) (zMean, zLogVar, z *tensor.Tensor[Backend])
	params []*nn.Parameter[Backend]
}

func (e *funcEncoder) Encode(x *tensor.Tensor[Backend]) (zMean, zLogVar, z *tensor.Tensor[Backend]) {
	return e.encode(x)
}
func (e *funcEncoder) Parameters() []*nn.Parameter[Backend] { return e.params }
func (e *funcEncoder) Summary() string                      { return "funcEncoder\n" }

// funcDecoder adapts a function to vae.Decoder.
type funcDecoder struct {
	decode func(z *tensor.Tensor[Backend]) *tensor.Tensor[Backend]
}

func (d *funcDecoder) Decode(z *tensor.Tensor[Backend]) *tensor.Tensor[Backend] { return d.decode(z) }
func (d *funcDecoder) Parameters() []*nn.Parameter[Backend]                     { return nil }
func (d *funcDecoder) Summary() string                                          { return "funcDecoder\n" }

// staticBuilder returns fixed parts or errors.
type staticBuilder struct {
	enc    vae.Encoder[Backend]
	dec    vae.Decoder[Backend]
	encErr error
	decErr error
}

func (b *staticBuilder) BuildEncoder(vae.Config) (vae.Encoder[Backend], error) { return b.enc, b.encErr }
func (b *staticBuilder) BuildDecoder(vae.Config) (vae.Decoder[Backend], error) { return b.dec, b.decErr }

// withExtra wraps an encoder and reports one additional parameter that
// the forward pass never touches.
type withExtra struct {
	vae.Encoder[Backend]
	extra *nn.Parameter[Backend]
}

func (e *withExtra) Parameters() []*nn.Parameter[Backend] {
	return append(e.Encoder.Parameters(), e.extra)
}
