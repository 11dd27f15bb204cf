// Package dense provides a fully connected encoder and decoder that
// satisfy the vae contracts.
//
//	encoder: X [b, encode_len, feat] -> Flatten -> (Linear -> ReLU)* -> {Linear z_mean, Linear z_log_var} -> Sampling
//	decoder: z [b, latent] -> (Linear -> ReLU)* -> Linear -> Unflatten [b, decode_len, feat]
package dense

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae"
)

// DefaultHidden is the hidden layer layout used when none is given.
var DefaultHidden = []int{64, 32}

// Builder implements vae.Builder with dense layers.
type Builder[B tensor.Backend] struct {
	Backend B
	// Hidden lists the encoder hidden widths; the decoder mirrors them.
	Hidden []int
	// Rand seeds weight initialization and encoder sampling noise.
	// nil uses the math/rand global source.
	Rand *rand.Rand
}

// NewBuilder creates a Builder. With no hidden sizes, DefaultHidden is used.
func NewBuilder[B tensor.Backend](backend B, hidden ...int) *Builder[B] {
	if len(hidden) == 0 {
		hidden = DefaultHidden
	}
	return &Builder[B]{Backend: backend, Hidden: append([]int(nil), hidden...)}
}

func (b *Builder[B]) validate() error {
	for _, h := range b.Hidden {
		if h <= 0 {
			return fmt.Errorf("dense: hidden sizes must be positive, got %v", b.Hidden)
		}
	}
	return nil
}

// BuildEncoder implements vae.Builder.
func (b *Builder[B]) BuildEncoder(cfg vae.Config) (vae.Encoder[B], error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	in := cfg.EncodeLen * cfg.FeatDim
	body := nn.NewSequential[B](nn.NewFlatten[B]())
	for _, h := range b.Hidden {
		body.Add(nn.NewLinear(in, h, b.Backend, nn.WithInitRand(b.Rand)))
		body.Add(nn.NewReLU[B]())
		in = h
	}

	return &Encoder[B]{
		cfg:     cfg,
		body:    body,
		mean:    nn.NewLinear(in, cfg.LatentDim, b.Backend, nn.WithInitRand(b.Rand)),
		logVar:  nn.NewLinear(in, cfg.LatentDim, b.Backend, nn.WithInitRand(b.Rand)),
		sampler: b.Rand,
	}, nil
}

// BuildDecoder implements vae.Builder.
func (b *Builder[B]) BuildDecoder(cfg vae.Config) (vae.Decoder[B], error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	in := cfg.LatentDim
	body := nn.NewSequential[B]()
	for i := len(b.Hidden) - 1; i >= 0; i-- {
		body.Add(nn.NewLinear(in, b.Hidden[i], b.Backend, nn.WithInitRand(b.Rand)))
		body.Add(nn.NewReLU[B]())
		in = b.Hidden[i]
	}
	body.Add(nn.NewLinear(in, cfg.DecodeLen*cfg.FeatDim, b.Backend, nn.WithInitRand(b.Rand)))
	body.Add(nn.NewUnflatten[B](cfg.DecodeLen, cfg.FeatDim))

	return &Decoder[B]{cfg: cfg, body: body}, nil
}

// Encoder is the dense VAE encoder.
type Encoder[B tensor.Backend] struct {
	cfg     vae.Config
	body    *nn.Sequential[B]
	mean    *nn.Linear[B]
	logVar  *nn.Linear[B]
	sampler *rand.Rand
}

// Encode implements vae.Encoder.
func (e *Encoder[B]) Encode(x *tensor.Tensor[B]) (zMean, zLogVar, z *tensor.Tensor[B]) {
	shape := x.Shape()
	if len(shape) != 3 || shape[1] != e.cfg.EncodeLen || shape[2] != e.cfg.FeatDim {
		panic(fmt.Sprintf("dense.Encoder: expected input [batch, %d, %d], got %v", e.cfg.EncodeLen, e.cfg.FeatDim, shape))
	}

	h := e.body.Forward(x)
	zMean = e.mean.Forward(h)
	zLogVar = e.logVar.Forward(h)
	z = vae.Sampling(zMean, zLogVar, e.sampler)
	return zMean, zLogVar, z
}

// Parameters implements vae.Encoder.
func (e *Encoder[B]) Parameters() []*nn.Parameter[B] {
	params := e.body.Parameters()
	params = append(params, e.mean.Parameters()...)
	return append(params, e.logVar.Parameters()...)
}

// NamedParameters implements nn.Named. Body layers keep their position in
// the body; the heads are "z_mean.*" and "z_log_var.*".
func (e *Encoder[B]) NamedParameters() []nn.NamedParameter[B] {
	named := e.body.NamedParameters()
	for _, head := range []struct {
		path  string
		layer *nn.Linear[B]
	}{{"z_mean", e.mean}, {"z_log_var", e.logVar}} {
		for _, p := range head.layer.Parameters() {
			named = append(named, nn.NamedParameter[B]{Path: head.path + "." + p.Name(), Param: p})
		}
	}
	return named
}

// Summary implements vae.Encoder.
func (e *Encoder[B]) Summary() string {
	var sb strings.Builder
	sb.WriteString(nn.Summary[B]("encoder", e.body))
	fmt.Fprintf(&sb, "z_mean:    %s\n", e.mean.Describe())
	fmt.Fprintf(&sb, "z_log_var: %s\n", e.logVar.Describe())
	trainable, frozen := nn.CountParameters(e.Parameters())
	fmt.Fprintf(&sb, "Encoder params: %d (trainable %d)\n", trainable+frozen, trainable)
	return sb.String()
}

// Decoder is the dense VAE decoder.
type Decoder[B tensor.Backend] struct {
	cfg  vae.Config
	body *nn.Sequential[B]
}

// Decode implements vae.Decoder.
func (d *Decoder[B]) Decode(z *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := z.Shape()
	if len(shape) != 2 || shape[1] != d.cfg.LatentDim {
		panic(fmt.Sprintf("dense.Decoder: expected z [batch, %d], got %v", d.cfg.LatentDim, shape))
	}
	return d.body.Forward(z)
}

// Parameters implements vae.Decoder.
func (d *Decoder[B]) Parameters() []*nn.Parameter[B] {
	return d.body.Parameters()
}

// NamedParameters implements nn.Named.
func (d *Decoder[B]) NamedParameters() []nn.NamedParameter[B] {
	return d.body.NamedParameters()
}

// Summary implements vae.Decoder.
func (d *Decoder[B]) Summary() string {
	return nn.Summary[B]("decoder", d.body)
}
