package data

import (
	"fmt"
	"math"
	"math/rand"
)

// FromSeries cuts sliding windows out of series, each [time][feat].
// Every window takes encodeLen history steps followed by decodeLen target
// steps; consecutive windows start stride steps apart.
func FromSeries(series [][][]float32, encodeLen, decodeLen, stride int) (*Dataset, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("data: stride must be positive, got %d", stride)
	}
	if len(series) == 0 || len(series[0]) == 0 {
		return nil, ErrEmpty
	}
	featDim := len(series[0][0])
	span := encodeLen + decodeLen

	var x, y []float32
	n := 0
	for s, steps := range series {
		for t, step := range steps {
			if len(step) != featDim {
				return nil, fmt.Errorf("data: series %d step %d has %d features, want %d", s, t, len(step), featDim)
			}
		}
		for start := 0; start+span <= len(steps); start += stride {
			for _, step := range steps[start : start+encodeLen] {
				x = append(x, step...)
			}
			for _, step := range steps[start+encodeLen : start+span] {
				y = append(y, step...)
			}
			n++
		}
	}
	return New(x, y, n, encodeLen, decodeLen, featDim)
}

// SineConfig describes a synthetic multivariate sinusoid dataset.
type SineConfig struct {
	Series    int     // independent series
	Length    int     // steps per series
	FeatDim   int     // features per step
	EncodeLen int     // history steps per window
	DecodeLen int     // target steps per window
	Stride    int     // window stride, defaults to 1
	Noise     float64 // gaussian noise std
	Seed      int64
}

// Sinusoids generates series where each feature is a sine with a random
// frequency, phase and amplitude around a positive offset, then cuts them
// into windows.
func Sinusoids(cfg SineConfig) (*Dataset, error) {
	if cfg.Series <= 0 || cfg.Length <= 0 || cfg.FeatDim <= 0 {
		return nil, fmt.Errorf("data: invalid sine config %+v", cfg)
	}
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: synthetic data

	series := make([][][]float32, cfg.Series)
	for s := range series {
		freq := make([]float64, cfg.FeatDim)
		phase := make([]float64, cfg.FeatDim)
		amp := make([]float64, cfg.FeatDim)
		for f := range cfg.FeatDim {
			freq[f] = 0.1 + 0.4*rng.Float64()
			phase[f] = 2 * math.Pi * rng.Float64()
			amp[f] = 0.5 + rng.Float64()
		}

		steps := make([][]float32, cfg.Length)
		for t := range steps {
			step := make([]float32, cfg.FeatDim)
			for f := range step {
				v := 2 + amp[f]*math.Sin(freq[f]*float64(t)+phase[f])
				if cfg.Noise > 0 {
					v += cfg.Noise * rng.NormFloat64()
				}
				step[f] = float32(v)
			}
			steps[t] = step
		}
		series[s] = steps
	}
	return FromSeries(series, cfg.EncodeLen, cfg.DecodeLen, cfg.Stride)
}
