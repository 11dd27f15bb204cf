package data

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Scaler maps each feature to [0, 1] using the min and max seen in the
// history windows it was fitted on.
type Scaler struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// FitScaler computes per-feature bounds over the X windows of d.
func FitScaler(d *Dataset) *Scaler {
	cols := make([][]float64, d.featDim)
	for f := range cols {
		cols[f] = make([]float64, 0, d.n*d.encodeLen)
	}
	for i, v := range d.x {
		f := i % d.featDim
		cols[f] = append(cols[f], float64(v))
	}

	s := &Scaler{Min: make([]float64, d.featDim), Max: make([]float64, d.featDim)}
	for f, col := range cols {
		s.Min[f] = floats.Min(col)
		s.Max[f] = floats.Max(col)
	}
	return s
}

func (s *Scaler) span(f int) float64 {
	if r := s.Max[f] - s.Min[f]; r > 0 {
		return r
	}
	return 1
}

// Transform scales the X and Y windows of d in place.
func (s *Scaler) Transform(d *Dataset) error {
	if len(s.Min) != d.featDim {
		return fmt.Errorf("data: scaler fitted on %d features, dataset has %d", len(s.Min), d.featDim)
	}
	s.apply(d.x)
	s.apply(d.y)
	return nil
}

func (s *Scaler) apply(values []float32) {
	for i, v := range values {
		f := i % len(s.Min)
		values[i] = float32((float64(v) - s.Min[f]) / s.span(f))
	}
}

// Inverse maps scaled values, laid out with the fitted feature count as the
// last axis, back to the original range in place.
func (s *Scaler) Inverse(values []float32) {
	for i, v := range values {
		f := i % len(s.Min)
		values[i] = float32(float64(v)*s.span(f) + s.Min[f])
	}
}
