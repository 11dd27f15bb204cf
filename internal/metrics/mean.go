// Package metrics provides running-mean loss trackers.
//
// A tracker reports the mean of every value passed to Update since the
// last Reset. Trackers are not safe for concurrent use; the training
// step controller is their only writer.
package metrics

import "math"

// Mean is a named running-mean accumulator.
type Mean struct {
	name  string
	total float64
	count int
}

// NewMean creates an empty tracker.
func NewMean(name string) *Mean {
	return &Mean{name: name}
}

// Name returns the tracker name, e.g. "reconstruction_loss".
func (m *Mean) Name() string {
	return m.name
}

// Update adds one observation.
func (m *Mean) Update(value float32) {
	m.total += float64(value)
	m.count++
}

// Result returns the running mean, or 0 if no value has been recorded.
// A non-finite observation makes the result non-finite until Reset.
func (m *Mean) Result() float32 {
	if m.count == 0 {
		return 0
	}
	return float32(m.total / float64(m.count))
}

// Reset discards all observations.
func (m *Mean) Reset() {
	m.total = 0
	m.count = 0
}

// Count returns the number of observations since the last Reset.
func (m *Mean) Count() int {
	return m.count
}

// Finite reports whether the running mean is a finite number.
func (m *Mean) Finite() bool {
	r := float64(m.Result())
	return !math.IsNaN(r) && !math.IsInf(r, 0)
}

// Results returns the running means of ms keyed by tracker name.
func Results(ms ...*Mean) map[string]float32 {
	out := make(map[string]float32, len(ms))
	for _, m := range ms {
		out[m.name] = m.Result()
	}
	return out
}

// ResetAll resets every tracker in ms.
func ResetAll(ms ...*Mean) {
	for _, m := range ms {
		m.Reset()
	}
}
