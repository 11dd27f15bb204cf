package metrics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestMean_Empty(t *testing.T) {
	m := NewMean("loss")
	assert.Equal(t, "loss", m.Name())
	assert.Equal(t, float32(0), m.Result())
	assert.Equal(t, 0, m.Count())
	assert.True(t, m.Finite())
}

func TestMean_MatchesSampleMean(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := NewMean("kl_loss")

	values := make([]float64, 500)
	for i := range values {
		v := float32(rng.NormFloat64()*3 + 1)
		values[i] = float64(v)
		m.Update(v)
	}

	assert.Equal(t, len(values), m.Count())
	assert.InDelta(t, stat.Mean(values, nil), float64(m.Result()), 1e-5)
}

func TestMean_Reset(t *testing.T) {
	m := NewMean("loss")
	m.Update(10)
	m.Update(20)
	assert.Equal(t, float32(15), m.Result())

	m.Reset()
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, float32(0), m.Result())

	m.Update(4)
	assert.Equal(t, float32(4), m.Result())
}

func TestMean_NonFinite(t *testing.T) {
	m := NewMean("loss")
	m.Update(1)
	m.Update(float32(math.Inf(1)))
	assert.False(t, m.Finite())

	m.Reset()
	assert.True(t, m.Finite())
}

func TestResultsAndResetAll(t *testing.T) {
	a, b := NewMean("a"), NewMean("b")
	a.Update(1)
	b.Update(2)
	b.Update(4)

	assert.Equal(t, map[string]float32{"a": 1, "b": 3}, Results(a, b))

	ResetAll(a, b)
	assert.Equal(t, 0, a.Count()+b.Count())
}
