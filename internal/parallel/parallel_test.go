package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForRange_Sequential(t *testing.T) {
	var calls [][2]int
	ForRange(100, func(start, end int) {
		calls = append(calls, [2]int{start, end})
	}, Sequential())

	assert.Equal(t, [][2]int{{0, 100}}, calls)
}

func TestForRange_CoversEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}
	n := 1003
	seen := make([]int32, n)

	ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
	}, cfg)

	for i, c := range seen {
		require.Equal(t, int32(1), c, "index %d visited %d times", i, c)
	}
}

func TestForRange_Empty(t *testing.T) {
	called := false
	ForRange(0, func(_, _ int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestMap(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}
	out := make([]int, 20)

	err := Map(context.Background(), len(out), func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	}, cfg)
	require.NoError(t, err)

	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestMap_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := Map(context.Background(), 10, func(_ context.Context, i int) error {
		if i == 3 {
			return boom
		}
		return nil
	}, DefaultConfig())

	assert.ErrorIs(t, err, boom)
}

func TestMap_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	err := Map(ctx, 10, func(_ context.Context, _ int) error {
		atomic.AddInt64(&calls, 1)
		return nil
	}, Sequential())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func BenchmarkForRange(b *testing.B) {
	cfg := DefaultConfig()
	data := make([]float32, 1<<20)

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			ForRange(len(data), func(s, e int) {
				for j := s; j < e; j++ {
					data[j] = data[j]*0.5 + 1
				}
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			ForRange(len(data), func(s, e int) {
				for j := s; j < e; j++ {
					data[j] = data[j]*0.5 + 1
				}
			}, Sequential())
		}
	})
}
