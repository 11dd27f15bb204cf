// Package parallel provides the chunked parallel loops used by the CPU backend
// and the trainer's batch preparation.
package parallel

import (
	"context"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig sizes the worker pool by physical cores.
// Hyper-threads add little to float32 streaming loops, so logical cores are
// only used when cpuid cannot report physical ones.
func DefaultConfig() Config {
	n := cpuid.CPU.PhysicalCores
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4096,
	}
}

// Sequential returns a Config that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// ForRange splits [0, n) into contiguous chunks and calls f(start, end) for
// each one. Chunks never overlap, so f may write to disjoint output ranges
// without locking.
func ForRange(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < 2*cfg.MinChunkSize {
		f(0, n)
		return
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	for start := 0; start < n; start += chunkSize {
		s, e := start, min(start+chunkSize, n)
		g.Go(func() error {
			f(s, e)
			return nil
		})
	}
	_ = g.Wait() // workers never fail
}

// Map runs f(ctx, i) for i in [0, n) on at most cfg.NumWorkers goroutines.
// The first error cancels ctx for the remaining calls and is returned.
func Map(parent context.Context, n int, f func(ctx context.Context, i int) error, cfg Config) error {
	g, ctx := errgroup.WithContext(parent)
	limit := cfg.NumWorkers
	if !cfg.Enabled || limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return f(ctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return parent.Err()
}
