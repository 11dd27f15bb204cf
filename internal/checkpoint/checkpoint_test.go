package checkpoint_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/backend/cpu"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/checkpoint"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/optim"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae/dense"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newModel(t *testing.T, cfg vae.Config, seed int64, sgd bool) *vae.Model[Backend] {
	t.Helper()
	backend := autodiff.New(cpu.New())
	builder := dense.NewBuilder(backend, 8)
	builder.Rand = rand.New(rand.NewSource(seed))

	m, err := vae.New[Backend](builder, cfg, backend, vae.WithRand(rand.New(rand.NewSource(seed))))
	require.NoError(t, err)
	if sgd {
		m.Compile(optim.NewSGD(m.Parameters(), optim.SGDConfig{LR: 0.05, Momentum: 0.9}, backend))
	} else {
		m.Compile(optim.NewAdam(m.Parameters(), optim.AdamConfig{LR: 0.01}, backend))
	}
	return m
}

func batch(t *testing.T, m *vae.Model[Backend], n int) *tensor.Tensor[Backend] {
	t.Helper()
	cfg := m.Config()
	rng := rand.New(rand.NewSource(7))
	return tensor.Randn(tensor.Shape(cfg.InputShape(n)), rng, m.Backend())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := vae.NewConfig(6, 6, 2, 2)
	m := newModel(t, cfg, 1, false)
	x := batch(t, m, 4)
	for range 3 {
		_, err := m.TrainStep(x, x)
		require.NoError(t, err)
	}

	state := checkpoint.Capture(m, "", 2, 3, 0.5)
	_, err := uuid.Parse(state.RunID)
	require.NoError(t, err, "run id should be a uuid")
	assert.Equal(t, "adam", state.OptimizerType)
	assert.InDelta(t, 0.01, state.LR, 1e-6)

	path := filepath.Join(t.TempDir(), "run.vae")
	require.NoError(t, checkpoint.Save(path, state))

	loaded, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, state.RunID, loaded.RunID)
	assert.Equal(t, 2, loaded.Epoch)
	assert.Equal(t, 3, loaded.Step)
	assert.InDelta(t, 0.5, loaded.Loss, 1e-6)
	assert.Equal(t, cfg, loaded.Config)
	assert.Equal(t, "adam", loaded.OptimizerType)

	require.Len(t, loaded.Params, len(state.Params))
	for k, v := range state.Params {
		require.Contains(t, loaded.Params, k)
		assert.Equal(t, v.AsFloat32(), loaded.Params[k].AsFloat32(), k)
	}
	require.Len(t, loaded.Optimizer, len(state.Optimizer))
	assert.Equal(t, []float32{0, 3}, loaded.Optimizer["t"].AsFloat32())
}

// A restored model holds the same parameters and optimizer buffers as the original.
func TestRestoreResumesIdentically(t *testing.T) {
	for _, sgd := range []bool{false, true} {
		cfg := vae.NewConfig(5, 4, 2, 3)
		original := newModel(t, cfg, 11, sgd)
		x := batch(t, original, 3)
		// Encode and decode lengths differ, so the target has its own shape.
		y := tensor.Randn(tensor.Shape(cfg.OutputShape(3)), rand.New(rand.NewSource(8)), original.Backend())
		for range 2 {
			_, err := original.TrainStep(x, y)
			require.NoError(t, err)
		}

		path := filepath.Join(t.TempDir(), "resume.vae")
		require.NoError(t, checkpoint.Save(path, checkpoint.Capture(original, "run-1", 1, 2, 0)))

		resumed := newModel(t, cfg, 99, sgd)
		state, err := checkpoint.Load(path)
		require.NoError(t, err)
		require.NoError(t, checkpoint.Restore(resumed, state))

		for i, p := range original.Parameters() {
			assert.Equal(t, p.Tensor().Data(), resumed.Parameters()[i].Tensor().Data())
		}

		assert.Equal(t, original.Call(x).Data(), resumed.Call(x).Data())

		want := original.Optimizer().(optim.Stateful).StateDict()
		got := resumed.Optimizer().(optim.Stateful).StateDict()
		require.Len(t, got, len(want))
		for k, v := range want {
			require.Contains(t, got, k)
			assert.Equal(t, v.AsFloat32(), got[k].AsFloat32(), k)
		}
	}
}

func TestRestoreMismatch(t *testing.T) {
	adam := newModel(t, vae.NewConfig(4, 4, 1, 2), 1, false)
	state := checkpoint.Capture(adam, "", 0, 0, 0)

	other := newModel(t, vae.NewConfig(4, 4, 1, 3), 1, false)
	assert.ErrorIs(t, checkpoint.Restore(other, state), checkpoint.ErrConfigMismatch)

	sgd := newModel(t, vae.NewConfig(4, 4, 1, 2), 1, true)
	assert.ErrorIs(t, checkpoint.Restore(sgd, state), checkpoint.ErrOptimizerMismatch)

	delete(state.Params, "decoder.0.weight")
	fresh := newModel(t, vae.NewConfig(4, 4, 1, 2), 1, false)
	err := checkpoint.Restore(fresh, state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoder.0.weight")
}

func TestLoadInvalidFormat(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.vae")
	require.NoError(t, os.WriteFile(garbage, make([]byte, 128), 0o600))
	_, err := checkpoint.Load(garbage)
	assert.ErrorIs(t, err, checkpoint.ErrInvalidFormat)

	m := newModel(t, vae.NewConfig(4, 4, 1, 2), 1, false)
	path := filepath.Join(dir, "ok.vae")
	require.NoError(t, checkpoint.Save(path, checkpoint.Capture(m, "", 0, 0, 0)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0x01
	corrupt := filepath.Join(dir, "corrupt.vae")
	require.NoError(t, os.WriteFile(corrupt, data, 0o600))
	_, err = checkpoint.Load(corrupt)
	assert.ErrorIs(t, err, checkpoint.ErrInvalidFormat)

	_, err = checkpoint.Load(filepath.Join(dir, "missing.vae"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, checkpoint.ErrInvalidFormat)

	assert.Error(t, checkpoint.Save(path, nil))
}
