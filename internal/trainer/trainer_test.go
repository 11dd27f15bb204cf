package trainer_test

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/backend/cpu"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/checkpoint"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/data"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/optim"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/parallel"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/trainer"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/vae/dense"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

const (
	encodeLen = 8
	decodeLen = 4
	featDim   = 2
)

func newModel(t *testing.T, seed int64) *vae.Model[Backend] {
	t.Helper()
	backend := autodiff.New(cpu.New())
	builder := dense.NewBuilder(backend, 16)
	builder.Rand = rand.New(rand.NewSource(seed))

	cfg := vae.NewConfig(encodeLen, decodeLen, featDim, 2, vae.WithReconstructionWeight(1))
	m, err := vae.New[Backend](builder, cfg, backend, vae.WithRand(rand.New(rand.NewSource(seed))))
	require.NoError(t, err)
	m.Compile(optim.NewAdam(m.Parameters(), optim.AdamConfig{LR: 0.01}, backend))
	return m
}

func newDataset(t *testing.T, seed int64) *data.Dataset {
	t.Helper()
	d, err := data.Sinusoids(data.SineConfig{
		Series: 4, Length: 40, FeatDim: featDim,
		EncodeLen: encodeLen, DecodeLen: decodeLen, Stride: 2, Seed: seed,
	})
	require.NoError(t, err)
	return d
}

func newLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func TestFit_ReducesLoss(t *testing.T) {
	train, val := newDataset(t, 1).Split(0.25)
	require.NotNil(t, val)

	logger, hook := newLogger()
	tr := trainer.New(newModel(t, 3), trainer.Config{
		Epochs:     15,
		BatchSize:  16,
		Seed:       7,
		Validation: val,
		Parallel:   parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1},
	}, logger)

	history, err := tr.Fit(context.Background(), train)
	require.NoError(t, err)
	require.Len(t, history, 15)

	stepsPerEpoch := (train.Len() + 15) / 16
	for i, res := range history {
		assert.Equal(t, i+1, res.Epoch)
		assert.Equal(t, stepsPerEpoch, res.Steps)
		require.NotNil(t, res.Validation)
		assert.False(t, math.IsNaN(float64(res.Validation.Loss)))
	}
	assert.Less(t, history[14].Train.Loss, history[0].Train.Loss)
	assert.Equal(t, 15, tr.Epoch())
	assert.Equal(t, 15*stepsPerEpoch, tr.Step())

	var epochLogs int
	for _, e := range hook.AllEntries() {
		if e.Message == "epoch done" {
			epochLogs++
			assert.Contains(t, e.Data, vae.MetricLoss)
			assert.Contains(t, e.Data, "val_loss")
			assert.Equal(t, tr.RunID(), e.Data["run_id"])
		}
	}
	assert.Equal(t, 15, epochLogs)
}

func TestFit_Cancelled(t *testing.T) {
	logger, _ := newLogger()
	tr := trainer.New(newModel(t, 1), trainer.Config{Epochs: 3, BatchSize: 8}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	history, err := tr.Fit(ctx, newDataset(t, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, history)
	assert.Zero(t, tr.Step())
}

func TestFit_NonFiniteLossAborts(t *testing.T) {
	d := newDataset(t, 2)
	_, y := d.Window(0)
	y[0] = float32(math.NaN())

	logger, _ := newLogger()
	tr := trainer.New(newModel(t, 1), trainer.Config{Epochs: 2, BatchSize: d.Len(), NoShuffle: true}, logger)
	history, err := tr.Fit(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, vae.ErrNonFiniteLoss)
	assert.Empty(t, history)
}

func TestFit_TraceLogsRunningMetrics(t *testing.T) {
	d := newDataset(t, 3)
	logger, hook := newLogger()
	logger.SetLevel(logrus.TraceLevel)

	tr := trainer.New(newModel(t, 2), trainer.Config{Epochs: 1, BatchSize: 16, NoShuffle: true}, logger)
	history, err := tr.Fit(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, history, 1)

	var last *logrus.Entry
	var steps int
	for _, e := range hook.AllEntries() {
		if e.Message == "train step" {
			steps++
			last = e
		}
	}
	require.NotNil(t, last)
	assert.Equal(t, history[0].Steps, steps)
	assert.Equal(t, history[0].Train.Loss, last.Data[vae.MetricLoss])
	assert.Equal(t, history[0].Train.ReconstructionLoss, last.Data[vae.MetricReconstructionLoss])
	assert.Equal(t, history[0].Train.KLLoss, last.Data[vae.MetricKLLoss])
	assert.Equal(t, tr.Step(), last.Data["step"])
}

func TestEvaluate_NonFiniteLoss(t *testing.T) {
	d := newDataset(t, 4)
	_, y := d.Window(1)
	y[0] = float32(math.Inf(1))

	tr := trainer.New(newModel(t, 1), trainer.Config{Epochs: 1, BatchSize: 8}, nil)
	_, err := tr.Evaluate(context.Background(), d)
	require.ErrorIs(t, err, vae.ErrNonFiniteLoss)
	assert.Contains(t, err.Error(), vae.MetricLoss+" = ")
}

func TestFit_DatasetMismatch(t *testing.T) {
	d, err := data.Sinusoids(data.SineConfig{
		Series: 1, Length: 20, FeatDim: 3, EncodeLen: encodeLen, DecodeLen: decodeLen,
	})
	require.NoError(t, err)

	tr := trainer.New(newModel(t, 1), trainer.Config{Epochs: 1}, nil)
	_, err = tr.Fit(context.Background(), d)
	assert.ErrorIs(t, err, trainer.ErrDatasetMismatch)

	tr = trainer.New(newModel(t, 1), trainer.Config{Epochs: 1, Validation: d}, nil)
	_, err = tr.Fit(context.Background(), newDataset(t, 1))
	assert.ErrorIs(t, err, trainer.ErrDatasetMismatch)
}

func TestEvaluate_LeavesParameters(t *testing.T) {
	m := newModel(t, 5)
	before := make([][]float32, 0)
	for _, p := range m.Parameters() {
		before = append(before, append([]float32(nil), p.Tensor().Data()...))
	}

	tr := trainer.New(m, trainer.Config{BatchSize: 5}, nil)
	res, err := tr.Evaluate(context.Background(), newDataset(t, 3))
	require.NoError(t, err)
	assert.Greater(t, res.Loss, float32(0))

	for i, p := range m.Parameters() {
		assert.Equal(t, before[i], p.Tensor().Data())
	}
}

func TestFit_CheckpointAndResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt", "run.vae")
	d := newDataset(t, 4)
	logger, _ := newLogger()

	first := trainer.New(newModel(t, 1), trainer.Config{
		Epochs: 2, BatchSize: 16, Seed: 1, CheckpointPath: path, CheckpointEvery: 5,
	}, logger)
	_, err := first.Fit(context.Background(), d)
	require.NoError(t, err)

	// CheckpointEvery exceeds Epochs, so only the final epoch is saved.
	state, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Epoch)
	assert.Equal(t, first.Step(), state.Step)
	assert.Equal(t, first.RunID(), state.RunID)
	assert.Equal(t, "adam", state.OptimizerType)

	resumedModel := newModel(t, 42)
	second := trainer.New(resumedModel, trainer.Config{
		Epochs: 3, BatchSize: 16, Seed: 1, CheckpointPath: path,
	}, logger)
	require.NoError(t, second.Resume(path))
	assert.Equal(t, first.RunID(), second.RunID())
	assert.Equal(t, 2, second.Epoch())

	history, err := second.Fit(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].Epoch)
	assert.Equal(t, first.Step()+history[0].Steps, second.Step())

	state, err = checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Epoch)

	assert.Error(t, second.Resume(filepath.Join(t.TempDir(), "missing.vae")))
}
