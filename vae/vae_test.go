// Copyright 2025 The rt-forecasting-var-enc-fcst Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package vae_test

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/backend/cpu"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/optim"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/tensor"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/vae"
)

type Backend = *autodiff.Backend[*cpu.Backend]

func newModel(t *testing.T, cfg vae.Config) *vae.Model[Backend] {
	t.Helper()
	backend := autodiff.New(cpu.New())
	builder := vae.NewDenseBuilder(backend, 16)
	builder.Rand = rand.New(rand.NewSource(1))

	model, err := vae.New[Backend](builder, cfg, backend, vae.WithName("public"), vae.WithRand(rand.New(rand.NewSource(2))))
	require.NoError(t, err)
	model.Compile(optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.01}, backend))
	return model
}

func TestPublicAPI_TrainAndResume(t *testing.T) {
	cfg := vae.NewConfig(6, 3, 2, 2, vae.WithReconstructionWeight(2))
	ds, err := vae.Sinusoids(vae.SineConfig{Series: 2, Length: 30, FeatDim: 2, EncodeLen: 6, DecodeLen: 3, Seed: 3})
	require.NoError(t, err)
	scaler := vae.FitScaler(ds)
	require.NoError(t, scaler.Transform(ds))

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	model := newModel(t, cfg)
	path := filepath.Join(t.TempDir(), "model.vae")
	tr := vae.NewTrainer(model, vae.TrainerConfig{Epochs: 3, BatchSize: 8, CheckpointPath: path}, logger)
	history, err := tr.Fit(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.NoError(t, vae.CheckFinite(history[2].Train.Values()))

	restored := newModel(t, cfg)
	state, err := vae.LoadCheckpoint(path, restored)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Epoch)
	assert.Equal(t, tr.RunID(), state.RunID)

	x, _ := ds.Gather([]int{0, 1})
	xt, err := tensor.FromSlice(x, tensor.Shape{2, 6, 2}, model.Backend())
	require.NoError(t, err)
	assert.Equal(t, model.Call(xt).Data(), restored.Call(xt).Data())

	samples := restored.SamplePrior(5)
	assert.Equal(t, tensor.Shape{5, 3, 2}, samples.Shape())
}

func TestPublicAPI_Errors(t *testing.T) {
	backend := autodiff.New(cpu.New())
	_, err := vae.New[Backend](nil, vae.NewConfig(4, 4, 1, 2), backend)
	assert.ErrorIs(t, err, vae.ErrNilBuilder)

	_, err = vae.New[Backend](vae.NewDenseBuilder(backend), vae.NewConfig(0, 4, 1, 2), backend)
	assert.ErrorIs(t, err, vae.ErrInvalidConfig)

	_, err = vae.LoadCheckpoint(filepath.Join(t.TempDir(), "none.vae"), newModel(t, vae.NewConfig(4, 4, 1, 2)))
	assert.Error(t, err)

	assert.ErrorIs(t, vae.CheckFinite(vae.LossValues{Total: float32(math.Inf(1))}), vae.ErrNonFiniteLoss)
}

func TestPublicPackages_LicenseHeader(t *testing.T) {
	const holder = "// Copyright 2025 The rt-forecasting-var-enc-fcst Authors. All rights reserved.\n"
	files, err := filepath.Glob("../*/*.go")
	require.NoError(t, err)
	more, err := filepath.Glob("../backend/*/*.go")
	require.NoError(t, err)
	files = append(files, more...)

	var checked int
	for _, f := range files {
		src, err := os.ReadFile(f)
		require.NoError(t, err)
		if !strings.HasPrefix(string(src), "// Copyright") {
			continue
		}
		checked++
		assert.True(t, strings.HasPrefix(string(src), holder), "%s: unexpected copyright holder", f)
	}
	assert.NotZero(t, checked)
}
