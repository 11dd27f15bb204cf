package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/backend/cpu"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/optim"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func scalarParam(t *testing.T, backend Backend, name string, v float32) *nn.Parameter[Backend] {
	t.Helper()
	x, err := tensor.FromSlice([]float32{v}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	return nn.NewParameter(name, x)
}

func gradOf(p *nn.Parameter[Backend], g float32) map[*tensor.RawTensor]*tensor.RawTensor {
	raw := tensor.MustRaw(tensor.Shape{1}, tensor.CPU)
	raw.AsFloat32()[0] = g
	return map[*tensor.RawTensor]*tensor.RawTensor{p.Tensor().Raw(): raw}
}

func TestSGD_SimpleUpdate(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := scalarParam(t, backend, "x", 2)

	opt := optim.NewSGD([]*nn.Parameter[Backend]{param}, optim.SGDConfig{LR: 0.1}, backend)
	opt.Step(gradOf(param, 1))

	// 2.0 - 0.1 * 1.0
	assert.InDelta(t, 1.9, param.Tensor().Item(), 1e-6)
	assert.Equal(t, float32(0.1), opt.GetLR())
}

func TestSGD_WithMomentum(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := scalarParam(t, backend, "x", 0)

	opt := optim.NewSGD([]*nn.Parameter[Backend]{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	opt.Step(gradOf(param, 1)) // v=1, x=-0.1
	opt.Step(gradOf(param, 1)) // v=1.9, x=-0.29

	assert.InDelta(t, -0.29, param.Tensor().Item(), 1e-6)
}

func TestSGD_DefaultLR(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := optim.NewSGD[Backend](nil, optim.SGDConfig{}, backend)
	assert.Equal(t, float32(0.01), opt.GetLR())
}

func TestAdam_FirstStep(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := scalarParam(t, backend, "x", 1)

	opt := optim.NewAdam([]*nn.Parameter[Backend]{param}, optim.AdamConfig{LR: 0.01}, backend)
	opt.Step(gradOf(param, 5))

	// After bias correction the first update has magnitude lr regardless of |g|.
	assert.InDelta(t, 0.99, param.Tensor().Item(), 1e-5)
	assert.Equal(t, 1, opt.GetTimestep())
}

func TestOptimizers_SkipFrozenAndMissing(t *testing.T) {
	backend := autodiff.New(cpu.New())
	frozen := scalarParam(t, backend, "frozen", 3)
	frozen.SetTrainable(false)
	absent := scalarParam(t, backend, "absent", 4)

	grads := gradOf(frozen, 1)
	for _, opt := range []optim.Optimizer{
		optim.NewSGD([]*nn.Parameter[Backend]{frozen, absent}, optim.SGDConfig{LR: 0.5}, backend),
		optim.NewAdam([]*nn.Parameter[Backend]{frozen, absent}, optim.AdamConfig{LR: 0.5}, backend),
	} {
		opt.Step(grads)
		assert.Equal(t, float32(3), frozen.Tensor().Item())
		assert.Equal(t, float32(4), absent.Tensor().Item())
	}
}

func TestAdam_MinimizesQuadratic(t *testing.T) {
	backend := autodiff.New(cpu.New())
	w, err := tensor.FromSlice([]float32{4, -3}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	param := nn.NewParameter("w", w)
	opt := optim.NewAdam([]*nn.Parameter[Backend]{param}, optim.AdamConfig{LR: 0.1}, backend)

	tape := backend.Tape()
	for range 300 {
		tape.Clear()
		tape.StartRecording()
		loss := param.Tensor().Square().Sum()
		grads := autodiff.Backward(loss, backend)
		tape.StopRecording()
		opt.Step(grads)
		opt.ZeroGrad()
	}

	for _, v := range param.Tensor().Data() {
		assert.Less(t, math.Abs(float64(v)), 0.1)
	}
}

func TestAdam_StateDictResume(t *testing.T) {
	backend := autodiff.New(cpu.New())
	a := scalarParam(t, backend, "x", 1)
	b := scalarParam(t, backend, "x", 1)

	optA := optim.NewAdam([]*nn.Parameter[Backend]{a}, optim.AdamConfig{LR: 0.01}, backend)
	optA.Step(gradOf(a, 2))
	optA.Step(gradOf(a, -1))

	optB := optim.NewAdam([]*nn.Parameter[Backend]{b}, optim.AdamConfig{LR: 0.01}, backend)
	copy(b.Tensor().Data(), a.Tensor().Data())
	require.NoError(t, optB.LoadStateDict(optA.StateDict()))
	assert.Equal(t, 2, optB.GetTimestep())

	optA.Step(gradOf(a, 0.5))
	optB.Step(gradOf(b, 0.5))
	assert.Equal(t, a.Tensor().Item(), b.Tensor().Item())

	assert.Error(t, optB.LoadStateDict(map[string]*tensor.RawTensor{}))
	assert.Equal(t, "adam", optB.Name())
}

func TestAdam_TimestepExactPastFloat32Range(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := optim.NewAdam[Backend](nil, optim.AdamConfig{}, backend)

	// 2^25 + 3 is not representable as a float32.
	words := tensor.MustRaw(tensor.Shape{2}, tensor.CPU)
	copy(words.AsFloat32(), []float32{2, 3})
	require.NoError(t, opt.LoadStateDict(map[string]*tensor.RawTensor{"t": words}))
	assert.Equal(t, 1<<25+3, opt.GetTimestep())

	again := optim.NewAdam[Backend](nil, optim.AdamConfig{}, backend)
	require.NoError(t, again.LoadStateDict(opt.StateDict()))
	assert.Equal(t, 1<<25+3, again.GetTimestep())
	assert.Equal(t, []float32{2, 3}, opt.StateDict()["t"].AsFloat32())

	bad := tensor.MustRaw(tensor.Shape{3}, tensor.CPU)
	assert.ErrorContains(t, again.LoadStateDict(map[string]*tensor.RawTensor{"t": bad}), "timestep")
}

func TestSGD_StateDictResume(t *testing.T) {
	backend := autodiff.New(cpu.New())
	a := scalarParam(t, backend, "x", 0)
	b := scalarParam(t, backend, "x", 0)
	cfg := optim.SGDConfig{LR: 0.1, Momentum: 0.5}

	optA := optim.NewSGD([]*nn.Parameter[Backend]{a}, cfg, backend)
	optA.Step(gradOf(a, 1))

	optB := optim.NewSGD([]*nn.Parameter[Backend]{b}, cfg, backend)
	copy(b.Tensor().Data(), a.Tensor().Data())
	state := optA.StateDict()
	require.Contains(t, state, "velocity.0")
	require.NoError(t, optB.LoadStateDict(state))

	optA.Step(gradOf(a, 1))
	optB.Step(gradOf(b, 1))
	assert.Equal(t, a.Tensor().Item(), b.Tensor().Item())

	bad := map[string]*tensor.RawTensor{"velocity.0": tensor.MustRaw(tensor.Shape{3}, tensor.CPU)}
	assert.ErrorContains(t, optB.LoadStateDict(bad), "shape mismatch")
}
