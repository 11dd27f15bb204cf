package autodiff_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/backend/cpu"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

type backendT = *autodiff.AutodiffBackend[*cpu.CPUBackend]

type scalarFn func(inputs []*tensor.Tensor[backendT]) *tensor.Tensor[backendT]

// checkGradients compares tape gradients of f against central finite differences.
func checkGradients(t *testing.T, f scalarFn, inputs ...*tensor.Tensor[backendT]) {
	t.Helper()
	backend := inputs[0].Backend()
	tape := backend.Tape()

	tape.Clear()
	tape.StartRecording()
	out := f(inputs)
	grads := autodiff.Backward(out, backend)
	tape.StopRecording()
	tape.Clear()

	const eps = 1e-2
	for n, in := range inputs {
		grad, ok := grads[in.Raw()]
		require.Truef(t, ok, "input %d has no gradient", n)
		require.Equal(t, in.Shape(), grad.Shape())

		data := in.Data()
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := f(inputs).Item()
			data[i] = orig - eps
			minus := f(inputs).Item()
			data[i] = orig

			numeric := (plus - minus) / (2 * eps)
			assert.InDeltaf(t, numeric, grad.AsFloat32()[i], 2e-2,
				"input %d element %d", n, i)
		}
	}
}

func randTensor(t *testing.T, backend backendT, rng *rand.Rand, shape ...int) *tensor.Tensor[backendT] {
	t.Helper()
	return tensor.Randn(tensor.Shape(shape), rng, backend)
}

func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	assert.False(t, tape.IsRecording())

	x := tensor.Ones(tensor.Shape{2}, backend)
	x.Add(x)
	assert.Equal(t, 0, tape.NumOps())

	tape.StartRecording()
	x.Add(x).Mul(x)
	assert.Equal(t, 2, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording())
}

func TestBackward_NoRecordingDuringBackward(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	x := tensor.Full(tensor.Shape{3}, 2, backend)
	loss := x.Square().Sum()
	before := tape.NumOps()
	grads := autodiff.Backward(loss, backend)

	assert.Equal(t, before, tape.NumOps())
	assert.True(t, tape.IsRecording())
	assert.Equal(t, []float32{4, 4, 4}, grads[x.Raw()].AsFloat32())
}

func TestBackward_NonScalarPanics(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := tensor.Ones(tensor.Shape{2, 2}, backend)
	assert.Panics(t, func() { autodiff.Backward(x, backend) })
}

func TestBackward_AccumulatesReusedInputs(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	// y = x*x + x  ->  dy/dx = 2x + 1
	y := x.Mul(x).Add(x).Sum()
	grads := autodiff.Backward(y, backend)
	assert.InDelta(t, 7.0, grads[x.Raw()].AsFloat32()[0], 1e-6)
}

func TestBackward_UnusedBranchIgnored(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Ones(tensor.Shape{2}, backend)
	unused := tensor.Ones(tensor.Shape{2}, backend)
	_ = unused.Exp()
	loss := x.MulScalar(3).Sum()

	grads := autodiff.Backward(loss, backend)
	_, ok := grads[unused.Raw()]
	assert.False(t, ok)
	assert.Equal(t, []float32{3, 3}, grads[x.Raw()].AsFloat32())
}

func TestGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name   string
		shapes [][]int
		f      scalarFn
	}{
		{"AddBroadcastRow", [][]int{{3, 4}, {1, 4}}, func(in []*tensor.Tensor[backendT]) *tensor.Tensor[backendT] {
			return in[0].Add(in[1]).Square().Sum()
		}},
		{"SubBroadcastLeading", [][]int{{2, 3}, {3}}, func(in []*tensor.Tensor[backendT]) *tensor.Tensor[backendT] {
			return in[0].Sub(in[1]).Square().Mean()
		}},
		{"MulBroadcastColumn", [][]int{{3, 2}, {3, 1}}, func(in []*tensor.Tensor[backendT]) *tensor.Tensor[backendT] {
			return in[0].Mul(in[1]).Sum()
		}},
		{"MatMul", [][]int{{2, 3}, {3, 4}}, func(in []*tensor.Tensor[backendT]) *tensor.Tensor[backendT] {
			return in[0].MatMul(in[1]).Tanh().Sum()
		}},
		{"TransposeReshape", [][]int{{2, 3, 2}}, func(in []*tensor.Tensor[backendT]) *tensor.Tensor[backendT] {
			w := tensor.Full(tensor.Shape{3, 4}, 0.5, in[0].Backend())
			return in[0].Transpose(0, 2, 1).Reshape(4, 3).Square().Sum().Add(w.Sum())
		}},
		{"ExpScalar", [][]int{{4}}, func(in []*tensor.Tensor[backendT]) *tensor.Tensor[backendT] {
			return in[0].MulScalar(0.5).AddScalar(1).Exp().Mean()
		}},
		{"Sigmoid", [][]int{{2, 2}}, func(in []*tensor.Tensor[backendT]) *tensor.Tensor[backendT] {
			return in[0].Sigmoid().Square().Sum()
		}},
		{"SumDim", [][]int{{2, 3, 4}}, func(in []*tensor.Tensor[backendT]) *tensor.Tensor[backendT] {
			return in[0].SumDim(1, false).Square().SumDim(-1, true).Sum()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := autodiff.New(cpu.New())
			inputs := make([]*tensor.Tensor[backendT], len(tt.shapes))
			for i, s := range tt.shapes {
				inputs[i] = randTensor(t, backend, rng, s...)
			}
			checkGradients(t, tt.f, inputs...)
		})
	}
}

func TestReLUGradientMask(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{-2, -0.5, 0.5, 3}, tensor.Shape{4}, backend)
	require.NoError(t, err)
	grads := autodiff.Backward(x.ReLU().MulScalar(2).Sum(), backend)

	assert.Equal(t, []float32{0, 0, 2, 2}, grads[x.Raw()].AsFloat32())
}

func TestAutodiffBackend_Metadata(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.NotNil(t, backend.Inner())
}
