package optim

import (
	"fmt"
	"math"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = β₁ * m_{t-1} + (1 - β₁) * g_t
//	v_t = β₂ * v_{t-1} + (1 - β₂) * g_t²
//	m̂_t = m_t / (1 - β₁^t)
//	v̂_t = v_t / (1 - β₂^t)
//	θ_t = θ_{t-1} - α * m̂_t / (√v̂_t + ε)
//
// Reference: Kingma & Ba (2014), "Adam: A Method for Stochastic Optimization"
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	t      int
	m      map[*nn.Parameter[B]]*tensor.RawTensor
	v      map[*nn.Parameter[B]]*tensor.RawTensor
}

// AdamConfig contains configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer. Zero config fields take their defaults.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, _ B) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*nn.Parameter[B]]*tensor.RawTensor),
		v:      make(map[*nn.Parameter[B]]*tensor.RawTensor),
	}
}

// Step performs a single optimization step.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, param := range a.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		m, ok := a.m[param]
		if !ok {
			m = tensor.MustRaw(param.Tensor().Shape(), param.Tensor().Device())
			a.m[param] = m
		}
		v, ok := a.v[param]
		if !ok {
			v = tensor.MustRaw(param.Tensor().Shape(), param.Tensor().Device())
			a.v[param] = v
		}

		g, md, vd := grad.AsFloat32(), m.AsFloat32(), v.AsFloat32()
		p := param.Tensor().Data()
		for i := range p {
			md[i] = a.beta1*md[i] + (1-a.beta1)*g[i]
			vd[i] = a.beta2*vd[i] + (1-a.beta2)*g[i]*g[i]

			mHat := md[i] / biasCorrection1
			vHat := vd[i] / biasCorrection2

			p[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) {
	a.lr = lr
}

// GetTimestep returns the number of steps taken.
func (a *Adam[B]) GetTimestep() int {
	return a.t
}

// Name returns "adam".
func (a *Adam[B]) Name() string {
	return "adam"
}

// float32 holds integers exactly up to 2^24.
const (
	timestepBits = 24
	timestepMask = 1<<timestepBits - 1
)

// StateDict returns the moment buffers ("m.<i>", "v.<i>") and timestep ("t").
// The timestep is stored as two float32 words [t>>24, t&(1<<24-1)] so it
// stays exact past 2^24 steps.
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	state := map[string]*tensor.RawTensor{
		"t": rawOf(float32(a.t>>timestepBits), float32(a.t&timestepMask)),
	}
	for i, param := range a.params {
		if m, ok := a.m[param]; ok {
			state[fmt.Sprintf("m.%d", i)] = m
		}
		if v, ok := a.v[param]; ok {
			state[fmt.Sprintf("v.%d", i)] = v
		}
	}
	return state
}

// LoadStateDict restores state saved by StateDict.
func (a *Adam[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	t, ok := state["t"]
	if !ok {
		return fmt.Errorf("adam: missing timestep in state dict")
	}
	switch words := t.AsFloat32(); len(words) {
	case 1:
		a.t = int(words[0])
	case 2:
		a.t = int(words[0])<<timestepBits | int(words[1])
	default:
		return fmt.Errorf("adam: timestep has %d elements, expected 2", len(words))
	}

	a.m = make(map[*nn.Parameter[B]]*tensor.RawTensor)
	a.v = make(map[*nn.Parameter[B]]*tensor.RawTensor)
	for i, param := range a.params {
		shape, device := param.Tensor().Shape(), param.Tensor().Device()

		m := tensor.MustRaw(shape, device)
		found, err := loadBuffer(fmt.Sprintf("m.%d", i), m, state)
		if err != nil {
			return fmt.Errorf("adam: %w", err)
		}
		if found {
			a.m[param] = m
		}

		v := tensor.MustRaw(shape, device)
		found, err = loadBuffer(fmt.Sprintf("v.%d", i), v, state)
		if err != nil {
			return fmt.Errorf("adam: %w", err)
		}
		if found {
			a.v[param] = v
		}
	}
	return nil
}
