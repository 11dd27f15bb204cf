package optim

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/nn"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	θ = θ - lr * ∇θ
//
// With momentum:
//
//	v = momentum * v + ∇θ
//	θ = θ - lr * v
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities map[*nn.Parameter[B]]*tensor.RawTensor
}

// SGDConfig contains configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float32 // Learning rate (default: 0.01)
	Momentum float32 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, _ B) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter[B]]*tensor.RawTensor),
	}
}

// Step performs a single optimization step.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		g := grad.AsFloat32()
		p := param.Tensor().Data()

		if s.momentum == 0 {
			for i := range p {
				p[i] -= s.lr * g[i]
			}
			continue
		}

		velocity, ok := s.velocities[param]
		if !ok {
			velocity = tensor.MustRaw(param.Tensor().Shape(), param.Tensor().Device())
			s.velocities[param] = velocity
		}
		v := velocity.AsFloat32()
		for i := range p {
			v[i] = s.momentum*v[i] + g[i]
			p[i] -= s.lr * v[i]
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD[B]) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (s *SGD[B]) GetLR() float32 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD[B]) SetLR(lr float32) {
	s.lr = lr
}

// Name returns "sgd".
func (s *SGD[B]) Name() string {
	return "sgd"
}

// StateDict returns the velocity buffers keyed "velocity.<i>" by parameter index.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for i, param := range s.params {
		if velocity, ok := s.velocities[param]; ok {
			state[fmt.Sprintf("velocity.%d", i)] = velocity
		}
	}
	return state
}

// LoadStateDict restores velocity buffers saved by StateDict.
func (s *SGD[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	s.velocities = make(map[*nn.Parameter[B]]*tensor.RawTensor)
	for i, param := range s.params {
		velocity := tensor.MustRaw(param.Tensor().Shape(), param.Tensor().Device())
		ok, err := loadBuffer(fmt.Sprintf("velocity.%d", i), velocity, state)
		if err != nil {
			return fmt.Errorf("sgd: %w", err)
		}
		if ok {
			s.velocities[param] = velocity
		}
	}
	return nil
}
