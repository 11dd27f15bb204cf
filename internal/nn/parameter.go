package nn

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Parameter represents a tensor owned by a module.
//
// Trainable parameters receive gradients and optimizer updates.
// Non-trainable parameters are counted separately and left untouched
// by training steps.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
//	grad := weight.Grad() // nil before the first backward pass
type Parameter[B tensor.Backend] struct {
	name      string
	tensor    *tensor.Tensor[B]
	grad      *tensor.Tensor[B]
	trainable bool
}

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{
		name:      name,
		tensor:    t,
		trainable: true,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before a backward pass.
func (p *Parameter[B]) Grad() *tensor.Tensor[B] {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[B]) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// Trainable reports whether the parameter is updated by training.
func (p *Parameter[B]) Trainable() bool {
	return p.trainable
}

// SetTrainable freezes (false) or unfreezes (true) the parameter.
func (p *Parameter[B]) SetTrainable(trainable bool) {
	p.trainable = trainable
}

// NumElements returns the number of scalar values held by the parameter.
func (p *Parameter[B]) NumElements() int {
	return p.tensor.NumElements()
}

// CountParameters returns the number of trainable and non-trainable scalars in params.
func CountParameters[B tensor.Backend](params []*Parameter[B]) (trainable, nonTrainable int) {
	for _, p := range params {
		if p.trainable {
			trainable += p.NumElements()
		} else {
			nonTrainable += p.NumElements()
		}
	}
	return trainable, nonTrainable
}

// NamedParameter is a parameter together with its dotted path inside a
// module, e.g. "1.weight" or "z_mean.bias".
type NamedParameter[B tensor.Backend] struct {
	Path  string
	Param *Parameter[B]
}

// Named is implemented by modules that report layer-qualified paths for
// their parameters.
type Named[B tensor.Backend] interface {
	NamedParameters() []NamedParameter[B]
}

// NamedOf returns the named parameters of m. Modules that do not implement
// Named are keyed "<i>.<name>" by position in m.Parameters().
func NamedOf[B tensor.Backend](m interface{ Parameters() []*Parameter[B] }) []NamedParameter[B] {
	if n, ok := m.(Named[B]); ok {
		return n.NamedParameters()
	}
	params := m.Parameters()
	named := make([]NamedParameter[B], len(params))
	for i, p := range params {
		named[i] = NamedParameter[B]{Path: fmt.Sprintf("%d.%s", i, p.name), Param: p}
	}
	return named
}

// StateDict returns the raw tensors of params keyed "<prefix>.<path>".
func StateDict[B tensor.Backend](prefix string, params []NamedParameter[B]) map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor, len(params))
	for _, np := range params {
		state[stateKey(prefix, np.Path)] = np.Param.tensor.Raw()
	}
	return state
}

// LoadStateDict copies values from state into params.
// Every parameter must be present with a matching shape.
func LoadStateDict[B tensor.Backend](prefix string, params []NamedParameter[B], state map[string]*tensor.RawTensor) error {
	for _, np := range params {
		key := stateKey(prefix, np.Path)
		raw, ok := state[key]
		if !ok {
			return fmt.Errorf("missing %s in state dict", key)
		}
		p := np.Param
		if !raw.Shape().Equal(p.tensor.Shape()) {
			return fmt.Errorf("%s shape mismatch: expected %v, got %v", key, p.tensor.Shape(), raw.Shape())
		}
		copy(p.tensor.Data(), raw.AsFloat32())
	}
	return nil
}

// StateKey joins a module prefix and a parameter path.
func StateKey(prefix, path string) string {
	return stateKey(prefix, path)
}

func stateKey(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}
