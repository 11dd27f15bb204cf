package nn

import (
	"fmt"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(8, 16, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(16, 4, backend),
//	)
//	output := model.Forward(input)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns the parameters of all modules, in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// NamedParameters implements Named. Paths are "<layer>.<name>", where layer
// is the index of the module in the sequence, so a Linear at position 1
// yields "1.weight" and "1.bias".
func (s *Sequential[B]) NamedParameters() []NamedParameter[B] {
	var named []NamedParameter[B]
	for i, module := range s.modules {
		if n, ok := module.(Named[B]); ok {
			for _, np := range n.NamedParameters() {
				named = append(named, NamedParameter[B]{Path: fmt.Sprintf("%d.%s", i, np.Path), Param: np.Param})
			}
			continue
		}
		for _, p := range module.Parameters() {
			named = append(named, NamedParameter[B]{Path: fmt.Sprintf("%d.%s", i, p.Name()), Param: p})
		}
	}
	return named
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Layers returns the contained modules.
func (s *Sequential[B]) Layers() []Module[B] {
	return s.modules
}
