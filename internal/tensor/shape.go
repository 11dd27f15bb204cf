package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
// An empty shape describes a scalar.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Resolve replaces a single -1 dimension with the size needed to hold
// numElements elements.
//
//	Shape{1, -1}.Resolve(30) → [1, 30]
func (s Shape) Resolve(numElements int) (Shape, error) {
	out := s.Clone()
	inferred := -1
	known := 1
	for i, dim := range out {
		switch {
		case dim == -1:
			if inferred >= 0 {
				return nil, fmt.Errorf("only one dimension can be inferred, got %v", s)
			}
			inferred = i
		case dim <= 0:
			return nil, fmt.Errorf("invalid dimension at index %d: %d", i, dim)
		default:
			known *= dim
		}
	}

	if inferred >= 0 {
		if numElements%known != 0 {
			return nil, fmt.Errorf("cannot infer dimension of %v for %d elements", s, numElements)
		}
		out[inferred] = numElements / known
	}

	if out.NumElements() != numElements {
		return nil, fmt.Errorf("shape %v does not hold %d elements", s, numElements)
	}
	return out, nil
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Shapes are compared from the right; dimensions are compatible when equal
// or when one of them is 1. Missing dimensions count as 1.
//
//	(3, 1) + (3, 5) → (3, 5), true, nil
//	(3, 5) + (3, 5) → (3, 5), false, nil
//	(3, 4) + (3, 5) → nil, false, error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)
	needsBroadcast := len(a) != len(b)

	for i := 0; i < maxLen; i++ {
		aDim, bDim := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			aDim = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			bDim = b[idx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

// BroadcastStrides returns strides for reading a tensor of shape s as if it
// had shape out. Broadcast dimensions get stride 0.
// The caller must ensure s broadcasts to out.
func BroadcastStrides(s, out Shape) []int {
	strides := make([]int, len(out))
	src := s.ComputeStrides()
	offset := len(out) - len(s)
	for i := range out {
		j := i - offset
		if j < 0 || s[j] == 1 {
			continue
		}
		strides[i] = src[j]
	}
	return strides
}
