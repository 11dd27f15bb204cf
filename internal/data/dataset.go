// Package data holds in-memory forecasting windows and batches them for
// training.
//
// A window pairs a history X of encode_len steps with a target Y of
// decode_len steps. Both are stored flat in row-major order:
// X is [n, encode_len, feat_dim] and Y is [n, decode_len, feat_dim].
package data

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrEmpty is returned when a dataset would contain no windows.
var ErrEmpty = errors.New("data: empty dataset")

// Dataset is a fixed set of (X, Y) windows.
type Dataset struct {
	x, y      []float32
	n         int
	encodeLen int
	decodeLen int
	featDim   int
}

// New wraps flat X and Y buffers. The slices are used without copying.
func New(x, y []float32, n, encodeLen, decodeLen, featDim int) (*Dataset, error) {
	if n <= 0 {
		return nil, ErrEmpty
	}
	if encodeLen <= 0 || decodeLen <= 0 || featDim <= 0 {
		return nil, fmt.Errorf("data: invalid window dims encode_len=%d decode_len=%d feat_dim=%d",
			encodeLen, decodeLen, featDim)
	}
	if len(x) != n*encodeLen*featDim {
		return nil, fmt.Errorf("data: x has %d values, want %d", len(x), n*encodeLen*featDim)
	}
	if len(y) != n*decodeLen*featDim {
		return nil, fmt.Errorf("data: y has %d values, want %d", len(y), n*decodeLen*featDim)
	}
	return &Dataset{x: x, y: y, n: n, encodeLen: encodeLen, decodeLen: decodeLen, featDim: featDim}, nil
}

// Len returns the number of windows.
func (d *Dataset) Len() int { return d.n }

// EncodeLen returns the history length.
func (d *Dataset) EncodeLen() int { return d.encodeLen }

// DecodeLen returns the target length.
func (d *Dataset) DecodeLen() int { return d.decodeLen }

// FeatDim returns the number of features per step.
func (d *Dataset) FeatDim() int { return d.featDim }

func (d *Dataset) xStride() int { return d.encodeLen * d.featDim }
func (d *Dataset) yStride() int { return d.decodeLen * d.featDim }

// Window returns views of window i. The slices alias the dataset.
func (d *Dataset) Window(i int) (x, y []float32) {
	if i < 0 || i >= d.n {
		panic(fmt.Sprintf("Window: index %d out of range [0, %d)", i, d.n))
	}
	xs, ys := d.xStride(), d.yStride()
	return d.x[i*xs : (i+1)*xs], d.y[i*ys : (i+1)*ys]
}

// Gather copies the windows at idx into fresh X and Y buffers laid out
// as [len(idx), encode_len, feat_dim] and [len(idx), decode_len, feat_dim].
func (d *Dataset) Gather(idx []int) (x, y []float32) {
	x = make([]float32, 0, len(idx)*d.xStride())
	y = make([]float32, 0, len(idx)*d.yStride())
	for _, i := range idx {
		wx, wy := d.Window(i)
		x = append(x, wx...)
		y = append(y, wy...)
	}
	return x, y
}

// Split returns the first (1-valFraction) of the windows as train and the
// rest as validation. val is nil when the fraction rounds to zero windows.
func (d *Dataset) Split(valFraction float64) (train, val *Dataset) {
	if valFraction <= 0 || valFraction >= 1 {
		return d, nil
	}
	nVal := int(float64(d.n) * valFraction)
	if nVal == 0 || nVal == d.n {
		return d, nil
	}
	nTrain := d.n - nVal
	xs, ys := d.xStride(), d.yStride()
	train = &Dataset{
		x: d.x[:nTrain*xs], y: d.y[:nTrain*ys], n: nTrain,
		encodeLen: d.encodeLen, decodeLen: d.decodeLen, featDim: d.featDim,
	}
	val = &Dataset{
		x: d.x[nTrain*xs:], y: d.y[nTrain*ys:], n: nVal,
		encodeLen: d.encodeLen, decodeLen: d.decodeLen, featDim: d.featDim,
	}
	return train, val
}

// Batches partitions the window indices into batches of at most size.
// With a non-nil rng the order is shuffled; the same seed always yields
// the same batches. The last batch may be smaller.
func (d *Dataset) Batches(size int, rng *rand.Rand) [][]int {
	if size <= 0 {
		panic(fmt.Sprintf("Batches: size must be positive, got %d", size))
	}
	order := make([]int, d.n)
	for i := range order {
		order[i] = i
	}
	if rng != nil {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	batches := make([][]int, 0, (d.n+size-1)/size)
	for start := 0; start < d.n; start += size {
		batches = append(batches, order[start:min(start+size, d.n)])
	}
	return batches
}
