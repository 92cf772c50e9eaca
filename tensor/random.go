package tensor

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// NewHe draws from N(0, 2/fanIn), where fanIn is the product of every
// dimension after the first for rank 4 filters and the first dimension
// otherwise.
func NewHe(rng *rand.Rand, shape ...int) Tensor {
	t := Zeros(shape...)
	fanIn := 1
	switch {
	case len(shape) == 4:
		fanIn = shape[1] * shape[2] * shape[3]
	case len(shape) >= 1:
		fanIn = shape[0]
	}
	std := math32.Sqrt(2.0 / float32(max(fanIn, 1)))
	for i := range t.Data {
		t.Data[i] = float32(rng.NormFloat64()) * std
	}
	return t
}

func NewUniform(rng *rand.Rand, lo, hi float32, shape ...int) Tensor {
	t := Zeros(shape...)
	for i := range t.Data {
		t.Data[i] = rng.Float32()*(hi-lo) + lo
	}
	return t
}
