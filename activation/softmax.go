package activation

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

// Softmax normalises a vector, or each row of a matrix, after subtracting the
// maximum. It caches nothing; the paired loss owns the gradient.
func Softmax(x tensor.Tensor) (tensor.Tensor, error) {
	switch x.Rank() {
	case 1:
		y := x.ZerosLike()
		softmaxRow(x.Data, y.Data)
		return y, nil
	case 2:
		y := x.ZerosLike()
		cols := x.Shape[1]
		for r := range x.Shape[0] {
			softmaxRow(x.Data[r*cols:(r+1)*cols], y.Data[r*cols:(r+1)*cols])
		}
		return y, nil
	default:
		return tensor.Tensor{}, fmt.Errorf("%w: softmax expects rank 1 or 2, got %v", tensor.ErrInvalidInput, x.Shape)
	}
}

func softmaxRow(x, y []float32) {
	if len(x) == 0 {
		return
	}
	m := x[0]
	for _, v := range x[1:] {
		m = math32.Max(m, v)
	}
	var sum float32
	for i, v := range x {
		e := math32.Exp(v - m)
		y[i] = e
		sum += e
	}
	for i := range y {
		y[i] /= sum
	}
}
