// Package activation implements elementwise and row-wise activation functions
// with cached forward state for the matching backward pass.
package activation

import (
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

// Activation caches copies of its inputs; callers may reuse x after Forward.
type Activation interface {
	Forward(x tensor.Tensor) (tensor.Tensor, error)
	Backward(dy tensor.Tensor) (tensor.Tensor, error)
}

func mapTensor(x tensor.Tensor, f func(float32) float32) tensor.Tensor {
	y := x.ZerosLike()
	for i, e := range x.Data {
		y.Data[i] = f(e)
	}
	return y
}
