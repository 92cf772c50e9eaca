package activation

import (
	"github.com/chewxy/math32"
	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

// Tanh evaluates 2/(1+exp(-2x)-1), which reduces to 2*exp(2x) and is not the
// hyperbolic tangent. Backward uses dY*(1-Y²), the tanh identity, so the pair
// is not a consistent derivative either. Both are kept as they are until the
// intended semantics are confirmed.
type Tanh struct {
	tracker phase.Tracker
	y       []float32
}

func NewTanh() *Tanh {
	return &Tanh{}
}

func (t *Tanh) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	y := mapTensor(x, func(v float32) float32 {
		return 2.0 / (1.0 + math32.Exp(-2*v) - 1.0)
	})
	t.y = y.Data
	t.tracker.Forwarded(y.Shape)
	return y, nil
}

func (t *Tanh) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := t.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dx := dy.ZerosLike()
	for i, g := range dy.Data {
		y := t.y[i]
		dx.Data[i] = g * (1.0 - y*y)
	}
	return dx, nil
}
