package activation

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

type ArcTan struct {
	tracker phase.Tracker
	x       []float32
}

func NewArcTan() *ArcTan {
	return &ArcTan{}
}

func (a *ArcTan) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	y := mapTensor(x, math32.Atan)
	a.x = slices.Clone(x.Data)
	a.tracker.Forwarded(y.Shape)
	return y, nil
}

func (a *ArcTan) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := a.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dx := dy.ZerosLike()
	for i, g := range dy.Data {
		x := a.x[i]
		dx.Data[i] = g / (1.0 + x*x)
	}
	return dx, nil
}
