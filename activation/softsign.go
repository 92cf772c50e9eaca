package activation

import (
	"github.com/chewxy/math32"
	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

// SoftSign is x/(1+|x|).
type SoftSign struct {
	tracker phase.Tracker
	abs     []float32
}

func NewSoftSign() *SoftSign {
	return &SoftSign{}
}

func (s *SoftSign) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	n := x.N()
	s.abs = make([]float32, n)
	y := x.ZerosLike()
	for i, v := range x.Data {
		a := math32.Abs(v)
		s.abs[i] = a
		y.Data[i] = v / (1.0 + a)
	}
	s.tracker.Forwarded(y.Shape)
	return y, nil
}

func (s *SoftSign) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := s.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dx := dy.ZerosLike()
	for i, g := range dy.Data {
		d := 1.0 + s.abs[i]
		dx.Data[i] = g / (d * d)
	}
	return dx, nil
}
