package activation

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + math32.Exp(-x))
}

type Sigmoid struct {
	tracker phase.Tracker
	y       []float32
}

func NewSigmoid() *Sigmoid {
	return &Sigmoid{}
}

func (s *Sigmoid) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	y := mapTensor(x, sigmoid)
	s.y = y.Data
	s.tracker.Forwarded(y.Shape)
	return y, nil
}

func (s *Sigmoid) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := s.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dx := dy.ZerosLike()
	for i, g := range dy.Data {
		y := s.y[i]
		dx.Data[i] = g * y * (1.0 - y)
	}
	return dx, nil
}

// SoftPlus is log(1+exp(x)); its derivative is the sigmoid of the cached input.
type SoftPlus struct {
	tracker phase.Tracker
	x       []float32
}

func NewSoftPlus() *SoftPlus {
	return &SoftPlus{}
}

func (s *SoftPlus) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	y := mapTensor(x, func(v float32) float32 {
		return math32.Log(1.0 + math32.Exp(v))
	})
	s.x = slices.Clone(x.Data)
	s.tracker.Forwarded(y.Shape)
	return y, nil
}

func (s *SoftPlus) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := s.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dx := dy.ZerosLike()
	for i, g := range dy.Data {
		dx.Data[i] = g * sigmoid(s.x[i])
	}
	return dx, nil
}
