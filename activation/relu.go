package activation

import (
	"slices"

	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

const LeakyAlpha = 0.01

type ReLUConfig struct {
	Alpha float32
}

// ReLU returns x for x > 0 and Alpha*x otherwise. Alpha = 0 is the plain
// rectifier, 0.01 the leaky one, and any other value the parametric one.
type ReLU struct {
	Config ReLUConfig

	// GradAlpha is dL/dAlpha, filled by Backward.
	GradAlpha float32

	tracker phase.Tracker
	mask    []bool
	x       []float32
	alpha   float32
}

func NewReLU() *ReLU {
	return &ReLU{}
}

func NewLReLU() *ReLU {
	return &ReLU{Config: ReLUConfig{Alpha: LeakyAlpha}}
}

func NewPReLU(alpha float32) *ReLU {
	return &ReLU{Config: ReLUConfig{Alpha: alpha}}
}

func (r *ReLU) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	r.alpha = r.Config.Alpha
	r.x = slices.Clone(x.Data)
	r.mask = make([]bool, x.N())
	y := x.ZerosLike()
	for i, e := range x.Data {
		if e <= 0 {
			r.mask[i] = true
			y.Data[i] = r.alpha * e
		} else {
			y.Data[i] = e
		}
	}
	r.tracker.Forwarded(y.Shape)
	return y, nil
}

func (r *ReLU) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := r.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dx := dy.ZerosLike()
	var gradAlpha float32
	for i, g := range dy.Data {
		if r.mask[i] {
			dx.Data[i] = r.alpha * g
			gradAlpha += g * r.x[i]
		} else {
			dx.Data[i] = g
		}
	}
	r.GradAlpha = gradAlpha
	return dx, nil
}
