package activation

import (
	"github.com/chewxy/math32"
	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

const (
	SELUAlpha  = 1.67326
	SELULambda = 1.0507
)

type ELUConfig struct {
	Alpha  float32
	Lambda float32
}

// ELU scales the input by Lambda first and then applies
// Alpha*(exp(z)-1) wherever z = Lambda*x <= 0.
type ELU struct {
	Config ELUConfig

	tracker phase.Tracker
	mask    []bool
	y       []float32
	alpha   float32
	lambda  float32
}

func NewELU(alpha float32) *ELU {
	return &ELU{Config: ELUConfig{Alpha: alpha, Lambda: 1.0}}
}

func NewSELU() *ELU {
	return &ELU{Config: ELUConfig{Alpha: SELUAlpha, Lambda: SELULambda}}
}

func (e *ELU) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	e.alpha, e.lambda = e.Config.Alpha, e.Config.Lambda
	e.mask = make([]bool, x.N())
	y := x.ZerosLike()
	for i, v := range x.Data {
		z := e.lambda * v
		if z <= 0 {
			e.mask[i] = true
			y.Data[i] = e.alpha * (math32.Exp(z) - 1.0)
		} else {
			y.Data[i] = z
		}
	}
	e.y = y.Data
	e.tracker.Forwarded(y.Shape)
	return y, nil
}

func (e *ELU) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := e.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dx := dy.ZerosLike()
	for i, g := range dy.Data {
		d := e.lambda * g
		if e.mask[i] {
			d *= e.y[i] + e.alpha
		}
		dx.Data[i] = d
	}
	return dx, nil
}
