// Package optimizer applies the parameter gradients that layers leave behind
// after Backward. It is a minimal reference consumer of Params and is not part
// of the layer contract; training loops bring their own.
package optimizer

import (
	"fmt"

	"github.com/kashu98/Simple-Deep-Learning/layer"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

type Optimizer interface {
	Step(params []layer.Param) error
}

func checkParam(p layer.Param) error {
	if p.Value == nil || p.Grad == nil {
		return fmt.Errorf("%w: parameter %q is unbound", tensor.ErrInvalidInput, p.Name)
	}
	if !p.Value.Shape.Equal(p.Grad.Shape) {
		return fmt.Errorf("%w: parameter %q is %v, gradient is %v", tensor.ErrInvalidShape, p.Name, p.Value.Shape, p.Grad.Shape)
	}
	return nil
}

// SGD updates w -= LearningRate*grad.
type SGD struct {
	LearningRate float32
}

func (opt *SGD) Step(params []layer.Param) error {
	for _, p := range params {
		if err := checkParam(p); err != nil {
			return err
		}
	}
	for _, p := range params {
		tensor.Axpy(-opt.LearningRate, *p.Grad, *p.Value)
	}
	return nil
}

// Momentum keeps one velocity per parameter tensor:
// v = Momentum*v - LearningRate*grad, w += v.
type Momentum struct {
	LearningRate float32
	Momentum     float32

	velocity map[*tensor.Tensor]tensor.Tensor
}

func NewMomentum(lr, momentum float32) *Momentum {
	return &Momentum{LearningRate: lr, Momentum: momentum, velocity: map[*tensor.Tensor]tensor.Tensor{}}
}

// Velocity returns the velocity held for value, if any.
func (opt *Momentum) Velocity(value *tensor.Tensor) (tensor.Tensor, bool) {
	v, ok := opt.velocity[value]
	return v, ok
}

func (opt *Momentum) Step(params []layer.Param) error {
	for _, p := range params {
		if err := checkParam(p); err != nil {
			return err
		}
	}
	if opt.velocity == nil {
		opt.velocity = map[*tensor.Tensor]tensor.Tensor{}
	}
	for _, p := range params {
		v, ok := opt.velocity[p.Value]
		// a Reconfigure may have swapped the tensor behind the pointer
		if !ok || !v.Shape.Equal(p.Value.Shape) {
			v = p.Value.ZerosLike()
			opt.velocity[p.Value] = v
		}
		tensor.Scal(opt.Momentum, v)
		tensor.Axpy(-opt.LearningRate, *p.Grad, v)
		tensor.Axpy(1, v, *p.Value)
	}
	return nil
}
