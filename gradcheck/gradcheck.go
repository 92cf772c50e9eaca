// Package gradcheck estimates gradients of forward passes with central finite
// differences, as an oracle for analytic backward passes.
package gradcheck

import (
	"fmt"
	"math"

	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

const DefaultStep = 1e-2

type Settings struct {
	Step float64
}

func (s Settings) fd() *fd.Settings {
	step := s.Step
	if step == 0 {
		step = DefaultStep
	}
	return &fd.Settings{Formula: fd.Central, Step: step}
}

type ForwardFunc func(tensor.Tensor) (tensor.Tensor, error)

// Param estimates dL/dθ for the scalar L = Σ forward()·dy, where θ is data and
// forward reads data through whatever holds it. data is restored afterwards.
func Param(data []float32, dy tensor.Tensor, forward func() (tensor.Tensor, error), s Settings) ([]float32, error) {
	origin := make([]float64, len(data))
	for i, v := range data {
		origin[i] = float64(v)
	}
	defer func() {
		for i, v := range origin {
			data[i] = float32(v)
		}
	}()

	var ferr error
	loss := func(theta []float64) float64 {
		for i, v := range theta {
			data[i] = float32(v)
		}
		y, err := forward()
		if err != nil {
			ferr = err
			return math.NaN()
		}
		if !y.Shape.Equal(dy.Shape) {
			ferr = fmt.Errorf("%w: output %v, gradient %v", tensor.ErrInvalidShape, y.Shape, dy.Shape)
			return math.NaN()
		}
		var sum float64
		for i, v := range y.Data {
			sum += float64(v) * float64(dy.Data[i])
		}
		return sum
	}

	grad := fd.Gradient(nil, loss, origin, s.fd())
	if ferr != nil {
		return nil, ferr
	}
	out := make([]float32, len(grad))
	for i, g := range grad {
		out[i] = float32(g)
	}
	return out, nil
}

// Input estimates dL/dx for L = Σ forward(x)·dy. x is left unchanged.
func Input(forward ForwardFunc, x, dy tensor.Tensor, s Settings) (tensor.Tensor, error) {
	probe := x.Clone()
	grad, err := Param(probe.Data, dy, func() (tensor.Tensor, error) {
		return forward(probe)
	}, s)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.Tensor{Shape: x.Shape.Clone(), Data: grad}, nil
}

// Jacobian returns the (len(y), len(x)) matrix dy/dx of forward at x.
func Jacobian(forward ForwardFunc, x tensor.Tensor, s Settings) (*mat.Dense, error) {
	y, err := forward(x)
	if err != nil {
		return nil, err
	}
	probe := x.Clone()
	var ferr error
	f := func(dst, theta []float64) {
		for i, v := range theta {
			probe.Data[i] = float32(v)
		}
		out, err := forward(probe)
		if err != nil {
			ferr = err
			return
		}
		for i, v := range out.Data {
			dst[i] = float64(v)
		}
	}
	origin := make([]float64, x.N())
	for i, v := range x.Data {
		origin[i] = float64(v)
	}

	jac := mat.NewDense(y.N(), x.N(), nil)
	settings := s.fd()
	fd.Jacobian(jac, f, origin, &fd.JacobianSettings{Formula: settings.Formula, Step: settings.Step})
	if ferr != nil {
		return nil, ferr
	}
	return jac, nil
}

// MaxAbsDiff is the largest elementwise |a-b|; +Inf when lengths differ.
func MaxAbsDiff(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var m float64
	for i := range a {
		m = math.Max(m, math.Abs(float64(a[i])-float64(b[i])))
	}
	return m
}
