package layer

import (
	"fmt"
	"slices"

	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Affine is a dense layer Y = X·W + b. Inputs of any rank are flattened to
// (batch, features), and the input gradient is reshaped back.
type Affine struct {
	Base

	x blas32.General
}

// NewAffine takes w of shape (in, out) and b holding out values.
func NewAffine(w, b tensor.Tensor) (*Affine, error) {
	a := &Affine{}
	if err := a.Reconfigure(w, b); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Affine) Reconfigure(w, b tensor.Tensor) error {
	if w.Rank() != 2 {
		return fmt.Errorf("%w: affine weight must be (in, out), got %v", tensor.ErrInvalidShape, w.Shape)
	}
	if err := checkBias(b, w.Shape[1]); err != nil {
		return err
	}
	return a.bind(w, b)
}

func (a *Affine) In() int {
	return a.Weight.Height
}

func (a *Affine) Out() int {
	return a.Weight.Width
}

func (a *Affine) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	meta, err := NewInputMeta(x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if meta.Features() != a.In() {
		return tensor.Tensor{}, fmt.Errorf("%w: input %v has %d features, weight expects %d", tensor.ErrInvalidShape, x.Shape, meta.Features(), a.In())
	}

	xg, err := x.Flatten2D()
	if err != nil {
		return tensor.Tensor{}, err
	}
	wg, err := a.W.General()
	if err != nil {
		return tensor.Tensor{}, err
	}
	y := tensor.Dot(blas.NoTrans, blas.NoTrans, xg, wg)
	for r := range y.Rows {
		row := y.Data[r*y.Stride : r*y.Stride+y.Cols]
		for c, b := range a.B.Data {
			row[c] += b
		}
	}

	a.Input = meta
	a.x = xg
	a.x.Data = slices.Clone(xg.Data)
	out := tensor.FromGeneral(y)
	a.tracker.Forwarded(out.Shape)
	return out, nil
}

func (a *Affine) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := a.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dyg, err := dy.General()
	if err != nil {
		return tensor.Tensor{}, err
	}
	wg, err := a.W.General()
	if err != nil {
		return tensor.Tensor{}, err
	}

	a.GradW = tensor.FromGeneral(tensor.Dot(blas.Trans, blas.NoTrans, a.x, dyg))
	a.GradB = tensor.Tensor{Shape: a.B.Shape.Clone(), Data: tensor.Sum0(dyg)}

	dx := tensor.FromGeneral(tensor.Dot(blas.NoTrans, blas.Trans, dyg, wg))
	return dx.Reshape(a.Input.Shape...)
}
