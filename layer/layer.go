// Package layer implements parametric layers with explicit forward and
// backward passes. A layer caches what its backward needs during forward and
// exposes parameter gradients as fields once backward has run.
package layer

import (
	"fmt"

	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

// Layer caches copies of whatever its Backward needs, so callers may reuse
// the input buffer once Forward returns.
type Layer interface {
	Forward(x tensor.Tensor) (tensor.Tensor, error)
	Backward(dy tensor.Tensor) (tensor.Tensor, error)
}

// Param pairs a live parameter with its gradient for an external optimiser.
type Param struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

// InputMeta is the shape bookkeeping derived from a rank 2 or rank 4 input.
// A rank 2 input (batch, features) reports Channel = Height = 1 and
// Width = features.
type InputMeta struct {
	Shape   tensor.Shape
	Batch   int
	Channel int
	Height  int
	Width   int
}

func NewInputMeta(x tensor.Tensor) (InputMeta, error) {
	switch x.Rank() {
	case 2:
		return InputMeta{Shape: x.Shape.Clone(), Batch: x.Shape[0], Channel: 1, Height: 1, Width: x.Shape[1]}, nil
	case 4:
		return InputMeta{
			Shape:   x.Shape.Clone(),
			Batch:   x.Shape[0],
			Channel: x.Shape[1],
			Height:  x.Shape[2],
			Width:   x.Shape[3],
		}, nil
	default:
		return InputMeta{}, fmt.Errorf("%w: input must be rank 2 or 4, got %v", tensor.ErrInvalidShape, x.Shape)
	}
}

// Features is the per-sample element count.
func (m InputMeta) Features() int {
	return m.Channel * m.Height * m.Width
}

// WeightMeta reads a rank 2 (in, out) matrix as Patch = Channel = 1,
// Height = in, Width = out, and a rank 4 filter bank as
// (Patch, Channel, Height, Width).
type WeightMeta struct {
	Patch   int
	Channel int
	Height  int
	Width   int
}

func NewWeightMeta(w tensor.Tensor) (WeightMeta, error) {
	switch w.Rank() {
	case 2:
		return WeightMeta{Patch: 1, Channel: 1, Height: w.Shape[0], Width: w.Shape[1]}, nil
	case 4:
		return WeightMeta{Patch: w.Shape[0], Channel: w.Shape[1], Height: w.Shape[2], Width: w.Shape[3]}, nil
	default:
		return WeightMeta{}, fmt.Errorf("%w: weight must be rank 2 or 4, got %v", tensor.ErrInvalidShape, w.Shape)
	}
}

// Base holds the parameter binding and per-call bookkeeping shared by the
// weighted layers.
type Base struct {
	W      tensor.Tensor
	B      tensor.Tensor
	GradW  tensor.Tensor
	GradB  tensor.Tensor
	Weight WeightMeta
	Input  InputMeta

	tracker phase.Tracker
}

func (b *Base) bind(w, bias tensor.Tensor) error {
	meta, err := NewWeightMeta(w)
	if err != nil {
		return err
	}
	b.W = w
	b.B = bias
	b.Weight = meta
	b.GradW = tensor.Tensor{}
	b.GradB = tensor.Tensor{}
	b.Input = InputMeta{}
	b.tracker.Reset()
	return nil
}

func (b *Base) observe(x tensor.Tensor) error {
	meta, err := NewInputMeta(x)
	if err != nil {
		return err
	}
	b.Input = meta
	return nil
}

// State reports whether a backward is pending.
func (b *Base) State() phase.State {
	return b.tracker.State()
}

func (b *Base) Params() []Param {
	return []Param{
		{Name: "weight", Value: &b.W, Grad: &b.GradW},
		{Name: "bias", Value: &b.B, Grad: &b.GradB},
	}
}

func checkBias(bias tensor.Tensor, n int) error {
	if bias.N() != n {
		return fmt.Errorf("%w: bias %v does not hold %d values", tensor.ErrInvalidShape, bias.Shape, n)
	}
	return nil
}
