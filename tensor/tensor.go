package tensor

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/blas/blas32"
)

var (
	ErrInvalidShape = errors.New("invalid shape")
	ErrInvalidInput = errors.New("invalid input")
)

type Shape []int

func (s Shape) N() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Tensor is a dense row-major float32 array. Rank is read off Shape on every
// call, so the same type carries (batch, features) and
// (batch, channel, height, width) data.
type Tensor struct {
	Shape Shape
	Data  []float32
}

func Zeros(shape ...int) Tensor {
	s := Shape(shape).Clone()
	return Tensor{Shape: s, Data: make([]float32, s.N())}
}

func Full(v float32, shape ...int) Tensor {
	t := Zeros(shape...)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

func FromSlice(data []float32, shape ...int) (Tensor, error) {
	s := Shape(shape).Clone()
	if s.N() != len(data) {
		return Tensor{}, fmt.Errorf("%w: %d elements cannot fill %v", ErrInvalidShape, len(data), s)
	}
	return Tensor{Shape: s, Data: data}, nil
}

func (t Tensor) Rank() int {
	return len(t.Shape)
}

func (t Tensor) N() int {
	return len(t.Data)
}

func (t Tensor) Clone() Tensor {
	return Tensor{Shape: t.Shape.Clone(), Data: slices.Clone(t.Data)}
}

func (t Tensor) ZerosLike() Tensor {
	return Zeros(t.Shape...)
}

// At returns the element at the given multi-index.
func (t Tensor) At(idx ...int) float32 {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(t.Shape)))
	}
	flat := 0
	for i, v := range idx {
		flat = flat*t.Shape[i] + v
	}
	return t.Data[flat]
}

// Reshape returns a view over the same storage. At most one dimension may be
// -1 and is inferred.
func (t Tensor) Reshape(shape ...int) (Tensor, error) {
	s := Shape(shape).Clone()
	infer := -1
	known := 1
	for i, d := range s {
		switch {
		case d == -1 && infer == -1:
			infer = i
		case d <= 0:
			return Tensor{}, fmt.Errorf("%w: cannot reshape %v to %v", ErrInvalidShape, t.Shape, Shape(shape))
		default:
			known *= d
		}
	}
	if infer >= 0 {
		if known == 0 || t.N()%known != 0 {
			return Tensor{}, fmt.Errorf("%w: cannot reshape %v to %v", ErrInvalidShape, t.Shape, Shape(shape))
		}
		s[infer] = t.N() / known
	}
	if s.N() != t.N() {
		return Tensor{}, fmt.Errorf("%w: cannot reshape %v to %v", ErrInvalidShape, t.Shape, Shape(shape))
	}
	return Tensor{Shape: s, Data: t.Data}, nil
}

// Flatten2D views t as a (shape[0], N/shape[0]) matrix sharing storage.
func (t Tensor) Flatten2D() (blas32.General, error) {
	if t.Rank() < 1 || t.Shape[0] <= 0 {
		return blas32.General{}, fmt.Errorf("%w: cannot flatten %v", ErrInvalidShape, t.Shape)
	}
	rows := t.Shape[0]
	cols := t.N() / rows
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: t.Data}, nil
}

// General views a rank-2 tensor as a blas32 matrix sharing storage.
func (t Tensor) General() (blas32.General, error) {
	if t.Rank() != 2 {
		return blas32.General{}, fmt.Errorf("%w: want rank 2, got %v", ErrInvalidShape, t.Shape)
	}
	return blas32.General{Rows: t.Shape[0], Cols: t.Shape[1], Stride: t.Shape[1], Data: t.Data}, nil
}

// D4 views a rank-4 tensor with explicit strides, sharing storage.
func (t Tensor) D4() (D4, error) {
	if t.Rank() != 4 {
		return D4{}, fmt.Errorf("%w: want rank 4, got %v", ErrInvalidShape, t.Shape)
	}
	d := newD4Header(t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3])
	d.Data = t.Data
	return d, nil
}

// FromGeneral wraps a blas32 matrix. A padded stride is compacted.
func FromGeneral(g blas32.General) Tensor {
	if g.Stride == g.Cols {
		return Tensor{Shape: Shape{g.Rows, g.Cols}, Data: g.Data[:g.Rows*g.Cols]}
	}
	data := make([]float32, g.Rows*g.Cols)
	for r := range g.Rows {
		copy(data[r*g.Cols:(r+1)*g.Cols], g.Data[r*g.Stride:r*g.Stride+g.Cols])
	}
	return Tensor{Shape: Shape{g.Rows, g.Cols}, Data: data}
}

func FromD4(d D4) Tensor {
	return Tensor{Shape: Shape{d.Batches, d.Channels, d.Rows, d.Cols}, Data: d.Data}
}
