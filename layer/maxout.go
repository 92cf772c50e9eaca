package layer

import (
	"fmt"
	"slices"

	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Maxout computes PoolSize affine pieces per output feature and keeps the
// largest. The weight is (in, pool, out) and the bias (pool, out).
type Maxout struct {
	W     tensor.Tensor
	B     tensor.Tensor
	GradW tensor.Tensor
	GradB tensor.Tensor
	Input InputMeta

	tracker phase.Tracker
	x       blas32.General
	// argmax holds the winning pool slot per (batch, out).
	argmax []int
}

func NewMaxout(w, b tensor.Tensor) (*Maxout, error) {
	m := &Maxout{}
	if err := m.Reconfigure(w, b); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Maxout) Reconfigure(w, b tensor.Tensor) error {
	if w.Rank() != 3 {
		return fmt.Errorf("%w: maxout weight must be (in, pool, out), got %v", tensor.ErrInvalidShape, w.Shape)
	}
	if w.Shape.N() == 0 {
		return fmt.Errorf("%w: maxout weight %v is empty", tensor.ErrInvalidShape, w.Shape)
	}
	if b.N() != w.Shape[1]*w.Shape[2] {
		return fmt.Errorf("%w: maxout bias %v does not match (pool, out) = (%d, %d)", tensor.ErrInvalidShape, b.Shape, w.Shape[1], w.Shape[2])
	}
	m.W, m.B = w, b
	m.GradW, m.GradB = tensor.Tensor{}, tensor.Tensor{}
	m.Input = InputMeta{}
	m.tracker.Reset()
	return nil
}

func (m *Maxout) In() int       { return m.W.Shape[0] }
func (m *Maxout) PoolSize() int { return m.W.Shape[1] }
func (m *Maxout) Out() int      { return m.W.Shape[2] }

func (m *Maxout) State() phase.State {
	return m.tracker.State()
}

func (m *Maxout) Params() []Param {
	return []Param{
		{Name: "weight", Value: &m.W, Grad: &m.GradW},
		{Name: "bias", Value: &m.B, Grad: &m.GradB},
	}
}

// weightMatrix views the weight as (in, pool*out).
func (m *Maxout) weightMatrix() blas32.General {
	cols := m.PoolSize() * m.Out()
	return blas32.General{Rows: m.In(), Cols: cols, Stride: cols, Data: m.W.Data}
}

func (m *Maxout) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	meta, err := NewInputMeta(x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if meta.Features() != m.In() {
		return tensor.Tensor{}, fmt.Errorf("%w: input %v has %d features, weight expects %d", tensor.ErrInvalidShape, x.Shape, meta.Features(), m.In())
	}
	xg, err := x.Flatten2D()
	if err != nil {
		return tensor.Tensor{}, err
	}

	pool, out := m.PoolSize(), m.Out()
	z := tensor.Dot(blas.NoTrans, blas.NoTrans, xg, m.weightMatrix())
	y := tensor.Zeros(meta.Batch, out)
	m.argmax = make([]int, meta.Batch*out)

	for b := range meta.Batch {
		row := z.Data[b*z.Stride : b*z.Stride+z.Cols]
		for i, v := range m.B.Data {
			row[i] += v
		}
		for o := range out {
			best := 0
			for p := 1; p < pool; p++ {
				if row[p*out+o] > row[best*out+o] {
					best = p
				}
			}
			y.Data[b*out+o] = row[best*out+o]
			m.argmax[b*out+o] = best
		}
	}

	m.Input = meta
	m.x = xg
	m.x.Data = slices.Clone(xg.Data)
	m.tracker.Forwarded(y.Shape)
	return y, nil
}

func (m *Maxout) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := m.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	pool, out := m.PoolSize(), m.Out()
	batch := m.Input.Batch

	dz := tensor.NewGeneralZeros(batch, pool*out)
	for b := range batch {
		for o := range out {
			dz.Data[b*dz.Stride+m.argmax[b*out+o]*out+o] = dy.Data[b*out+o]
		}
	}

	gw := tensor.Dot(blas.Trans, blas.NoTrans, m.x, dz)
	m.GradW = tensor.Tensor{Shape: m.W.Shape.Clone(), Data: gw.Data}
	m.GradB = tensor.Tensor{Shape: m.B.Shape.Clone(), Data: tensor.Sum0(dz)}

	dx := tensor.FromGeneral(tensor.Dot(blas.NoTrans, blas.Trans, dz, m.weightMatrix()))
	return dx.Reshape(m.Input.Shape...)
}
