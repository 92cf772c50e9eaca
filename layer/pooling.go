package layer

import (
	"fmt"

	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"gonum.org/v1/gonum/blas/blas32"
)

type PoolMode int

const (
	Max PoolMode = iota
	Average
)

func (m PoolMode) String() string {
	switch m {
	case Max:
		return "max"
	case Average:
		return "average"
	default:
		return fmt.Sprintf("PoolMode(%d)", int(m))
	}
}

type PoolConfig struct {
	Height      int
	Width       int
	Stride      int
	Pad         int
	PadValue    float32
	Mode        PoolMode
	Parallelism int
}

// Pooling reduces every (Height, Width) window of each channel to its maximum
// or mean. Windows are extracted exactly as the convolution extracts patches.
type Pooling struct {
	Config PoolConfig
	Input  InputMeta

	tracker phase.Tracker
	mode    PoolMode
	window  tensor.Window
	padded  tensor.D4
	// argmax holds, per (batch, channel, outRow, outCol), the offset inside
	// the window that won.
	argmax []int
}

func NewPooling(c PoolConfig) (*Pooling, error) {
	if c.Height <= 0 || c.Width <= 0 {
		return nil, fmt.Errorf("%w: pool window %dx%d", tensor.ErrInvalidShape, c.Height, c.Width)
	}
	if c.Stride <= 0 {
		return nil, fmt.Errorf("%w: stride must be positive, got %d", tensor.ErrInvalidShape, c.Stride)
	}
	if c.Pad < 0 {
		return nil, fmt.Errorf("%w: pad must not be negative, got %d", tensor.ErrInvalidShape, c.Pad)
	}
	if c.Mode != Max && c.Mode != Average {
		return nil, fmt.Errorf("%w: unknown pool mode %v", tensor.ErrInvalidInput, c.Mode)
	}
	return &Pooling{Config: c}, nil
}

func (p *Pooling) State() phase.State {
	return p.tracker.State()
}

func (p *Pooling) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	return p.ForwardMode(x, p.Config.Mode)
}

func (p *Pooling) ForwardMode(x tensor.Tensor, mode PoolMode) (tensor.Tensor, error) {
	if mode != Max && mode != Average {
		return tensor.Tensor{}, fmt.Errorf("%w: unknown pool mode %v", tensor.ErrInvalidInput, mode)
	}
	x4, err := x.D4()
	if err != nil {
		return tensor.Tensor{}, err
	}
	meta, err := NewInputMeta(x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if _, err := tensor.OutputSize(meta.Height, p.Config.Height, p.Config.Pad, p.Config.Stride); err != nil {
		return tensor.Tensor{}, err
	}
	if _, err := tensor.OutputSize(meta.Width, p.Config.Width, p.Config.Pad, p.Config.Stride); err != nil {
		return tensor.Tensor{}, err
	}

	p.Input = meta
	p.mode = mode
	p.padded = x4.Pad(p.Config.Pad, p.Config.PadValue)
	p.window, err = tensor.NewWindow(p.padded, p.Config.Height, p.Config.Width, p.Config.Stride)
	if err != nil {
		return tensor.Tensor{}, err
	}
	col := tensor.Im2Col(p.padded, p.window, p.Config.Parallelism)

	size := p.window.Size()
	positions := p.window.OutRows * p.window.OutCols
	out := tensor.NewD4Zeros(meta.Batch, meta.Channel, p.window.OutRows, p.window.OutCols)
	if mode == Max {
		p.argmax = make([]int, out.N())
	} else {
		p.argmax = nil
	}

	for b := range meta.Batch {
		for pos := range positions {
			row := col.Data[(b*positions+pos)*col.Stride:]
			for ch := range meta.Channel {
				cells := row[ch*size : (ch+1)*size]
				dst := out.At(b, ch, 0, 0) + pos
				switch mode {
				case Max:
					best := 0
					for i, v := range cells {
						if v > cells[best] {
							best = i
						}
					}
					out.Data[dst] = cells[best]
					p.argmax[dst] = best
				case Average:
					var sum float32
					for _, v := range cells {
						sum += v
					}
					out.Data[dst] = sum / float32(size)
				}
			}
		}
	}

	y := tensor.FromD4(out)
	p.tracker.Forwarded(y.Shape)
	return y, nil
}

func (p *Pooling) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := p.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dy4, err := dy.D4()
	if err != nil {
		return tensor.Tensor{}, err
	}

	size := p.window.Size()
	positions := p.window.OutRows * p.window.OutCols
	cols := p.Input.Channel * size
	dcol := blas32.General{
		Rows:   p.Input.Batch * positions,
		Cols:   cols,
		Stride: cols,
		Data:   make([]float32, p.Input.Batch*positions*cols),
	}
	inv := 1.0 / float32(size)

	for b := range p.Input.Batch {
		for pos := range positions {
			row := dcol.Data[(b*positions+pos)*dcol.Stride:]
			for ch := range p.Input.Channel {
				src := dy4.At(b, ch, 0, 0) + pos
				g := dy4.Data[src]
				cells := row[ch*size : (ch+1)*size]
				switch p.mode {
				case Max:
					cells[p.argmax[src]] = g
				case Average:
					for i := range cells {
						cells[i] = g * inv
					}
				}
			}
		}
	}

	dpadded := tensor.Col2Im(dcol, p.padded, p.window, p.Config.Parallelism)
	return tensor.FromD4(dpadded.Crop(p.Config.Pad)), nil
}
