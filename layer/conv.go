package layer

import (
	"fmt"

	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

type ConvConfig struct {
	Stride   int
	Pad      int
	PadValue float32
	// Parallelism bounds the goroutines used per batch for window extraction.
	Parallelism int
}

func DefaultConvConfig() ConvConfig {
	return ConvConfig{Stride: 1, Parallelism: 1}
}

// Convolutional correlates a (OutChannels, InChannels, KH, KW) filter bank
// with a (batch, channel, height, width) input and adds one bias per output
// channel.
type Convolutional struct {
	Base
	Config ConvConfig

	window tensor.Window
	padded tensor.D4
	col    blas32.General
}

func NewConvolutional(w, b tensor.Tensor, c ConvConfig) (*Convolutional, error) {
	conv := &Convolutional{Config: c}
	if err := conv.Reconfigure(w, b); err != nil {
		return nil, err
	}
	return conv, nil
}

func (c *Convolutional) Reconfigure(w, b tensor.Tensor) error {
	if w.Rank() != 4 {
		return fmt.Errorf("%w: filter must be (out, in, kh, kw), got %v", tensor.ErrInvalidShape, w.Shape)
	}
	if c.Config.Stride <= 0 {
		return fmt.Errorf("%w: stride must be positive, got %d", tensor.ErrInvalidShape, c.Config.Stride)
	}
	if c.Config.Pad < 0 {
		return fmt.Errorf("%w: pad must not be negative, got %d", tensor.ErrInvalidShape, c.Config.Pad)
	}
	if err := checkBias(b, w.Shape[0]); err != nil {
		return err
	}
	return c.bind(w, b)
}

func (c *Convolutional) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 4 {
		return nil, fmt.Errorf("%w: convolution input must be rank 4, got %v", tensor.ErrInvalidShape, in)
	}
	if in[1] != c.Weight.Channel {
		return nil, fmt.Errorf("%w: input has %d channels, filter expects %d", tensor.ErrInvalidShape, in[1], c.Weight.Channel)
	}
	oh, err := tensor.OutputSize(in[2], c.Weight.Height, c.Config.Pad, c.Config.Stride)
	if err != nil {
		return nil, err
	}
	ow, err := tensor.OutputSize(in[3], c.Weight.Width, c.Config.Pad, c.Config.Stride)
	if err != nil {
		return nil, err
	}
	return tensor.Shape{in[0], c.Weight.Patch, oh, ow}, nil
}

// filterMatrix views the filter bank as (OutChannels, InChannels*KH*KW).
func (c *Convolutional) filterMatrix() blas32.General {
	cols := c.Weight.Channel * c.Weight.Height * c.Weight.Width
	return blas32.General{Rows: c.Weight.Patch, Cols: cols, Stride: cols, Data: c.W.Data}
}

func (c *Convolutional) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	if _, err := c.OutputShape(x.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	if err := c.observe(x); err != nil {
		return tensor.Tensor{}, err
	}
	x4, err := x.D4()
	if err != nil {
		return tensor.Tensor{}, err
	}

	c.padded = x4.Pad(c.Config.Pad, c.Config.PadValue)
	c.window, err = tensor.NewWindow(c.padded, c.Weight.Height, c.Weight.Width, c.Config.Stride)
	if err != nil {
		return tensor.Tensor{}, err
	}
	c.col = tensor.Im2Col(c.padded, c.window, c.Config.Parallelism)

	// (B*OH*OW, OC) laid out as (B, OH, OW, OC)
	ymat := tensor.Dot(blas.NoTrans, blas.Trans, c.col, c.filterMatrix())
	for r := range ymat.Rows {
		row := ymat.Data[r*ymat.Stride : r*ymat.Stride+ymat.Cols]
		for oc, b := range c.B.Data {
			row[oc] += b
		}
	}
	yhwc := tensor.D4{
		Batches:       c.Input.Batch,
		Channels:      c.window.OutRows,
		Rows:          c.window.OutCols,
		Cols:          c.Weight.Patch,
		BatchStride:   c.window.OutRows * c.window.OutCols * c.Weight.Patch,
		ChannelStride: c.window.OutCols * c.Weight.Patch,
		RowStride:     c.Weight.Patch,
		Data:          ymat.Data,
	}
	out := tensor.FromD4(yhwc.Transpose0312())
	c.tracker.Forwarded(out.Shape)
	return out, nil
}

func (c *Convolutional) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := c.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dy4, err := dy.D4()
	if err != nil {
		return tensor.Tensor{}, err
	}

	// (B, OC, OH, OW) -> (B*OH*OW, OC)
	dyhwc := dy4.Transpose0231()
	dymat := blas32.General{
		Rows:   dy4.Batches * dy4.Rows * dy4.Cols,
		Cols:   dy4.Channels,
		Stride: dy4.Channels,
		Data:   dyhwc.Data,
	}

	c.GradB = tensor.Tensor{Shape: c.B.Shape.Clone(), Data: tensor.Sum0(dymat)}
	gw := tensor.Dot(blas.Trans, blas.NoTrans, dymat, c.col)
	c.GradW = tensor.Tensor{Shape: c.W.Shape.Clone(), Data: gw.Data}

	dcol := tensor.Dot(blas.NoTrans, blas.NoTrans, dymat, c.filterMatrix())
	dpadded := tensor.Col2Im(dcol, c.padded, c.window, c.Config.Parallelism)
	return tensor.FromD4(dpadded.Crop(c.Config.Pad)), nil
}
