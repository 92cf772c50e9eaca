package tensor

import (
	"slices"
)

// D4 is a (batch, channel, row, col) view with explicit strides.
type D4 struct {
	Batches       int
	Channels      int
	Rows          int
	Cols          int
	BatchStride   int
	ChannelStride int
	RowStride     int
	Data          []float32
}

func newD4Header(batches, chs, rows, cols int) D4 {
	rowStride := cols
	chStride := rows * rowStride
	batchStride := chs * chStride
	return D4{
		Batches:       batches,
		Channels:      chs,
		Rows:          rows,
		Cols:          cols,
		BatchStride:   batchStride,
		ChannelStride: chStride,
		RowStride:     rowStride,
	}
}

func NewD4Zeros(batches, chs, rows, cols int) D4 {
	d4 := newD4Header(batches, chs, rows, cols)
	d4.Data = make([]float32, batches*d4.BatchStride)
	return d4
}

func NewD4Full(v float32, batches, chs, rows, cols int) D4 {
	d4 := NewD4Zeros(batches, chs, rows, cols)
	for i := range d4.Data {
		d4.Data[i] = v
	}
	return d4
}

func (d4 D4) N() int {
	return d4.Batches * d4.Channels * d4.Rows * d4.Cols
}

func (d4 D4) Clone() D4 {
	c := d4
	c.Data = slices.Clone(d4.Data)
	return c
}

func (d4 D4) At(batch, ch, row, col int) int {
	return (batch * d4.BatchStride) + (ch * d4.ChannelStride) + (row * d4.RowStride) + col
}

// Pad surrounds every (row, col) plane with pad cells of value v on all four
// sides.
func (d4 D4) Pad(pad int, v float32) D4 {
	if pad == 0 {
		return d4
	}
	padded := NewD4Full(v, d4.Batches, d4.Channels, d4.Rows+2*pad, d4.Cols+2*pad)
	for b := range d4.Batches {
		for ch := range d4.Channels {
			for row := range d4.Rows {
				src := d4.At(b, ch, row, 0)
				dst := padded.At(b, ch, row+pad, pad)
				copy(padded.Data[dst:dst+d4.Cols], d4.Data[src:src+d4.Cols])
			}
		}
	}
	return padded
}

// Crop removes pad cells from each side of every plane; the inverse of Pad.
func (d4 D4) Crop(pad int) D4 {
	if pad == 0 {
		return d4
	}
	rows, cols := d4.Rows-2*pad, d4.Cols-2*pad
	cropped := NewD4Zeros(d4.Batches, d4.Channels, rows, cols)
	for b := range d4.Batches {
		for ch := range d4.Channels {
			for row := range rows {
				src := d4.At(b, ch, row+pad, pad)
				dst := cropped.At(b, ch, row, 0)
				copy(cropped.Data[dst:dst+cols], d4.Data[src:src+cols])
			}
		}
	}
	return cropped
}

// Transpose0231 permutes (B, C, H, W) into (B, H, W, C).
func (d4 D4) Transpose0231() D4 {
	dst := NewD4Zeros(d4.Batches, d4.Rows, d4.Cols, d4.Channels)
	idx := 0
	for b := range d4.Batches {
		for r := range d4.Rows {
			for col := range d4.Cols {
				for c := range d4.Channels {
					dst.Data[idx] = d4.Data[d4.At(b, c, r, col)]
					idx++
				}
			}
		}
	}
	return dst
}

// Transpose0312 permutes (B, H, W, C) into (B, C, H, W).
func (d4 D4) Transpose0312() D4 {
	dst := NewD4Zeros(d4.Batches, d4.Cols, d4.Channels, d4.Rows)
	idx := 0
	for b := range d4.Batches {
		for col := range d4.Cols {
			for c := range d4.Channels {
				srcBase := d4.At(b, c, 0, col)
				for r := range d4.Rows {
					dst.Data[idx] = d4.Data[srcBase+r*d4.RowStride]
					idx++
				}
			}
		}
	}
	return dst
}
