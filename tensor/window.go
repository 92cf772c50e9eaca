package tensor

import (
	"fmt"

	"github.com/sw965/omw/parallel"
	"gonum.org/v1/gonum/blas/blas32"
)

// OutputSize is floor((in-k+2*pad)/stride)+1 along one spatial axis.
func OutputSize(in, k, pad, stride int) (int, error) {
	if stride <= 0 {
		return 0, fmt.Errorf("%w: stride must be positive, got %d", ErrInvalidShape, stride)
	}
	if k <= 0 || pad < 0 {
		return 0, fmt.Errorf("%w: window %d with pad %d", ErrInvalidShape, k, pad)
	}
	span := in - k + 2*pad
	if span < 0 {
		return 0, fmt.Errorf("%w: window %d does not fit input %d with pad %d", ErrInvalidShape, k, in, pad)
	}
	return span/stride + 1, nil
}

// Window describes a sliding (Rows, Cols) window moved by Stride over an
// already padded D4.
type Window struct {
	Rows    int
	Cols    int
	Stride  int
	OutRows int
	OutCols int
}

func NewWindow(x D4, rows, cols, stride int) (Window, error) {
	outRows, err := OutputSize(x.Rows, rows, 0, stride)
	if err != nil {
		return Window{}, err
	}
	outCols, err := OutputSize(x.Cols, cols, 0, stride)
	if err != nil {
		return Window{}, err
	}
	return Window{Rows: rows, Cols: cols, Stride: stride, OutRows: outRows, OutCols: outCols}, nil
}

// Size is the number of cells a window covers in one channel.
func (w Window) Size() int {
	return w.Rows * w.Cols
}

func workers(p, n int) int {
	return max(1, min(p, n))
}

// Im2Col materialises every window position into a row. Rows are ordered
// (batch, outRow, outCol) and columns (channel, row, col) within the window.
func Im2Col(x D4, w Window, p int) blas32.General {
	positions := w.OutRows * w.OutCols
	colCols := x.Channels * w.Size()
	col := NewGeneralZeros(x.Batches*positions, colCols)

	err := parallel.For(x.Batches, workers(p, x.Batches), func(_, b int) error {
		idx := b * positions * colCols
		for or := range w.OutRows {
			baseRow := or * w.Stride
			for oc := range w.OutCols {
				baseCol := oc * w.Stride
				for ch := range x.Channels {
					for fr := range w.Rows {
						src := x.At(b, ch, baseRow+fr, baseCol)
						copy(col.Data[idx:idx+w.Cols], x.Data[src:src+w.Cols])
						idx += w.Cols
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
	return col
}

// Col2Im scatters a matrix laid out like Im2Col's output back into a zeroed D4
// of the given frame, summing wherever windows overlap.
func Col2Im(col blas32.General, frame D4, w Window, p int) D4 {
	positions := w.OutRows * w.OutCols
	if col.Rows != frame.Batches*positions || col.Cols != frame.Channels*w.Size() {
		panic(fmt.Sprintf("tensor: Col2Im got %dx%d for frame %v", col.Rows, col.Cols, Shape{frame.Batches, frame.Channels, frame.Rows, frame.Cols}))
	}
	dst := NewD4Zeros(frame.Batches, frame.Channels, frame.Rows, frame.Cols)

	err := parallel.For(frame.Batches, workers(p, frame.Batches), func(_, b int) error {
		for or := range w.OutRows {
			baseRow := or * w.Stride
			for oc := range w.OutCols {
				baseCol := oc * w.Stride
				row := (b*positions + or*w.OutCols + oc) * col.Stride
				idx := row
				for ch := range frame.Channels {
					for fr := range w.Rows {
						base := dst.At(b, ch, baseRow+fr, baseCol)
						for fc := range w.Cols {
							dst.Data[base+fc] += col.Data[idx]
							idx++
						}
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
	return dst
}
