package tensor

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func NewGeneralZeros(rows, cols int) blas32.General {
	return blas32.General{
		Rows:   rows,
		Cols:   cols,
		Stride: cols,
		Data:   make([]float32, rows*cols),
	}
}

// Dot returns op(a)·op(b) in a fresh matrix.
func Dot(tA, tB blas.Transpose, a, b blas32.General) blas32.General {
	rows, cols := a.Rows, b.Cols
	if tA == blas.Trans {
		rows = a.Cols
	}
	if tB == blas.Trans {
		cols = b.Rows
	}
	y := NewGeneralZeros(rows, cols)
	blas32.Gemm(tA, tB, 1.0, a, b, 0.0, y)
	return y
}

// Sum0 sums over rows, one entry per column.
func Sum0(gen blas32.General) []float32 {
	sums := make([]float32, gen.Cols)
	for r := range gen.Rows {
		offset := r * gen.Stride
		for c := range gen.Cols {
			sums[c] += gen.Data[offset+c]
		}
	}
	return sums
}

func toVector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}

// Axpy computes y += alpha*x in place.
func Axpy(alpha float32, x, y Tensor) {
	blas32.Axpy(alpha, toVector(x.Data), toVector(y.Data))
}

// Scal computes x *= alpha in place.
func Scal(alpha float32, x Tensor) {
	blas32.Scal(alpha, toVector(x.Data))
}
