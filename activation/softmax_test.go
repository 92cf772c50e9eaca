package activation_test

import (
	"testing"

	"github.com/kashu98/Simple-Deep-Learning/activation"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(xs []float32) float64 {
	var s float64
	for _, v := range xs {
		s += float64(v)
	}
	return s
}

func TestSoftmaxVector(t *testing.T) {
	x := mustTensor(t, []float32{1, 2, 3}, 3)
	y, err := activation.Softmax(x)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(y.Data), 1e-6)
	requireClose(t, []float32{0.09003057, 0.24472847, 0.66524096}, y.Data, 1e-6)
}

func TestSoftmaxRows(t *testing.T) {
	x := tensor.NewUniform(newRNG(11), -5, 5, 4, 6)
	y, err := activation.Softmax(x)
	require.NoError(t, err)
	require.Equal(t, x.Shape, y.Shape)
	for r := range 4 {
		assert.InDelta(t, 1.0, sum(y.Data[r*6:(r+1)*6]), 1e-6, "row %d", r)
	}
}

func TestSoftmaxShiftInvariance(t *testing.T) {
	x := tensor.NewUniform(newRNG(12), -3, 3, 3, 5)
	shifted := x.Clone()
	// a different constant per row; each row is normalised on its own
	for r := range 3 {
		for c := range 5 {
			shifted.Data[r*5+c] += float32(10 * (r + 1))
		}
	}
	y, err := activation.Softmax(x)
	require.NoError(t, err)
	ys, err := activation.Softmax(shifted)
	require.NoError(t, err)
	requireClose(t, y.Data, ys.Data, 1e-5)
}

func TestSoftmaxLargeInputs(t *testing.T) {
	x := mustTensor(t, []float32{1000, 1001, 1002}, 1, 3)
	y, err := activation.Softmax(x)
	require.NoError(t, err)
	requireClose(t, []float32{0.09003057, 0.24472847, 0.66524096}, y.Data, 1e-6)
}

func TestSoftmaxRejectsOtherRanks(t *testing.T) {
	_, err := activation.Softmax(tensor.Zeros(2, 2, 2))
	assert.ErrorIs(t, err, tensor.ErrInvalidInput)
	_, err = activation.Softmax(tensor.Zeros(1, 1, 2, 2))
	assert.ErrorIs(t, err, tensor.ErrInvalidInput)
}
