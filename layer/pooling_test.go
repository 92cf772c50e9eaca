package layer_test

import (
	"testing"

	"github.com/kashu98/Simple-Deep-Learning/layer"
	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid4x4(t *testing.T) tensor.Tensor {
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i + 1)
	}
	return mustTensor(t, data, 1, 1, 4, 4)
}

// distinct fills shape with a shuffled ladder spaced 0.1 apart so no window
// holds two values within a finite difference step of each other.
func distinct(t *testing.T, seed int64, shape ...int) tensor.Tensor {
	n := tensor.Shape(shape).N()
	perm := newRNG(seed).Perm(n)
	data := make([]float32, n)
	for i, p := range perm {
		data[i] = float32(p-n/2) * 0.1
	}
	return mustTensor(t, data, shape...)
}

func TestPoolingForward(t *testing.T) {
	tests := []struct {
		mode layer.PoolMode
		want []float32
	}{
		{layer.Max, []float32{6, 8, 14, 16}},
		{layer.Average, []float32{3.5, 5.5, 11.5, 13.5}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			p, err := layer.NewPooling(layer.PoolConfig{Height: 2, Width: 2, Stride: 2, Mode: tt.mode})
			require.NoError(t, err)
			y, err := p.Forward(grid4x4(t))
			require.NoError(t, err)
			assert.Equal(t, tensor.Shape{1, 1, 2, 2}, y.Shape)
			assert.Equal(t, tt.want, y.Data)
		})
	}
}

func TestPoolingForwardMode(t *testing.T) {
	p, err := layer.NewPooling(layer.PoolConfig{Height: 2, Width: 2, Stride: 2})
	require.NoError(t, err)

	y, err := p.ForwardMode(grid4x4(t), layer.Average)
	require.NoError(t, err)
	assert.Equal(t, []float32{3.5, 5.5, 11.5, 13.5}, y.Data)

	dx, err := p.Backward(tensor.Full(1, 1, 1, 2, 2))
	require.NoError(t, err)
	for _, v := range dx.Data {
		assert.Equal(t, float32(0.25), v)
	}

	_, err = p.ForwardMode(grid4x4(t), layer.PoolMode(7))
	assert.ErrorIs(t, err, tensor.ErrInvalidInput)
}

func TestPoolingMaxBackwardRoutesToWinner(t *testing.T) {
	p, err := layer.NewPooling(layer.PoolConfig{Height: 2, Width: 2, Stride: 2, Mode: layer.Max})
	require.NoError(t, err)
	_, err = p.Forward(grid4x4(t))
	require.NoError(t, err)

	dx, err := p.Backward(mustTensor(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2))
	require.NoError(t, err)
	want := make([]float32, 16)
	want[5], want[7], want[13], want[15] = 1, 2, 3, 4
	assert.Equal(t, want, dx.Data)
}

func TestPoolingMaxTieGoesToFirst(t *testing.T) {
	p, err := layer.NewPooling(layer.PoolConfig{Height: 2, Width: 2, Stride: 2, Mode: layer.Max})
	require.NoError(t, err)
	_, err = p.Forward(tensor.Full(3, 1, 1, 2, 2))
	require.NoError(t, err)

	dx, err := p.Backward(tensor.Full(1, 1, 1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, dx.Data)
}

func TestPoolingMaxBackwardAccumulatesOverlap(t *testing.T) {
	p, err := layer.NewPooling(layer.PoolConfig{Height: 2, Width: 2, Stride: 1, Mode: layer.Max})
	require.NoError(t, err)
	x := mustTensor(t, []float32{
		1, 2, 3,
		4, 9, 5,
		6, 7, 8,
	}, 1, 1, 3, 3)
	y, err := p.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9, 9, 9}, y.Data)

	dx, err := p.Backward(tensor.Full(1, 1, 1, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0, 4, 0, 0, 0, 0}, dx.Data)
}

func TestPoolingAveragePadding(t *testing.T) {
	p, err := layer.NewPooling(layer.PoolConfig{Height: 2, Width: 2, Stride: 2, Pad: 1, Mode: layer.Average})
	require.NoError(t, err)
	y, err := p.Forward(tensor.Full(1, 1, 1, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, y.Shape)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, y.Data)

	dx, err := p.Backward(tensor.Full(1, 1, 1, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, dx.Shape)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, dx.Data)
}

func TestPoolingGradients(t *testing.T) {
	tests := []struct {
		name string
		c    layer.PoolConfig
	}{
		{"max_2x2", layer.PoolConfig{Height: 2, Width: 2, Stride: 2, Mode: layer.Max}},
		{"max_3x3_pad", layer.PoolConfig{Height: 3, Width: 3, Stride: 1, Pad: 1, PadValue: -100, Mode: layer.Max, Parallelism: 2}},
		{"average_2x2", layer.PoolConfig{Height: 2, Width: 2, Stride: 2, Mode: layer.Average}},
		{"average_3x3_stride2", layer.PoolConfig{Height: 3, Width: 3, Stride: 2, Pad: 1, Mode: layer.Average}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := layer.NewPooling(tt.c)
			require.NoError(t, err)
			checkInputGrad(t, p, distinct(t, int64(40+i), 2, 2, 4, 4), newRNG(int64(50+i)))
		})
	}
}

func TestPoolingErrors(t *testing.T) {
	for _, c := range []layer.PoolConfig{
		{Height: 0, Width: 2, Stride: 1},
		{Height: 2, Width: 2, Stride: 0},
		{Height: 2, Width: 2, Stride: 1, Pad: -1},
	} {
		_, err := layer.NewPooling(c)
		assert.ErrorIs(t, err, tensor.ErrInvalidShape, "%+v", c)
	}
	_, err := layer.NewPooling(layer.PoolConfig{Height: 2, Width: 2, Stride: 1, Mode: layer.PoolMode(-1)})
	assert.ErrorIs(t, err, tensor.ErrInvalidInput)

	p, err := layer.NewPooling(layer.PoolConfig{Height: 3, Width: 3, Stride: 1})
	require.NoError(t, err)
	_, err = p.Forward(tensor.Zeros(4, 9))
	assert.ErrorIs(t, err, tensor.ErrInvalidShape)
	_, err = p.Forward(tensor.Zeros(1, 1, 2, 2))
	assert.ErrorIs(t, err, tensor.ErrInvalidShape)

	_, err = p.Backward(tensor.Zeros(1, 1, 1, 1))
	assert.ErrorIs(t, err, phase.ErrNoForward)

	_, err = p.Forward(tensor.Zeros(1, 1, 3, 3))
	require.NoError(t, err)
	_, err = p.Backward(tensor.Zeros(1, 1, 2, 2))
	assert.ErrorIs(t, err, tensor.ErrInvalidShape)
}
