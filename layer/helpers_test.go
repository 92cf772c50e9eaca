package layer_test

import (
	"math/rand/v2"
	"testing"

	"github.com/kashu98/Simple-Deep-Learning/gradcheck"
	"github.com/kashu98/Simple-Deep-Learning/layer"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"github.com/seehuhn/mt19937"
	"github.com/stretchr/testify/require"
)

const gradTol = 1e-2

func newRNG(seed int64) *rand.Rand {
	src := mt19937.New()
	src.Seed(seed)
	return rand.New(src)
}

func mustTensor(t *testing.T, data []float32, shape ...int) tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, shape...)
	require.NoError(t, err)
	return x
}

func requireClose(t *testing.T, want, got []float32, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.InDelta(t, want[i], got[i], tol, "index %d", i)
	}
}

// checkInputGrad compares Backward against central differences of
// Σ Forward(x)·dy and returns dy for further parameter checks.
func checkInputGrad(t *testing.T, l layer.Layer, x tensor.Tensor, rng *rand.Rand) tensor.Tensor {
	t.Helper()
	y, err := l.Forward(x)
	require.NoError(t, err)
	dy := tensor.NewUniform(rng, -1, 1, y.Shape...)

	want, err := gradcheck.Input(l.Forward, x, dy, gradcheck.Settings{})
	require.NoError(t, err)

	_, err = l.Forward(x)
	require.NoError(t, err)
	got, err := l.Backward(dy)
	require.NoError(t, err)
	require.Equal(t, x.Shape, got.Shape)
	t.Logf("input: max |analytic - numeric| = %g", gradcheck.MaxAbsDiff(want.Data, got.Data))
	requireClose(t, want.Data, got.Data, gradTol)
	return dy
}

// checkParamGrads runs one more forward/backward with dy and compares every
// parameter gradient against central differences.
func checkParamGrads(t *testing.T, l interface {
	layer.Layer
	Params() []layer.Param
}, x, dy tensor.Tensor) {
	t.Helper()
	forward := func() (tensor.Tensor, error) { return l.Forward(x) }

	want := make(map[string][]float32)
	for _, p := range l.Params() {
		g, err := gradcheck.Param(p.Value.Data, dy, forward, gradcheck.Settings{})
		require.NoError(t, err)
		want[p.Name] = g
	}

	_, err := l.Forward(x)
	require.NoError(t, err)
	_, err = l.Backward(dy)
	require.NoError(t, err)
	for _, p := range l.Params() {
		require.Equal(t, p.Value.Shape, p.Grad.Shape, p.Name)
		t.Logf("%s: max |analytic - numeric| = %g", p.Name, gradcheck.MaxAbsDiff(want[p.Name], p.Grad.Data))
		requireClose(t, want[p.Name], p.Grad.Data, gradTol)
	}
}
