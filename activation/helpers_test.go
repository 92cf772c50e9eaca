package activation_test

import (
	"math/rand/v2"
	"testing"

	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"github.com/seehuhn/mt19937"
	"github.com/stretchr/testify/require"
)

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

// awayFromZero is a fixed (2, 4) input with no element near the kinks at 0.
func awayFromZero(t *testing.T) tensor.Tensor {
	return mustTensor(t, []float32{-1.5, -0.7, -0.2, 0.3, 0.9, 1.6, -2.4, 0.45}, 2, 4)
}

func requireClose(t *testing.T, want, got []float32, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.InDelta(t, want[i], got[i], tol, "index %d", i)
	}
}
