package layer

import (
	"fmt"
	"math/rand/v2"

	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"github.com/sw965/omw/mathx/randx"
)

// Dropout keeps each element with probability Rate during training. Rate is
// the keep probability: an element survives when a uniform draw u in [0, 1)
// satisfies u < Rate, so Predict's deterministic x*Rate is the expected
// training output.
type Dropout struct {
	Rate float32

	tracker phase.Tracker
	rng     *rand.Rand
	mask    []float32
}

func NewDropout(rate float32, rng *rand.Rand) (*Dropout, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("%w: dropout rate %v outside [0, 1]", tensor.ErrInvalidInput, rate)
	}
	if rng == nil {
		rng = randx.NewPCGFromGlobalSeed()
	}
	return &Dropout{Rate: rate, rng: rng}, nil
}

func (d *Dropout) State() phase.State {
	return d.tracker.State()
}

// Mask returns the 0/1 mask drawn by the last Forward.
func (d *Dropout) Mask() []float32 {
	return d.mask
}

func (d *Dropout) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	d.mask = make([]float32, x.N())
	y := x.ZerosLike()
	for i, v := range x.Data {
		if d.rng.Float32() < d.Rate {
			d.mask[i] = 1.0
			y.Data[i] = v
		}
	}
	d.tracker.Forwarded(y.Shape)
	return y, nil
}

func (d *Dropout) Predict(x tensor.Tensor) (tensor.Tensor, error) {
	y := x.Clone()
	tensor.Scal(d.Rate, y)
	return y, nil
}

func (d *Dropout) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := d.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	dx := dy.ZerosLike()
	for i, g := range dy.Data {
		dx.Data[i] = g * d.mask[i]
	}
	return dx, nil
}
