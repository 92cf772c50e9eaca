package layer

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

const (
	BatchNormEpsilon  = 1e-7
	BatchNormMomentum = 0.9
)

// BatchNormalization normalises every feature with the statistics of the
// current batch. Features are the columns of a rank 2 input and the channels
// of a rank 4 input, where the statistics span batch, height and width.
type BatchNormalization struct {
	Gamma     tensor.Tensor
	Beta      tensor.Tensor
	GradGamma tensor.Tensor
	GradBeta  tensor.Tensor

	// RunningMean and RunningVar follow the batch statistics with Momentum
	// and feed Predict.
	RunningMean []float32
	RunningVar  []float32
	Momentum    float32

	// Mean and Var are the statistics of the last forward batch.
	Mean []float32
	Var  []float32

	Input InputMeta

	tracker  phase.Tracker
	centered []float32
	xhat     []float32
	std      []float32
}

func NewBatchNormalization(gamma, beta tensor.Tensor) (*BatchNormalization, error) {
	bn := &BatchNormalization{Momentum: BatchNormMomentum}
	if err := bn.Reconfigure(gamma, beta); err != nil {
		return nil, err
	}
	return bn, nil
}

func (bn *BatchNormalization) Reconfigure(gamma, beta tensor.Tensor) error {
	if gamma.Rank() != 1 || beta.Rank() != 1 || gamma.N() != beta.N() {
		return fmt.Errorf("%w: gamma %v and beta %v must be equal length vectors", tensor.ErrInvalidShape, gamma.Shape, beta.Shape)
	}
	n := gamma.N()
	bn.Gamma, bn.Beta = gamma, beta
	bn.GradGamma, bn.GradBeta = tensor.Tensor{}, tensor.Tensor{}
	bn.RunningMean = make([]float32, n)
	bn.RunningVar = make([]float32, n)
	for i := range bn.RunningVar {
		bn.RunningVar[i] = 1.0
	}
	bn.Mean, bn.Var = nil, nil
	bn.Input = InputMeta{}
	bn.tracker.Reset()
	return nil
}

func (bn *BatchNormalization) Features() int {
	return bn.Gamma.N()
}

func (bn *BatchNormalization) State() phase.State {
	return bn.tracker.State()
}

func (bn *BatchNormalization) Params() []Param {
	return []Param{
		{Name: "gamma", Value: &bn.Gamma, Grad: &bn.GradGamma},
		{Name: "beta", Value: &bn.Beta, Grad: &bn.GradBeta},
	}
}

// layout maps a flat index to its feature. Rank 2 features repeat every
// element; rank 4 features repeat every height*width plane.
type layout struct {
	features int
	plane    int
	count    int
}

func (l layout) feature(i int) int {
	return (i / l.plane) % l.features
}

func (bn *BatchNormalization) layoutOf(x tensor.Tensor) (InputMeta, layout, error) {
	meta, err := NewInputMeta(x)
	if err != nil {
		return InputMeta{}, layout{}, err
	}
	features := meta.Width
	plane := 1
	if x.Rank() == 4 {
		features = meta.Channel
		plane = meta.Height * meta.Width
	}
	if features != bn.Features() {
		return InputMeta{}, layout{}, fmt.Errorf("%w: input %v has %d features, layer has %d", tensor.ErrInvalidShape, x.Shape, features, bn.Features())
	}
	return meta, layout{features: features, plane: plane, count: x.N() / features}, nil
}

func (bn *BatchNormalization) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	meta, l, err := bn.layoutOf(x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	n := float32(l.count)

	mean := make([]float32, l.features)
	for i, v := range x.Data {
		mean[l.feature(i)] += v
	}
	for f := range mean {
		mean[f] /= n
	}

	centered := make([]float32, x.N())
	variance := make([]float32, l.features)
	for i, v := range x.Data {
		f := l.feature(i)
		c := v - mean[f]
		centered[i] = c
		variance[f] += c * c
	}
	std := make([]float32, l.features)
	for f := range variance {
		variance[f] /= n
		std[f] = math32.Sqrt(variance[f] + BatchNormEpsilon)
	}

	y := x.ZerosLike()
	xhat := make([]float32, x.N())
	for i, c := range centered {
		f := l.feature(i)
		xhat[i] = c / std[f]
		y.Data[i] = bn.Gamma.Data[f]*xhat[i] + bn.Beta.Data[f]
	}

	for f := range mean {
		bn.RunningMean[f] = bn.Momentum*bn.RunningMean[f] + (1-bn.Momentum)*mean[f]
		bn.RunningVar[f] = bn.Momentum*bn.RunningVar[f] + (1-bn.Momentum)*variance[f]
	}

	bn.Input = meta
	bn.Mean, bn.Var = mean, variance
	bn.centered, bn.xhat, bn.std = centered, xhat, std
	bn.tracker.Forwarded(y.Shape)
	return y, nil
}

// Predict normalises with the running statistics and caches nothing.
func (bn *BatchNormalization) Predict(x tensor.Tensor) (tensor.Tensor, error) {
	return bn.PredictWith(x, bn.RunningMean, bn.RunningVar)
}

// PredictWith normalises with caller supplied per-feature statistics.
func (bn *BatchNormalization) PredictWith(x tensor.Tensor, mean, variance []float32) (tensor.Tensor, error) {
	_, l, err := bn.layoutOf(x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if len(mean) != l.features || len(variance) != l.features {
		return tensor.Tensor{}, fmt.Errorf("%w: statistics of length %d and %d for %d features", tensor.ErrInvalidShape, len(mean), len(variance), l.features)
	}
	y := x.ZerosLike()
	for i, v := range x.Data {
		f := l.feature(i)
		xhat := (v - mean[f]) / math32.Sqrt(variance[f]+BatchNormEpsilon)
		y.Data[i] = bn.Gamma.Data[f]*xhat + bn.Beta.Data[f]
	}
	return y, nil
}

func (bn *BatchNormalization) Backward(dy tensor.Tensor) (tensor.Tensor, error) {
	if err := bn.tracker.Backward(dy.Shape); err != nil {
		return tensor.Tensor{}, err
	}
	_, l, err := bn.layoutOf(dy)
	if err != nil {
		return tensor.Tensor{}, err
	}
	n := float32(l.count)

	gradBeta := make([]float32, l.features)
	gradGamma := make([]float32, l.features)
	dvar := make([]float32, l.features)
	dmean := make([]float32, l.features)
	sumCentered := make([]float32, l.features)
	for i, g := range dy.Data {
		f := l.feature(i)
		gradBeta[f] += g
		gradGamma[f] += g * bn.xhat[i]
		dxhat := g * bn.Gamma.Data[f]
		dvar[f] += dxhat * bn.centered[i]
		dmean[f] -= dxhat / bn.std[f]
		sumCentered[f] += bn.centered[i]
	}
	for f := range dvar {
		s := bn.std[f]
		dvar[f] *= -0.5 / (s * s * s)
		dmean[f] += dvar[f] * -2.0 * sumCentered[f] / n
	}

	dx := dy.ZerosLike()
	for i, g := range dy.Data {
		f := l.feature(i)
		dxhat := g * bn.Gamma.Data[f]
		dx.Data[i] = dxhat/bn.std[f] + dvar[f]*2.0*bn.centered[i]/n + dmean[f]/n
	}

	bn.GradBeta = tensor.Tensor{Shape: bn.Beta.Shape.Clone(), Data: gradBeta}
	bn.GradGamma = tensor.Tensor{Shape: bn.Gamma.Shape.Clone(), Data: gradGamma}
	return dx, nil
}
