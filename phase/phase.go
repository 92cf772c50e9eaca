// Package phase tracks the forward/backward alternation of a single operator
// instance.
package phase

import (
	"errors"
	"fmt"

	"github.com/kashu98/Simple-Deep-Learning/tensor"
)

var ErrNoForward = errors.New("backward without a pending forward")

type State int

const (
	Ready State = iota
	AwaitingBackward
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case AwaitingBackward:
		return "AwaitingBackward"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Tracker is embedded by every operator. A forward arms it with the output
// shape; the next backward must match that shape and disarms it. A second
// forward simply re-arms it, discarding whatever the first one cached.
type Tracker struct {
	state State
	out   tensor.Shape
}

func (t *Tracker) State() State {
	return t.state
}

func (t *Tracker) Forwarded(out tensor.Shape) {
	t.state = AwaitingBackward
	t.out = out.Clone()
}

func (t *Tracker) Backward(dy tensor.Shape) error {
	if t.state != AwaitingBackward {
		return fmt.Errorf("%w: state %v", ErrNoForward, t.state)
	}
	if !dy.Equal(t.out) {
		return fmt.Errorf("%w: gradient %v does not match forward output %v", tensor.ErrInvalidShape, dy, t.out)
	}
	t.state = Ready
	return nil
}

func (t *Tracker) Reset() {
	t.state = Ready
	t.out = nil
}
