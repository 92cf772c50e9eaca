package phase_test

import (
	"testing"

	"github.com/kashu98/Simple-Deep-Learning/phase"
	"github.com/kashu98/Simple-Deep-Learning/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	var tr phase.Tracker
	assert.Equal(t, phase.Ready, tr.State())
	err := tr.Backward(tensor.Shape{2, 3})
	assert.ErrorIs(t, err, phase.ErrNoForward)
	assert.ErrorContains(t, err, "state Ready")

	tr.Forwarded(tensor.Shape{2, 3})
	assert.Equal(t, phase.AwaitingBackward, tr.State())

	err = tr.Backward(tensor.Shape{3, 2})
	assert.ErrorIs(t, err, tensor.ErrInvalidShape)
	assert.Equal(t, phase.AwaitingBackward, tr.State())

	require.NoError(t, tr.Backward(tensor.Shape{2, 3}))
	assert.Equal(t, phase.Ready, tr.State())
	assert.ErrorIs(t, tr.Backward(tensor.Shape{2, 3}), phase.ErrNoForward)
}

func TestTrackerForwardRearms(t *testing.T) {
	var tr phase.Tracker
	tr.Forwarded(tensor.Shape{4})
	tr.Forwarded(tensor.Shape{5})
	assert.ErrorIs(t, tr.Backward(tensor.Shape{4}), tensor.ErrInvalidShape)
	require.NoError(t, tr.Backward(tensor.Shape{5}))
}

func TestTrackerCopiesShape(t *testing.T) {
	var tr phase.Tracker
	shape := tensor.Shape{2, 2}
	tr.Forwarded(shape)
	shape[0] = 9
	require.NoError(t, tr.Backward(tensor.Shape{2, 2}))
}

func TestTrackerReset(t *testing.T) {
	var tr phase.Tracker
	tr.Forwarded(tensor.Shape{1})
	tr.Reset()
	assert.Equal(t, phase.Ready, tr.State())
	assert.ErrorIs(t, tr.Backward(tensor.Shape{1}), phase.ErrNoForward)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Ready", phase.Ready.String())
	assert.Equal(t, "AwaitingBackward", phase.AwaitingBackward.String())
	assert.Equal(t, "State(5)", phase.State(5).String())
}
