package cellstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDownStartsRecording(t *testing.T) {
	s := State{Phase: PhaseEmpty}
	s = Transition(s, EventKeyDown)
	assert.Equal(t, PhaseRecording, s.Phase)
}

func TestKeyUpWhileRecordingGoesToStopping(t *testing.T) {
	s := State{Phase: PhaseRecording}
	s = Transition(s, EventKeyUp)
	assert.Equal(t, PhaseStopping, s.Phase)
}

func TestFlushedAfterStoppingGoesToPlayingWithClip(t *testing.T) {
	s := State{Phase: PhaseStopping}
	s = Transition(s, EventRecordFlushed)
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.True(t, s.HasClip)
}

func TestKeyDownWhilePlayingReRecords(t *testing.T) {
	s := State{Phase: PhasePlaying, HasClip: true}
	s = Transition(s, EventKeyDown)
	assert.Equal(t, PhaseRecording, s.Phase)
	assert.True(t, s.HasClip, "prior clip is retained until the new recording flushes")
}

func TestErrorFromAnyActivePhaseGoesToErrored(t *testing.T) {
	for _, phase := range []Phase{PhaseRecording, PhaseStopping, PhasePlaying} {
		s := Transition(State{Phase: phase}, EventError)
		assert.Equal(t, PhaseErrored, s.Phase)
	}
}

func TestErrorClearedFallsBackToClipOrEmpty(t *testing.T) {
	withClip := Transition(State{Phase: PhaseErrored, HasClip: true}, EventErrorCleared)
	assert.Equal(t, PhasePlaying, withClip.Phase)

	withoutClip := Transition(State{Phase: PhaseErrored, HasClip: false}, EventErrorCleared)
	assert.Equal(t, PhaseEmpty, withoutClip.Phase)
}

func TestUnhandledEventIsNoOp(t *testing.T) {
	s := State{Phase: PhaseEmpty}
	assert.True(t, IsNoOp(s, EventKeyUp))
	assert.True(t, IsNoOp(s, EventRecordFlushed))
}

func TestDispatcherDebouncesRepeatKeyDown(t *testing.T) {
	d := NewDispatcher()

	_, ok := d.KeyDown(3)
	assert.True(t, ok)

	_, ok = d.KeyDown(3) // OS auto-repeat
	assert.False(t, ok)

	_, ok = d.KeyUp(3)
	assert.True(t, ok)

	_, ok = d.KeyUp(3) // stray repeat key-up
	assert.False(t, ok)
}

func TestDispatcherTracksCellsIndependently(t *testing.T) {
	d := NewDispatcher()
	_, _ = d.KeyDown(1)
	assert.True(t, d.IsDown(1))
	assert.False(t, d.IsDown(2))
}
