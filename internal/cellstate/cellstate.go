// Package cellstate implements the CellState machine for cells 2-10 and the
// key dispatch that drives it. The state shape (a small tagged sum type
// with a pure transition function) follows the design note in spec.md §9;
// the debounce-on-repeat handling is grounded on the teacher's own
// reconnect/hotplug debouncing in internal/ui/app.go.
package cellstate

import "fmt"

// Phase is the CellState's tag.
type Phase int

const (
	// PhaseEmpty: no clip recorded yet, nothing to play.
	PhaseEmpty Phase = iota
	// PhaseRecording: the cell's key is held down, frames are flowing into
	// its Ring Buffer via the Record Bin.
	PhaseRecording
	// PhaseStopping: the key was released; the Record Bin is flushing the
	// last buffered frame(s) into the Playback Bin's clip.
	PhaseStopping
	// PhasePlaying: a clip is loaded and its Playback Bin is looping.
	PhasePlaying
	// PhaseErrored: a non-fatal error (e.g. RecordingBufferFull) was
	// reported for this cell; it remains visible with its last good clip
	// if any, or blank otherwise.
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "Empty"
	case PhaseRecording:
		return "Recording"
	case PhaseStopping:
		return "Stopping"
	case PhasePlaying:
		return "Playing"
	case PhaseErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// Event is the input alphabet the transition function accepts.
type Event int

const (
	EventKeyDown Event = iota
	EventKeyUp
	EventRecordFlushed
	EventError
	EventErrorCleared
)

// State is one cell's CellState: a phase tag plus whether a clip exists to
// fall back to from PhaseErrored.
type State struct {
	Phase   Phase
	HasClip bool
}

// Transition is the pure function spec.md §9 calls for: given the current
// state and an event, it returns the next state. It has no side effects —
// callers are responsible for acting on the state change (starting/stopping
// a Record Bin, loading a Playback Bin, etc).
func Transition(s State, ev Event) State {
	switch s.Phase {
	case PhaseEmpty:
		if ev == EventKeyDown {
			return State{Phase: PhaseRecording, HasClip: s.HasClip}
		}
	case PhaseRecording:
		switch ev {
		case EventKeyUp:
			return State{Phase: PhaseStopping, HasClip: s.HasClip}
		case EventError:
			return State{Phase: PhaseErrored, HasClip: s.HasClip}
		}
	case PhaseStopping:
		switch ev {
		case EventRecordFlushed:
			return State{Phase: PhasePlaying, HasClip: true}
		case EventError:
			return State{Phase: PhaseErrored, HasClip: s.HasClip}
		}
	case PhasePlaying:
		switch ev {
		case EventKeyDown:
			return State{Phase: PhaseRecording, HasClip: s.HasClip}
		case EventError:
			return State{Phase: PhaseErrored, HasClip: s.HasClip}
		}
	case PhaseErrored:
		switch ev {
		case EventErrorCleared:
			if s.HasClip {
				return State{Phase: PhasePlaying, HasClip: true}
			}
			return State{Phase: PhaseEmpty, HasClip: false}
		case EventKeyDown:
			return State{Phase: PhaseRecording, HasClip: s.HasClip}
		}
	}
	return s
}

// ErrIllegalEvent is never returned by Transition (it is total — an
// unhandled event is a no-op) but is kept for callers that want to treat a
// no-op transition on an unexpected event as a logical error worth
// reporting.
type ErrIllegalEvent struct {
	Phase Phase
	Event Event
}

func (e ErrIllegalEvent) Error() string {
	return fmt.Sprintf("cellstate: event %d illegal in phase %s", e.Event, e.Phase)
}

// IsNoOp reports whether applying ev to s would leave the state unchanged,
// i.e. the event carries no meaning in the current phase.
func IsNoOp(s State, ev Event) bool {
	return Transition(s, ev) == s
}
