// Package pipeline implements the PipelineGraph: the top-level state
// machine that owns every stage (Camera Source, Capture Tee, Record Bins,
// Ring Buffers, Playback Bins, Compositor, Format Caps, Renderer, Frame
// Monitor) and the deadlock watchdog that recovers from a stuck state
// transition.
package pipeline

import "fmt"

// State is the GStreamer-style lifecycle state of the whole graph.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// validTransitions enumerates every state change the graph allows. A
// transition not listed here is rejected by Graph.RequestState.
var validTransitions = map[State][]State{
	StateNull:    {StateReady},
	StateReady:   {StateNull, StatePaused},
	StatePaused:  {StateReady, StatePlaying},
	StatePlaying: {StatePaused},
}

// CanTransition reports whether from -> to is one step allowed by the state
// table above. Forcing past an intermediate state (e.g. PLAYING -> NULL) is
// the deadlock watchdog's job, not a normal transition.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned by Graph.RequestState for a transition
// not present in validTransitions.
type ErrInvalidTransition struct {
	From, To State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("pipeline: invalid state transition %s -> %s", e.From, e.To)
}
