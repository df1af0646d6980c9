package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gridcam/internal/errsink"
)

// Stage is implemented by every pipeline element that has graph-visible
// lifecycle hooks. Not every stage needs both: a stage with nothing to do
// on pause can leave OnPause a no-op.
type Stage interface {
	Name() string
	OnReady() error
	OnPlay() error
	OnPause() error
	OnNull() error
}

// Graph is the PipelineGraph: it owns the current State, serialises
// transition requests, and runs a deadlock watchdog that escalates a stuck
// transition the same way the teacher's adaptive controller escalates a
// thermal emergency — drop one level, then force all the way down.
//
// The watchdog pattern (poll a ticker, compare elapsed time in the current
// state against a threshold, escalate through a fixed ladder) is carried
// over from internal/perf's SmartController state handlers.
type Graph struct {
	ID uuid.UUID

	log  *logrus.Logger
	sink errsink.Sink

	mu            sync.Mutex
	state         State
	stages        []Stage
	enteredAt     time.Time
	transitioning atomic.Bool

	watchdogTimeout time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
}

func NewGraph(log *logrus.Logger, sink errsink.Sink, watchdogTimeout time.Duration) *Graph {
	return &Graph{
		ID:              uuid.New(),
		log:             log,
		sink:            sink,
		state:           StateNull,
		enteredAt:       time.Now(),
		watchdogTimeout: watchdogTimeout,
		stopCh:          make(chan struct{}),
	}
}

// AddStage registers a stage. Stages are notified in registration order on
// the way up (Null->Ready->Paused->Playing) and in reverse order on the way
// down, matching GStreamer's own bin traversal convention.
func (g *Graph) AddStage(s Stage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stages = append(g.stages, s)
}

func (g *Graph) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// RequestState attempts a single-step transition. Callers asking for a
// multi-step change (e.g. NULL -> PLAYING) must step through READY and
// PAUSED themselves, same as GStreamer.
func (g *Graph) RequestState(to State) error {
	g.mu.Lock()
	from := g.state
	if !CanTransition(from, to) {
		g.mu.Unlock()
		return ErrInvalidTransition{From: from, To: to}
	}
	g.transitioning.Store(true)
	g.mu.Unlock()

	if err := g.notify(from, to); err != nil {
		g.transitioning.Store(false)
		return err
	}

	g.mu.Lock()
	g.state = to
	g.enteredAt = time.Now()
	g.mu.Unlock()
	g.transitioning.Store(false)
	return nil
}

func (g *Graph) notify(from, to State) error {
	order := g.stages
	descending := to < from
	if descending {
		order = reversed(g.stages)
	}
	for _, s := range order {
		var err error
		switch to {
		case StateReady:
			err = s.OnReady()
		case StatePlaying:
			err = s.OnPlay()
		case StatePaused:
			err = s.OnPause()
		case StateNull:
			err = s.OnNull()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func reversed(in []Stage) []Stage {
	out := make([]Stage, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

// StartWatchdog runs the deadlock-recovery loop until Stop is called. It
// polls every checkInterval; if a transition has been in progress for
// longer than watchdogTimeout since the last state was entered, it escalates
// (a graph resting in any state with no transition in progress is never
// treated as stuck):
// revert one step back toward the previous stable state, then force READY,
// then force NULL, reporting a CategoryPipelineDeadlock record at each step.
func (g *Graph) StartWatchdog(checkInterval time.Duration) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stopCh:
				return
			case <-ticker.C:
				g.checkDeadlock()
			}
		}
	}()
}

func (g *Graph) checkDeadlock() {
	g.mu.Lock()
	stuck := g.transitioning.Load() && time.Since(g.enteredAt) > g.watchdogTimeout
	current := g.state
	g.mu.Unlock()

	if !stuck {
		return
	}

	g.sink.Submit(errsink.New("pipeline", errsink.CategoryPipelineDeadlock, 0, nil,
		"pipeline stuck mid-transition from "+current.String()+"; escalating recovery"))

	// Step down one level of the normal ladder rather than jumping straight
	// to a state RequestState wouldn't accept from here (e.g. PLAYING can
	// only ever step to PAUSED, never straight to READY) — repeated stuck
	// detections walk PLAYING -> PAUSED -> READY -> NULL one level at a time.
	switch current {
	case StatePlaying:
		g.forceState(StatePaused)
	case StatePaused:
		g.forceState(StateReady)
	default:
		// Bottom of the ladder. When the ladder was entered from PLAYING or
		// PAUSED, earlier stuck detections have already stepped it down to
		// here; a transition stuck while the graph is at READY or NULL
		// reaches this branch on its first detection. Forcing NULL is the
		// last resort, so this occurrence is terminal rather than merely
		// informational.
		g.forceState(StateNull)
		g.sink.Submit(errsink.NewFatal("pipeline", errsink.CategoryPipelineDeadlock, 0, nil,
			"pipeline deadlock recovery exhausted: stuck at "+current.String()+"; forced to NULL"))
	}
}

// forceState bypasses the normal transition table to recover from a stuck
// transition: it best-effort notifies stages of the drop (ignoring any
// per-stage error, since the graph is already in an abnormal state) and
// pins the graph at to.
func (g *Graph) forceState(to State) {
	g.mu.Lock()
	from := g.state
	g.mu.Unlock()

	_ = g.notify(from, to)

	g.mu.Lock()
	g.state = to
	g.enteredAt = time.Now()
	g.transitioning.Store(false)
	g.mu.Unlock()
}

func (g *Graph) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}
