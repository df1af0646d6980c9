package tee

import (
	"sync"

	"gridcam/internal/mediaframe"
)

// RecordBranch is the never-drop output of the tee feeding one cell's
// Record Bin. It is a bounded channel: the Ring Buffer downstream always
// drains it promptly (one frame at a time, synchronously), so under normal
// operation it never fills; a generous buffer just absorbs scheduling
// jitter between the tee goroutine and the record bin goroutine.
type RecordBranch chan mediaframe.Frame

// Tee fans a single Frame stream out to the live branch and to whichever
// record branches are currently attached. Attach/Detach take the same lock
// as Push so a branch can never see a torn view of "currently attached".
type Tee struct {
	mu       sync.Mutex
	live     *LiveBuffer
	branches map[int]RecordBranch
}

func New(live *LiveBuffer) *Tee {
	return &Tee{
		live:     live,
		branches: make(map[int]RecordBranch),
	}
}

// Attach creates and registers a record branch for cell, sized to bufSize
// frames. Re-attaching an already-attached cell replaces its branch (the
// old one is simply dropped; callers only do this between recordings).
func (t *Tee) Attach(cell int, bufSize int) RecordBranch {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := make(RecordBranch, bufSize)
	t.branches[cell] = b
	return b
}

// Detach unregisters cell's record branch and closes the channel, so the
// Record Bin's drain goroutine observes end-of-input (ok == false) once it
// has received every frame Push already queued, rather than racing a
// context cancellation against pending sends.
func (t *Tee) Detach(cell int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.branches[cell]; ok {
		close(b)
	}
	delete(t.branches, cell)
}

// Push fans f out to the live buffer (always) and to every attached record
// branch. Unlike the live branch (intentionally leaky — the newest frame
// always wins), a record branch must never silently drop a frame: Push
// blocks until the branch has room, applying natural backpressure to the
// Camera Source when a Record Bin falls behind, up to the branch's bounded
// capacity. Push holds the same lock Attach/Detach use for the whole send,
// so a branch can never be closed out from under a send in progress.
func (t *Tee) Push(f mediaframe.Frame) {
	t.live.Write(f)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range t.branches {
		b <- f
	}
}

// ActiveBranches returns the number of cells currently recording.
func (t *Tee) ActiveBranches() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.branches)
}
