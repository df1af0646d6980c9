// Package recordbin implements the Record Bin: the per-cell consumer that
// drains a Capture Tee record branch into a Ring Buffer while a key is
// held, then hands the buffered clip to a Playback Bin on key release.
package recordbin

import (
	"context"
	"sync"

	"gridcam/internal/errsink"
	"gridcam/internal/mediaframe"
	"gridcam/internal/ringbuffer"
	"gridcam/internal/tee"
)

// Bin owns one cell's Ring Buffer and the goroutine draining its Capture
// Tee branch.
type Bin struct {
	cell int
	ring *ringbuffer.RingBuffer
	sink errsink.Sink

	mu      sync.Mutex
	cancel  context.CancelFunc
	doneCh  chan struct{}
	running bool
}

func New(cell, capacity int, sink errsink.Sink) *Bin {
	b := &Bin{cell: cell, sink: sink}
	b.ring = ringbuffer.New(capacity, func(dropped uint64) {
		sink.Submit(errsink.New("recordbin", errsink.CategoryRecordingBufferFull, cell, nil,
			"ring buffer full, dropping oldest frame"))
	})
	return b
}

// Start begins draining branch into the ring buffer until the branch is
// closed (the normal end of a recording, via the caller's tee.Detach) or ctx
// is cancelled (an abrupt, whole-pipeline teardown). It is safe to call
// Start again after Stop once the returned done channel has closed.
func (b *Bin) Start(ctx context.Context, branch tee.RecordBranch) (done <-chan struct{}) {
	b.mu.Lock()
	b.ring.Reset()
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	doneCh := make(chan struct{})
	b.doneCh = doneCh
	b.running = true
	b.mu.Unlock()

	go func() {
		defer close(doneCh)
		for {
			select {
			case <-runCtx.Done():
				return
			case f, ok := <-branch:
				if !ok {
					return
				}
				b.ring.Push(f)
			}
		}
	}()
	return doneCh
}

// Stop returns a snapshot of the frames accumulated so far, in capture
// order — the clip handed to the Playback Bin. Callers must detach the
// cell's tee branch (closing it) before calling Stop: Stop blocks until the
// drain goroutine has observed that closure and appended every frame
// already queued at the moment of detach, so the returned snapshot always
// includes every frame accepted before key_up, per the recording-to-playing
// ordering guarantee. If the branch is never closed and the context never
// cancelled, Stop blocks until one of those happens. If Start was never
// called, Stop returns the (empty) snapshot at once.
func (b *Bin) Stop() []mediaframe.Frame {
	b.mu.Lock()
	doneCh := b.doneCh
	cancel := b.cancel
	b.running = false
	b.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	if cancel != nil {
		cancel()
	}
	return b.ring.Snapshot()
}

// Running reports whether the bin is currently draining a branch.
func (b *Bin) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Len returns the number of frames currently buffered.
func (b *Bin) Len() int {
	return b.ring.Len()
}

// Capacity returns the ring buffer's fixed capacity.
func (b *Bin) Capacity() int {
	return b.ring.Capacity()
}
