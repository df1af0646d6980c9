// Package tee implements the Capture Tee: fan-out from the Camera Source to
// one leaky live branch (cell 1) and up to nine never-drop record branches
// (cells 2-10, one per held key). The live branch's lock-free double-buffer
// swap is adapted directly from the teacher's internal/camera/framebuffer.go
// FrameBuffer — the same "always show the latest sample, never block the
// writer" contract the teacher used for its own camera preview tiles.
package tee

import (
	"sync/atomic"

	"gridcam/internal/mediaframe"
)

// LiveBuffer holds the single most recent Frame for the live branch. Write
// never blocks; a reader that calls ReadIfNew only pays the cost of
// obtaining a new Frame, never a duplicate one.
type LiveBuffer struct {
	slots      [2]mediaframe.Frame
	writeIndex atomic.Int32
	readIndex  atomic.Int32
	sequence   atomic.Uint64
	dropped    atomic.Uint64
}

func NewLiveBuffer() *LiveBuffer {
	return &LiveBuffer{}
}

// Write stores f in the inactive slot and publishes it atomically.
func (b *LiveBuffer) Write(f mediaframe.Frame) {
	w := b.writeIndex.Load()
	next := 1 - w
	b.slots[next] = f
	b.writeIndex.Store(next)
	b.readIndex.Store(next)
	b.sequence.Add(1)
}

// Read returns the most recently written Frame, or the zero Frame if none
// has been written yet.
func (b *LiveBuffer) Read() mediaframe.Frame {
	return b.slots[b.readIndex.Load()]
}

// ReadIfNew returns the current Frame only if its SequenceNumber differs
// from lastSeen, avoiding redundant compositor work when the camera has not
// produced a new sample since the caller's last read.
func (b *LiveBuffer) ReadIfNew(lastSeen uint64) (mediaframe.Frame, uint64, bool) {
	f := b.Read()
	if f.SequenceNumber == lastSeen && lastSeen != 0 {
		return mediaframe.Frame{}, lastSeen, false
	}
	return f, f.SequenceNumber, true
}

// MarkDropped records that a frame destined for this branch was discarded
// (e.g. the live branch fell behind the camera's own rate).
func (b *LiveBuffer) MarkDropped() {
	b.dropped.Add(1)
}

func (b *LiveBuffer) DroppedCount() uint64 {
	return b.dropped.Load()
}
