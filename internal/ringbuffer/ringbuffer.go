// Package ringbuffer implements the Ring Buffer: a bounded capacity FIFO of
// frames per recording cell. It generalises the teacher's FrameBuffer
// lock-free double-buffer (internal/camera/framebuffer.go) from "hold the
// latest frame" to "hold the last N frames", since a palindrome clip needs
// the whole window, not just the newest sample.
package ringbuffer

import (
	"sync"

	"gridcam/internal/mediaframe"
)

// RingBuffer is a fixed-capacity FIFO. When full, Push drops the oldest
// frame to make room for the newest — the buffer always holds the most
// recent Capacity() frames, never blocking the producer.
type RingBuffer struct {
	mu       sync.RWMutex
	frames   []mediaframe.Frame
	capacity int
	dropped  uint64

	onFull func(dropped uint64)
}

// New creates a RingBuffer with the given capacity. onFull, if non-nil, is
// invoked (outside the lock) the first time a push has to evict an
// unconsumed frame to make room — the Record Bin uses this to raise a
// RecordingBufferFull warning exactly once per recording rather than once
// per dropped frame.
func New(capacity int, onFull func(dropped uint64)) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{
		frames:   make([]mediaframe.Frame, 0, capacity),
		capacity: capacity,
		onFull:   onFull,
	}
}

// Push appends a frame, evicting the oldest if the buffer is already at
// capacity.
func (r *RingBuffer) Push(f mediaframe.Frame) {
	r.mu.Lock()
	wasFull := len(r.frames) >= r.capacity
	if wasFull {
		copy(r.frames, r.frames[1:])
		r.frames[len(r.frames)-1] = f
		r.dropped++
	} else {
		r.frames = append(r.frames, f)
	}
	dropped := r.dropped
	r.mu.Unlock()

	if wasFull && r.onFull != nil && dropped == 1 {
		r.onFull(dropped)
	}
}

// Len returns the number of frames currently held.
func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// Capacity returns the buffer's fixed capacity.
func (r *RingBuffer) Capacity() int {
	return r.capacity
}

// Snapshot returns a copy of the buffered frames in capture order (oldest
// first). The Playback Bin uses this once, at the moment recording stops,
// to build its palindrome traversal sequence.
func (r *RingBuffer) Snapshot() []mediaframe.Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mediaframe.Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Reset empties the buffer for reuse by the next recording on the same
// cell.
func (r *RingBuffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = r.frames[:0]
	r.dropped = 0
}

// DroppedCount returns how many frames have been evicted since the last
// Reset.
func (r *RingBuffer) DroppedCount() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}
