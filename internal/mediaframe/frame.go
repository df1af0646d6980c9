// Package mediaframe defines the Frame and CameraFormat types shared by
// every pipeline stage.
package mediaframe

import (
	"image"
	"time"
)

// Frame is one decoded image plus the metadata the pipeline needs to order,
// drop, and present it. Frames are immutable once produced: a stage that
// wants to transform one builds a new Frame around a new image.Image rather
// than mutating Pix in place, so a Frame can be handed to several
// downstream branches (tee, ring buffer, compositor) without a data race.
type Frame struct {
	Image          image.Image
	SequenceNumber uint64
	CapturedAt     time.Time
	Format         CameraFormat
}

// Clone returns a shallow copy of f. The underlying image.Image is shared
// (images are treated as immutable after capture), only the struct value is
// copied, which is enough for a consumer to hold its own SequenceNumber /
// CapturedAt bookkeeping independent of the producer's.
func (f Frame) Clone() Frame {
	return f
}
