package camerasrc

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"gridcam/internal/mediaframe"
)

// FakeSource is a deterministic synthetic camera used in headless tests, in
// place of the real FFmpeg/v4l2 Source. It generates a distinct,
// reproducible gradient per frame number rather than reading real hardware
// — the same role the teacher's generateRealisticFrame plays in its
// test-pattern fallback loop (internal/camera/capture.go), adapted here
// from "fallback when hardware capture fails" to "the whole source, for
// tests that must not depend on hardware".
type FakeSource struct {
	sink   FrameSink
	format mediaframe.CameraFormat

	sequence atomic.Uint64
	running  atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewFakeSource(sink FrameSink, format mediaframe.CameraFormat) *FakeSource {
	return &FakeSource{sink: sink, format: format}
}

func (f *FakeSource) Format() mediaframe.CameraFormat { return f.format }

// Start begins emitting synthetic frames at f.format.FPS until Stop is
// called or ctx is cancelled.
func (f *FakeSource) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()
	f.running.Store(true)

	interval := time.Second / time.Duration(f.format.FPS)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				n := f.sequence.Add(1)
				f.sink.Push(mediaframe.Frame{
					Image:          generateFrame(n, f.format.Width, f.format.Height),
					SequenceNumber: n,
					CapturedAt:     time.Now(),
					Format:         f.format,
				})
			}
		}
	}()
	return nil
}

func (f *FakeSource) Stop() {
	f.running.Store(false)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()
}

func (f *FakeSource) Running() bool { return f.running.Load() }

// generateFrame produces a deterministic colour ramp keyed on the frame
// number, so a test can assert on pixel identity without decoding a real
// JPEG stream.
func generateFrame(seq uint64, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r := uint8(seq * 7 % 256)
	g := uint8(seq * 13 % 256)
	b := uint8(seq * 29 % 256)
	fill := color.RGBA{R: r, G: g, B: b, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	return img
}
