// Package renderer implements the Renderer stage: a clock-synchronised sink
// that blits the Compositor's output onto a Fyne canvas.Image at a fixed
// tick rate and reports every presented frame to the Frame Monitor. The
// ticker-driven refresh loop is adapted from the teacher's
// internal/ui/app.go startCameraRefresh/updateFullscreenLoop pattern.
package renderer

import (
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2/canvas"

	"gridcam/internal/monitor"
)

// Renderer owns the canvas.Image the window displays and the goroutine
// presenting new frames to it at TargetFPS.
type Renderer struct {
	target  *canvas.Image
	mon     *monitor.Window
	fps     float64
	pullFn  func() image.Image

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// New creates a Renderer bound to target, presenting frames produced by
// pull at fps, each presented frame reported to mon.
func New(target *canvas.Image, mon *monitor.Window, fps float64, pull func() image.Image) *Renderer {
	return &Renderer{target: target, mon: mon, fps: fps, pullFn: pull}
}

// Start begins the render loop. It is idempotent: calling Start while
// already running is a no-op.
func (r *Renderer) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stop := r.stopCh
	r.mu.Unlock()

	interval := time.Duration(float64(time.Second) / r.fps)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.presentOnce()
			}
		}
	}()
}

func (r *Renderer) presentOnce() {
	img := r.pullFn()
	if img == nil {
		return
	}
	now := time.Now()
	r.mon.CheckInterval(now)

	r.target.Image = img
	r.target.Refresh()

	r.mon.OnRendered(now)
}

// Stop halts the render loop. Safe to call when not running.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// Running reports whether the render loop is active.
func (r *Renderer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Name identifies this stage to the pipeline Graph.
func (r *Renderer) Name() string { return "renderer" }

// OnReady is a no-op: the canvas.Image and pull function are already bound
// at construction, so there is nothing further to prepare on entering READY.
func (r *Renderer) OnReady() error { return nil }

// OnPlay starts the render loop, satisfying pipeline.Stage so the Graph's
// watchdog has a real stage to notify (and potentially recover) rather than
// an empty stage list.
func (r *Renderer) OnPlay() error {
	r.Start()
	return nil
}

// OnPause stops the render loop; the canvas keeps showing the last
// presented frame until OnPlay resumes it.
func (r *Renderer) OnPause() error {
	r.Stop()
	return nil
}

// OnNull stops the render loop, same as OnPause — the Renderer has no
// further teardown beyond halting presentation.
func (r *Renderer) OnNull() error {
	r.Stop()
	return nil
}
