package camerasrc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridcam/internal/mediaframe"
)

type collectingSink struct {
	mu     sync.Mutex
	frames []mediaframe.Frame
}

func (c *collectingSink) Push(f mediaframe.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
}

func (c *collectingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestFakeSourceEmitsFramesAtConfiguredRate(t *testing.T) {
	sink := &collectingSink{}
	src := NewFakeSource(sink, mediaframe.CameraFormat{Width: 16, Height: 16, FPS: 100})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Start(ctx))
	time.Sleep(120 * time.Millisecond)
	src.Stop()
	cancel()

	assert.Greater(t, sink.count(), 5, "expected several frames emitted within 120ms at 100fps")
	assert.False(t, src.Running())
}

func TestGenerateFrameIsDeterministic(t *testing.T) {
	a := generateFrame(42, 8, 8)
	b := generateFrame(42, 8, 8)
	assert.Equal(t, a.At(3, 3), b.At(3, 3))
}

func TestGenerateFrameVariesBySequence(t *testing.T) {
	a := generateFrame(1, 8, 8)
	b := generateFrame(2, 8, 8)
	assert.NotEqual(t, a.At(0, 0), b.At(0, 0))
}
