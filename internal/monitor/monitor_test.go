package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInsufficientDataBelowTwoSamples(t *testing.T) {
	w := New(300, 120, 2)
	assert.Equal(t, VerdictInsufficientData, w.Classify())
	w.OnRendered(time.Now())
	assert.Equal(t, VerdictInsufficientData, w.Classify())
}

func TestValidWhenSteadyAtTarget(t *testing.T) {
	w := New(300, 120, 5)
	start := time.Now()
	interval := time.Second / 120
	for i := 0; i < 50; i++ {
		w.OnRendered(start.Add(time.Duration(i) * interval))
	}
	assert.Equal(t, VerdictValid, w.Classify())
	assert.InDelta(t, 120.0, w.ObservedFPS(), 1.0)
}

func TestLowWhenSlowerThanTarget(t *testing.T) {
	w := New(300, 120, 2)
	start := time.Now()
	interval := time.Second / 60 // half the target rate
	for i := 0; i < 50; i++ {
		w.OnRendered(start.Add(time.Duration(i) * interval))
	}
	assert.Equal(t, VerdictLow, w.Classify())
}

func TestHighWhenFasterThanTarget(t *testing.T) {
	w := New(300, 60, 2)
	start := time.Now()
	interval := time.Second / 120
	for i := 0; i < 50; i++ {
		w.OnRendered(start.Add(time.Duration(i) * interval))
	}
	assert.Equal(t, VerdictHigh, w.Classify())
}

func TestUnstableWhenJittery(t *testing.T) {
	w := New(300, 120, 2)
	start := time.Now()
	t0 := start
	for i := 0; i < 50; i++ {
		var gap time.Duration
		if i%2 == 0 {
			gap = time.Second / 240
		} else {
			gap = time.Second / 40
		}
		t0 = t0.Add(gap)
		w.OnRendered(t0)
	}
	assert.Equal(t, VerdictUnstable, w.Classify())
}

func TestValidWithModerateJitterWithinTenPercentBand(t *testing.T) {
	// targetFPS=120 -> jitter gate is 12 fps stddev, well above the
	// absolute fps tolerance (2) used for the Low/High comparison. A stream
	// alternating gently around 120fps with a few fps of spread must still
	// classify Valid rather than Unstable.
	w := New(300, 120, 2)
	start := time.Now()
	t0 := start
	for i := 0; i < 50; i++ {
		fps := 120.0
		if i%2 == 0 {
			fps = 124
		} else {
			fps = 116
		}
		gap := time.Duration(float64(time.Second) / fps)
		t0 = t0.Add(gap)
		w.OnRendered(t0)
	}
	assert.Equal(t, VerdictValid, w.Classify())
}

func TestInsufficientDataBelowMinValidSamples(t *testing.T) {
	w := New(300, 120, 5)
	start := time.Now()
	interval := time.Second / 120
	for i := 0; i < minValidSamples-1; i++ {
		w.OnRendered(start.Add(time.Duration(i) * interval))
	}
	assert.Equal(t, VerdictInsufficientData, w.Classify(), "fewer than minValidSamples must not report Valid")
}

func TestCheckIntervalFlagsLargeGapAsDropped(t *testing.T) {
	w := New(300, 120, 2)
	start := time.Now()
	w.OnRendered(start)
	w.CheckInterval(start.Add(time.Second)) // way more than 1.5x expected interval
	assert.Equal(t, uint64(1), w.DroppedFrames())
}

func TestCheckIntervalIgnoresNormalGap(t *testing.T) {
	w := New(300, 120, 2)
	start := time.Now()
	w.OnRendered(start)
	w.CheckInterval(start.Add(time.Second / 120))
	assert.Equal(t, uint64(0), w.DroppedFrames())
}

func TestWindowRespectsCapacity(t *testing.T) {
	w := New(5, 120, 2)
	start := time.Now()
	for i := 0; i < 20; i++ {
		w.OnRendered(start.Add(time.Duration(i) * time.Millisecond))
	}
	assert.LessOrEqual(t, len(w.timestamps), 5)
}
