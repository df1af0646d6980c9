// Package resmon watches host resource pressure and approximates whether the
// compositor's frame budget has room for another buffered clip. It replaces
// the teacher's hand-rolled /proc memory sampling (internal/perf/monitor.go)
// with gopsutil, which already ships host-level memory and CPU readers
// across platforms.
package resmon

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// Monitor samples host memory on demand and caches the result briefly so a
// burst of per-cell budget checks (one per key press) doesn't hammer the
// underlying /proc or syscall read on every call.
type Monitor struct {
	log          *logrus.Logger
	budgetBytes  int64
	cacheTTL     time.Duration
	highWatermark float64 // fraction of total memory considered "high usage"

	mu        sync.Mutex
	lastSample time.Time
	lastUsed   uint64
	lastTotal  uint64
}

// New returns a Monitor that treats budgetBytes as the approximate ceiling
// for frame-buffer memory (ring buffers plus the compositor's working set)
// and has CheckBudget refuse a new recording that would push host memory
// usage past highWatermark (0.0-1.0).
func New(log *logrus.Logger, budgetBytes int64, highWatermark float64) *Monitor {
	return &Monitor{
		log:           log,
		budgetBytes:   budgetBytes,
		cacheTTL:      time.Second,
		highWatermark: highWatermark,
	}
}

// sample refreshes the cached host memory reading if it's gone stale.
func (m *Monitor) sample() (used, total uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastSample) < m.cacheTTL && m.lastTotal > 0 {
		return m.lastUsed, m.lastTotal
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		// Keep the previous reading rather than treating a transient sampling
		// failure as a hard resource-exhaustion signal.
		if m.log != nil {
			m.log.WithError(err).Warn("resmon: failed to sample host memory")
		}
		return m.lastUsed, m.lastTotal
	}

	m.lastSample = time.Now()
	m.lastUsed = vm.Used
	m.lastTotal = vm.Total
	return m.lastUsed, m.lastTotal
}

// CheckBudget approximates whether one more recording of estimatedBytes
// buffered frames (width * height * 4 per frame, times ring buffer
// capacity), on top of inFlight recordings of the same size, would exceed
// the configured GPU memory budget or push host
// memory usage past the high watermark. It returns false with a reason when
// either guard trips, matching the ResourceExhausted recoverable category:
// the caller refuses the new recording rather than starting it.
func (m *Monitor) CheckBudget(estimatedBytes int64, inFlight int64) (ok bool, reason string) {
	if estimatedBytes*(inFlight+1) > m.budgetBytes {
		return false, "estimated buffered-frame memory would exceed the configured GPU memory budget"
	}

	used, total := m.sample()
	if total == 0 {
		return true, "" // couldn't sample; don't block recording on an unknown
	}
	if float64(used+uint64(estimatedBytes))/float64(total) > m.highWatermark {
		return false, "host memory usage is already near the configured high watermark"
	}
	return true, ""
}

// UsageFraction returns the most recent used/total memory ratio, for health
// logging.
func (m *Monitor) UsageFraction() float64 {
	used, total := m.sample()
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}
