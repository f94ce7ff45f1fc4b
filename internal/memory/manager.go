// Package memory keeps the process footprint bounded during long
// monitoring sessions: usage is sampled periodically, and crossing the
// configured threshold triggers garbage collection plus registered
// cleanup hooks (history trimming, cache drops).
package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
)

const optimizeRestoreAfter = 60 * time.Second

// CleanupFunc releases memory held outside the manager's view
type CleanupFunc func()

// Manager watches process memory usage against a threshold
type Manager struct {
	log *zerolog.Logger

	// usageMB is replaceable for tests
	usageMB func() float64

	mu          sync.Mutex
	thresholdMB float64
	baselineMB  float64 // threshold to restore after an optimize window
	interval    time.Duration
	callbacks   []CleanupFunc
	cleanups    int
	restore     *time.Timer

	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewManager creates a memory manager with the given threshold and
// check interval.
func NewManager(thresholdMB float64, interval time.Duration) *Manager {
	return &Manager{
		log:         logger.WithComponent("memory-manager"),
		usageMB:     heapUsageMB,
		thresholdMB: thresholdMB,
		baselineMB:  thresholdMB,
		interval:    interval,
	}
}

func heapUsageMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1024 * 1024)
}

// AddCleanupCallback registers a hook run on every cleanup
func (m *Manager) AddCleanupCallback(cb CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// UsageMB reports current heap usage in megabytes
func (m *Manager) UsageMB() float64 {
	return m.usageMB()
}

// CleanupCount reports how many cleanups have run
func (m *Manager) CleanupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanups
}

// ForceCleanup runs the cleanup hooks and compacts the heap
func (m *Manager) ForceCleanup() {
	m.mu.Lock()
	cbs := append([]CleanupFunc(nil), m.callbacks...)
	m.cleanups++
	m.mu.Unlock()

	before := m.usageMB()
	for _, cb := range cbs {
		cb()
	}
	runtime.GC()
	debug.FreeOSMemory()

	m.log.Debug().
		Float64("before_mb", before).
		Float64("after_mb", m.usageMB()).
		Msg("Memory cleanup")
}

// OptimizeForScreenshots prepares for an imminent large allocation:
// the heap is compacted now and the threshold is halved so the next
// checks are aggressive, restoring the configured value a minute
// later.
func (m *Manager) OptimizeForScreenshots() {
	m.ForceCleanup()

	m.mu.Lock()
	m.thresholdMB = m.baselineMB / 2
	if m.restore != nil {
		m.restore.Stop()
	}
	m.restore = time.AfterFunc(optimizeRestoreAfter, func() {
		m.mu.Lock()
		m.thresholdMB = m.baselineMB
		m.mu.Unlock()
	})
	m.mu.Unlock()
}

// Start begins periodic threshold checks
func (m *Manager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})
	stop, done := m.stopChan, m.doneChan
	m.mu.Unlock()

	go m.watch(stop, done)
}

// Stop halts the periodic checks
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stopChan, m.doneChan
	if m.restore != nil {
		m.restore.Stop()
	}
	m.mu.Unlock()

	close(stop)
	<-done
}

func (m *Manager) watch(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.checkOnce()
		}
	}
}

func (m *Manager) checkOnce() {
	m.mu.Lock()
	threshold := m.thresholdMB
	m.mu.Unlock()

	usage := m.usageMB()
	if usage < threshold {
		return
	}

	m.log.Info().
		Float64("usage_mb", usage).
		Float64("threshold_mb", threshold).
		Msg("Memory threshold exceeded")
	m.ForceCleanup()
}
