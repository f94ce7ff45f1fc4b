package window

import (
	"sync"
	"time"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/rs/zerolog"
)

const (
	cacheTTL = 1 * time.Second

	historyMax  = 50
	historyTrim = 25

	stopTimeout = 3 * time.Second
)

// UpdateCallback is invoked with each newly detected foreground window
type UpdateCallback func(*Info)

// Detector tracks the foreground window through a Backend, caching
// lookups and keeping a bounded history of recently seen windows.
type Detector struct {
	backend Backend
	log     *zerolog.Logger

	// clock is replaceable for tests
	clock func() time.Time

	mu        sync.Mutex
	cached    *Info
	cachedAt  time.Time
	history   []*Info
	callbacks map[int]UpdateCallback
	nextCB    int

	monitoring bool
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewDetector creates a detector over the given backend
func NewDetector(backend Backend) *Detector {
	return &Detector{
		backend:   backend,
		log:       logger.WithComponent("window-detector"),
		clock:     time.Now,
		callbacks: make(map[int]UpdateCallback),
	}
}

// CurrentApp returns the current foreground window. With useCache set,
// a lookup younger than one second is returned as-is, so bursts of
// calls share one snapshot.
func (d *Detector) CurrentApp(useCache bool) (*Info, error) {
	d.mu.Lock()
	if useCache && d.cached != nil && d.clock().Sub(d.cachedAt) < cacheTTL {
		info := d.cached
		d.mu.Unlock()
		return info, nil
	}
	d.mu.Unlock()

	info, err := d.backend.ActiveWindow()
	if err != nil {
		return nil, err
	}

	classify(info)

	d.mu.Lock()
	d.cached = info
	d.cachedAt = d.clock()
	d.recordLocked(info)
	d.mu.Unlock()

	return info, nil
}

// recordLocked appends to history, skipping consecutive entries for
// the same application and trimming when the bound is reached.
// Caller holds d.mu.
func (d *Detector) recordLocked(info *Info) {
	if n := len(d.history); n > 0 && d.history[n-1].Name == info.Name {
		return
	}

	d.history = append(d.history, info)
	if len(d.history) >= historyMax {
		d.history = append([]*Info{}, d.history[len(d.history)-historyTrim:]...)
	}
}

// History returns a copy of the recorded window history, oldest first
func (d *Detector) History() []*Info {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*Info, len(d.history))
	copy(out, d.history)
	return out
}

// ClearHistory drops all recorded history
func (d *Detector) ClearHistory() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = nil
}

// Capabilities reports what the active backend supports
func (d *Detector) Capabilities() Capabilities {
	return d.backend.Capabilities()
}

// Backend exposes the underlying backend
func (d *Detector) Backend() Backend {
	return d.backend
}

// AddUpdateCallback registers a callback invoked on each detected
// window change. The returned function unsubscribes it.
func (d *Detector) AddUpdateCallback(cb UpdateCallback) func() {
	d.mu.Lock()
	id := d.nextCB
	d.nextCB++
	d.callbacks[id] = cb
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.callbacks, id)
		d.mu.Unlock()
	}
}

// StartMonitoring begins polling the foreground window at the given
// interval, notifying callbacks on changes. Safe to call when already
// monitoring.
func (d *Detector) StartMonitoring(interval time.Duration) {
	d.mu.Lock()
	if d.monitoring {
		d.mu.Unlock()
		return
	}
	d.monitoring = true
	d.stopChan = make(chan struct{})
	d.doneChan = make(chan struct{})
	stop, done := d.stopChan, d.doneChan
	d.mu.Unlock()

	d.log.Info().Dur("interval", interval).Msg("Starting window monitoring")

	go d.monitorLoop(interval, stop, done)
}

// StopMonitoring stops the poll loop, waiting a bounded time for it
// to finish.
func (d *Detector) StopMonitoring() {
	d.mu.Lock()
	if !d.monitoring {
		d.mu.Unlock()
		return
	}
	d.monitoring = false
	stop, done := d.stopChan, d.doneChan
	d.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(stopTimeout):
		d.log.Warn().Msg("Monitor loop did not stop in time")
	}
}

func (d *Detector) monitorLoop(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastID uint32
	var lastName string

	for {
		select {
		case <-stop:
			d.log.Info().Msg("Window monitoring stopped")
			return
		case <-ticker.C:
			info, err := d.CurrentApp(false)
			if err != nil {
				if err != ErrNoActiveWindow {
					d.log.Debug().Err(err).Msg("Window lookup failed")
				}
				continue
			}

			if info.WindowID == lastID && info.Name == lastName {
				continue
			}
			lastID, lastName = info.WindowID, info.Name

			d.log.Debug().
				Str("app", info.Name).
				Str("title", info.Title).
				Bool("fullscreen", info.Fullscreen).
				Msg("Foreground window changed")

			d.notify(info)
		}
	}
}

// notify invokes registered callbacks synchronously, isolating
// panics so one misbehaving subscriber cannot kill the poll loop.
func (d *Detector) notify(info *Info) {
	d.mu.Lock()
	cbs := make([]UpdateCallback, 0, len(d.callbacks))
	for _, cb := range d.callbacks {
		cbs = append(cbs, cb)
	}
	d.mu.Unlock()

	for _, cb := range cbs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.log.Error().Interface("panic", r).Msg("Update callback panicked")
				}
			}()
			cb(info)
		}()
	}
}
