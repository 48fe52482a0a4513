// Package presence maintains a lightweight liveness heartbeat. Each device
// upserts a single "last seen" record keyed by its device identifier, which
// makes the write idempotent by construction; the read side counts records
// seen within the live window to approximate concurrent users.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/logger"
	"github.com/villagehub/bizdir/internal/metrics"
)

// Pinger persists heartbeat records. The analytics sink satisfies it.
type Pinger interface {
	UpsertPresence(ctx context.Context, ping domain.PresencePing) error
}

// Config configures the Monitor. Zero durations fall back to the defaults
// in constants.go.
type Config struct {
	Interval time.Duration
	Recency  time.Duration
}

// Monitor emits a heartbeat on a fixed interval, but only while the session
// is visible and the user has interacted within the recency window. Failed
// pings are logged and skipped; the next tick tries again.
type Monitor struct {
	pinger   Pinger
	deviceID string
	interval time.Duration
	recency  time.Duration
	now      func() time.Time

	mu           sync.Mutex
	visible      bool
	lastActivity time.Time

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewMonitor creates a monitor for the given device.
func NewMonitor(pinger Pinger, deviceID string, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Recency <= 0 {
		cfg.Recency = DefaultRecencyWindow
	}
	return &Monitor{
		pinger:   pinger,
		deviceID: deviceID,
		interval: cfg.Interval,
		recency:  cfg.Recency,
		now:      time.Now,
		visible:  true,
		quit:     make(chan struct{}),
	}
}

// Start launches the heartbeat loop.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.tick(ctx)
			case <-m.quit:
				return
			}
		}
	}()
}

// Stop halts the heartbeat loop and waits for it to exit.
func (m *Monitor) Stop() {
	close(m.quit)
	m.wg.Wait()
}

// Touch records a user interaction.
func (m *Monitor) Touch() {
	m.mu.Lock()
	m.lastActivity = m.now()
	m.mu.Unlock()
}

// SetVisible records whether the session is currently visible. Heartbeats
// are suppressed while hidden.
func (m *Monitor) SetVisible(visible bool) {
	m.mu.Lock()
	m.visible = visible
	m.mu.Unlock()
}

func (m *Monitor) tick(ctx context.Context) {
	if !m.shouldPing() {
		return
	}

	ping := domain.PresencePing{
		DeviceID: m.deviceID,
		LastSeen: m.now(),
	}
	if err := m.pinger.UpsertPresence(ctx, ping); err != nil {
		logger.FromContext(ctx).Warn("Failed to record presence ping",
			"device_id", m.deviceID,
			"error", err)
		return
	}

	metrics.PresencePings.Inc()
}

// shouldPing reports whether the session counts as active: visible, and
// interacted with inside the recency window.
func (m *Monitor) shouldPing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible {
		return false
	}
	return m.now().Sub(m.lastActivity) <= m.recency
}
