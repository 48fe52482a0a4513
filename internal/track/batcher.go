// Package track buffers analytics events in memory and delivers them to the
// analytics sink in batches. Delivery is best-effort: a failed batch is
// logged and dropped, never retried, and never surfaces to the caller.
package track

import (
	"context"
	"sync"
	"time"

	"github.com/villagehub/bizdir/internal/logger"
	"github.com/villagehub/bizdir/internal/metrics"
)

// Sink receives flushed event batches, one bulk insert per target table.
type Sink interface {
	BulkInsert(ctx context.Context, table string, events []map[string]any) error
}

// Event is a single queued analytics record bound for a target table.
type Event struct {
	Table   string
	Payload map[string]any
}

// Config configures the Tracker. Zero values fall back to the defaults in
// constants.go; Enabled false makes every Enqueue a no-op.
type Config struct {
	Enabled    bool
	Threshold  int
	FlushDelay time.Duration
}

// Tracker owns the pending-event queue and the debounce timer. At most one
// flush timer is outstanding at a time: each Enqueue below the size
// threshold replaces the previous timer, so rapid activity keeps pushing the
// flush out until either the threshold fires or activity pauses for the
// full delay.
type Tracker struct {
	sink       Sink
	enabled    bool
	threshold  int
	flushDelay time.Duration

	mu     sync.Mutex
	queue  []Event
	timer  *time.Timer
	closed bool

	inflight sync.WaitGroup
}

// NewTracker creates a tracker delivering to sink.
func NewTracker(sink Sink, cfg Config) *Tracker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultFlushThreshold
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = DefaultFlushDelay
	}
	return &Tracker{
		sink:       sink,
		enabled:    cfg.Enabled,
		threshold:  cfg.Threshold,
		flushDelay: cfg.FlushDelay,
	}
}

// Enqueue appends an event to the queue. When tracking is disabled the event
// is dropped immediately without queueing. Reaching the size threshold
// triggers an immediate background flush and cancels any pending timer;
// otherwise the debounce timer is (re)armed.
func (t *Tracker) Enqueue(table string, payload map[string]any) {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	t.queue = append(t.queue, Event{Table: table, Payload: payload})
	metrics.EventsEnqueued.WithLabelValues(table).Inc()

	if len(t.queue) >= t.threshold {
		batch := t.swapLocked()
		t.mu.Unlock()

		t.inflight.Add(1)
		go func() {
			defer t.inflight.Done()
			t.deliver(context.Background(), batch)
		}()
		return
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.flushDelay, func() {
		t.Flush(context.Background())
	})
	t.mu.Unlock()
}

// Flush synchronously drains the current queue. The queue is swapped for an
// empty one before any network call, so events enqueued while the sink is
// busy land in the next flush, never duplicated and never lost mid-flight.
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	batch := t.swapLocked()
	t.mu.Unlock()

	t.deliver(ctx, batch)
}

// Shutdown performs a final drain and waits for in-flight deliveries. The
// tracker accepts no events afterwards.
func (t *Tracker) Shutdown(ctx context.Context) {
	t.mu.Lock()
	t.closed = true
	batch := t.swapLocked()
	t.mu.Unlock()

	t.deliver(ctx, batch)
	t.inflight.Wait()
}

// swapLocked takes ownership of the queue and cancels the pending timer.
// Caller must hold t.mu.
func (t *Tracker) swapLocked() []Event {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	batch := t.queue
	t.queue = nil
	return batch
}

// deliver groups the batch by target table and issues one bulk insert per
// group. A failed group is logged and dropped; other groups still deliver.
func (t *Tracker) deliver(ctx context.Context, batch []Event) {
	if len(batch) == 0 {
		return
	}

	groups := make(map[string][]map[string]any)
	for _, evt := range batch {
		groups[evt.Table] = append(groups[evt.Table], evt.Payload)
	}

	log := logger.FromContext(ctx)
	for table, events := range groups {
		if err := t.sink.BulkInsert(ctx, table, events); err != nil {
			log.Warn("Failed to flush analytics batch",
				"table", table,
				"events", len(events),
				"error", err)
			metrics.EventsDropped.WithLabelValues(table).Add(float64(len(events)))
			continue
		}
		metrics.EventsFlushed.WithLabelValues(table).Add(float64(len(events)))
	}
}

// pending reports the current queue length. Test hook.
func (t *Tracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// timerArmed reports whether a debounce flush is scheduled. Test hook.
func (t *Tracker) timerArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
