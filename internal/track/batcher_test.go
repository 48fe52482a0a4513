package track

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every bulk insert and can optionally block until
// released, to simulate a slow network call mid-flush.
type recordingSink struct {
	mu      sync.Mutex
	batches []sinkCall

	block   chan struct{}
	failFor string
}

type sinkCall struct {
	table  string
	events []map[string]any
}

func (s *recordingSink) BulkInsert(ctx context.Context, table string, events []map[string]any) error {
	if s.block != nil {
		<-s.block
	}
	if s.failFor == table {
		return errors.New("sink unavailable")
	}
	s.mu.Lock()
	s.batches = append(s.batches, sinkCall{table: table, events: events})
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) calls() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall{}, s.batches...)
}

func (s *recordingSink) totalEvents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, call := range s.batches {
		n += len(call.events)
	}
	return n
}

func enabledConfig(delay time.Duration) Config {
	return Config{Enabled: true, Threshold: 10, FlushDelay: delay}
}

func TestEnqueue_BelowThresholdSchedulesSingleFlush(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, enabledConfig(time.Hour))

	for i := 0; i < 9; i++ {
		tracker.Enqueue("page_visits", map[string]any{"page": fmt.Sprintf("p%d", i)})
	}

	assert.Equal(t, 9, tracker.pending())
	assert.True(t, tracker.timerArmed())
	assert.Empty(t, sink.calls())
}

func TestEnqueue_ThresholdTriggersImmediateFlush(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, enabledConfig(time.Hour))

	for i := 0; i < 10; i++ {
		tracker.Enqueue("page_visits", map[string]any{"page": fmt.Sprintf("p%d", i)})
	}
	tracker.Shutdown(context.Background())

	assert.Equal(t, 0, tracker.pending())
	assert.False(t, tracker.timerArmed())

	calls := sink.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "page_visits", calls[0].table)
	assert.Len(t, calls[0].events, 10)
}

func TestEnqueue_DebounceTimerFires(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, enabledConfig(20*time.Millisecond))

	tracker.Enqueue("page_visits", map[string]any{"page": "home"})
	tracker.Enqueue("page_visits", map[string]any{"page": "detail"})

	require.Eventually(t, func() bool {
		return sink.totalEvents() == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, tracker.pending())
}

func TestEnqueue_DisabledIsNoOp(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, Config{Enabled: false})

	for i := 0; i < 25; i++ {
		tracker.Enqueue("page_visits", map[string]any{"page": "home"})
	}

	assert.Equal(t, 0, tracker.pending())
	assert.False(t, tracker.timerArmed())
	assert.Empty(t, sink.calls())
}

func TestFlush_MidFlushEnqueueLandsInNextFlush(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	tracker := NewTracker(sink, enabledConfig(time.Hour))

	tracker.Enqueue("page_visits", map[string]any{"page": "a"})
	tracker.Enqueue("page_visits", map[string]any{"page": "b"})
	tracker.Enqueue("page_visits", map[string]any{"page": "c"})

	done := make(chan struct{})
	go func() {
		tracker.Flush(context.Background())
		close(done)
	}()

	// The flush has swapped the queue and is blocked in the sink. New events
	// must land in the fresh queue, not the in-flight batch.
	require.Eventually(t, func() bool {
		return tracker.pending() == 0
	}, time.Second, time.Millisecond)

	tracker.Enqueue("page_visits", map[string]any{"page": "d"})
	tracker.Enqueue("page_visits", map[string]any{"page": "e"})
	assert.Equal(t, 2, tracker.pending())

	close(sink.block)
	<-done
	sink.block = nil

	tracker.Flush(context.Background())

	calls := sink.calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0].events, 3)
	assert.Len(t, calls[1].events, 2)
	assert.Equal(t, 5, sink.totalEvents())
}

func TestFlush_GroupsByTable(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, enabledConfig(time.Hour))

	tracker.Enqueue("page_visits", map[string]any{"page": "home"})
	tracker.Enqueue("business_interactions", map[string]any{"business_id": "biz-1"})
	tracker.Enqueue("page_visits", map[string]any{"page": "detail"})

	tracker.Flush(context.Background())

	byTable := map[string]int{}
	for _, call := range sink.calls() {
		byTable[call.table] += len(call.events)
	}
	assert.Equal(t, 2, byTable["page_visits"])
	assert.Equal(t, 1, byTable["business_interactions"])
}

func TestFlush_FailedGroupDoesNotBlockOthers(t *testing.T) {
	sink := &recordingSink{failFor: "business_interactions"}
	tracker := NewTracker(sink, enabledConfig(time.Hour))

	tracker.Enqueue("business_interactions", map[string]any{"business_id": "biz-1"})
	tracker.Enqueue("page_visits", map[string]any{"page": "home"})

	// Must not panic or return an error; failed group is silently dropped.
	tracker.Flush(context.Background())

	calls := sink.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "page_visits", calls[0].table)
	assert.Equal(t, 0, tracker.pending())
}

func TestShutdown_DrainsAndRejectsNewEvents(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, enabledConfig(time.Hour))

	tracker.Enqueue("page_visits", map[string]any{"page": "home"})
	tracker.Shutdown(context.Background())

	assert.Equal(t, 1, sink.totalEvents())

	tracker.Enqueue("page_visits", map[string]any{"page": "late"})
	assert.Equal(t, 0, tracker.pending())
	assert.Equal(t, 1, sink.totalEvents())
}
