package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrField(t *testing.T) {
	evt := map[string]any{"page": "home", "count": 3}

	assert.Equal(t, "home", strField(evt, "page"))
	assert.Equal(t, "", strField(evt, "missing"))
	assert.Equal(t, "", strField(evt, "count"))
}

func TestIntField(t *testing.T) {
	tests := []struct {
		name string
		evt  map[string]any
		want int64
	}{
		{"int", map[string]any{"result_count": 7}, 7},
		{"int64", map[string]any{"result_count": int64(7)}, 7},
		{"json float64", map[string]any{"result_count": float64(7)}, 7},
		{"missing", map[string]any{}, 0},
		{"wrong type", map[string]any{"result_count": "7"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intField(tt.evt, "result_count"))
		})
	}
}

func TestEventTime(t *testing.T) {
	ms := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	got := eventTime(map[string]any{"timestamp": float64(ms)})
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), got)

	// No timestamp falls back to roughly now.
	fallback := eventTime(map[string]any{})
	assert.WithinDuration(t, time.Now().UTC(), fallback, time.Minute)
}
