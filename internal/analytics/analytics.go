// Package analytics is the write/read surface for telemetry: it receives
// batched event inserts from the tracker, presence heartbeats from the
// monitor, and serves the aggregate views the admin dashboard reads.
package analytics

import (
	"context"
	"time"

	"github.com/villagehub/bizdir/internal/presence"
	"github.com/villagehub/bizdir/internal/track"
)

// SearchCount is one row of the popular-searches aggregate.
type SearchCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// BusinessInteractions is one row of the popular-businesses aggregate.
type BusinessInteractions struct {
	BusinessID string `json:"business_id"`
	Count      int64  `json:"count"`
}

// ConversionRate relates views of a listing to calls placed from it.
type ConversionRate struct {
	BusinessID string  `json:"business_id"`
	Views      int64   `json:"views"`
	Calls      int64   `json:"calls"`
	Rate       float64 `json:"rate"`
}

// Service is the full analytics surface. The tracker and presence monitor
// each consume their own narrow slice of it.
type Service interface {
	track.Sink
	presence.Pinger

	PopularSearches(ctx context.Context, since time.Time, limit int) ([]SearchCount, error)
	PopularBusinesses(ctx context.Context, since time.Time, limit int) ([]BusinessInteractions, error)
	ConversionRates(ctx context.Context, since time.Time) ([]ConversionRate, error)
	LiveCount(ctx context.Context) (int64, error)
}
