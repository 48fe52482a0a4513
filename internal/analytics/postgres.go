package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/presence"
)

type service struct {
	db *pgxpool.Pool
}

// NewService creates a Postgres-backed analytics service.
func NewService(db *pgxpool.Pool) Service {
	return &service{db: db}
}

// BulkInsert writes one batch of events into its target table. All rows go
// out in a single pgx batch round trip.
func (s *service) BulkInsert(ctx context.Context, table string, events []map[string]any) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, evt := range events {
		switch table {
		case domain.TableInteractions:
			batch.Queue(`
				INSERT INTO business_interactions (business_id, action, device_id, created_at)
				VALUES ($1, $2, $3, $4)
			`, strField(evt, "business_id"), strField(evt, "action"), strField(evt, "device_id"), eventTime(evt))
		case domain.TableVisits:
			batch.Queue(`
				INSERT INTO page_visits (page, device_id, created_at)
				VALUES ($1, $2, $3)
			`, strField(evt, "page"), strField(evt, "device_id"), eventTime(evt))
		case domain.TableAISearchLogs:
			batch.Queue(`
				INSERT INTO ai_search_logs (query, result_count, outcome, device_id, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, strField(evt, "query"), intField(evt, "result_count"), strField(evt, "outcome"),
				strField(evt, "device_id"), eventTime(evt))
		default:
			return fmt.Errorf("unknown analytics table %q", table)
		}
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// UpsertPresence overwrites the device's last-seen row. One row per device,
// so repeated heartbeats are idempotent.
func (s *service) UpsertPresence(ctx context.Context, ping domain.PresencePing) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO presence_pings (device_id, display_name, last_seen)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id)
		DO UPDATE SET display_name = EXCLUDED.display_name, last_seen = EXCLUDED.last_seen
	`, ping.DeviceID, ping.DisplayName, ping.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to upsert presence for %s: %w", ping.DeviceID, err)
	}
	return nil
}

func (s *service) PopularSearches(ctx context.Context, since time.Time, limit int) ([]SearchCount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT query, COUNT(*) AS searches
		FROM ai_search_logs
		WHERE created_at >= $1
		GROUP BY query
		ORDER BY searches DESC, query
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular searches: %w", err)
	}
	defer rows.Close()

	var out []SearchCount
	for rows.Next() {
		var sc SearchCount
		if err := rows.Scan(&sc.Query, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan search count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *service) PopularBusinesses(ctx context.Context, since time.Time, limit int) ([]BusinessInteractions, error) {
	rows, err := s.db.Query(ctx, `
		SELECT business_id, COUNT(*) AS interactions
		FROM business_interactions
		WHERE created_at >= $1
		GROUP BY business_id
		ORDER BY interactions DESC, business_id
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular businesses: %w", err)
	}
	defer rows.Close()

	var out []BusinessInteractions
	for rows.Next() {
		var bi BusinessInteractions
		if err := rows.Scan(&bi.BusinessID, &bi.Count); err != nil {
			return nil, fmt.Errorf("failed to scan business interactions: %w", err)
		}
		out = append(out, bi)
	}
	return out, rows.Err()
}

// ConversionRates relates listing views to calls placed from them. A
// business with views but no calls still appears, with rate zero.
func (s *service) ConversionRates(ctx context.Context, since time.Time) ([]ConversionRate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT business_id,
		       COUNT(*) FILTER (WHERE action = 'view') AS views,
		       COUNT(*) FILTER (WHERE action = 'call') AS calls
		FROM business_interactions
		WHERE created_at >= $1
		GROUP BY business_id
		ORDER BY business_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion rates: %w", err)
	}
	defer rows.Close()

	var out []ConversionRate
	for rows.Next() {
		var cr ConversionRate
		if err := rows.Scan(&cr.BusinessID, &cr.Views, &cr.Calls); err != nil {
			return nil, fmt.Errorf("failed to scan conversion rate: %w", err)
		}
		if cr.Views > 0 {
			cr.Rate = float64(cr.Calls) / float64(cr.Views)
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// LiveCount counts devices seen within the live window.
func (s *service) LiveCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM presence_pings WHERE last_seen >= $1
	`, time.Now().Add(-presence.LiveWindow)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query live count: %w", err)
	}
	return count, nil
}

// strField pulls a string out of a decoded event payload, tolerating
// absence.
func strField(evt map[string]any, key string) string {
	if v, ok := evt[key].(string); ok {
		return v
	}
	return ""
}

// intField tolerates both int-typed values and the float64 that JSON
// decoding produces.
func intField(evt map[string]any, key string) int64 {
	switch v := evt[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// eventTime resolves the payload's unix-millisecond timestamp, falling back
// to now for events that never carried one.
func eventTime(evt map[string]any) time.Time {
	if ms := intField(evt, "timestamp"); ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Now().UTC()
}
