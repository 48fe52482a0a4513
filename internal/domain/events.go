package domain

import "time"

// Analytics target tables. Each enqueued event names the table its batch is
// bulk-inserted into.
const (
	TableInteractions = "business_interactions"
	TableVisits       = "page_visits"
	TableAISearchLogs = "ai_search_logs"
	TablePresence     = "presence_pings"
)

// InteractionPayloadV1 records a user acting on a business listing
// (call tap, card expand, share).
type InteractionPayloadV1 struct {
	BusinessID string `json:"business_id"`
	Action     string `json:"action"`
	DeviceID   string `json:"device_id"`
	Timestamp  int64  `json:"timestamp"`
}

// VisitPayloadV1 records a page view.
type VisitPayloadV1 struct {
	Page      string `json:"page"`
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"timestamp"`
}

// AISearchPayloadV1 records the outcome of a natural-language search.
type AISearchPayloadV1 struct {
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
	Outcome     string `json:"outcome"` // "ok" or one of the aisearch failure categories
	DeviceID    string `json:"device_id"`
	Timestamp   int64  `json:"timestamp"`
}

// PresencePing is the upserted last-seen row keyed by device identifier.
// Same key, overwritten value: idempotent by construction.
type PresencePing struct {
	DeviceID    string    `json:"device_id"`
	DisplayName string    `json:"display_name,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
}
