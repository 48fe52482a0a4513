package domain

import "time"

// DataVersion is the cheap two-field fingerprint used to decide whether the
// local cache is stale without transferring the full dataset.
type DataVersion struct {
	RecordCount int       `json:"record_count"`
	LastUpdated time.Time `json:"last_updated"`
	LastSync    time.Time `json:"last_sync,omitempty"`
}

// Matches reports whether two descriptors are equal for sync purposes.
// LastSync is local bookkeeping and never participates in equality.
func (v DataVersion) Matches(other DataVersion) bool {
	return v.RecordCount == other.RecordCount && v.LastUpdated.Equal(other.LastUpdated)
}
