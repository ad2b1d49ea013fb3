package domain

import "time"

// NbaEventLogRecord is an append-only audit trail entry for one NBA.
// ActedBy is nil for system-generated "created" entries and set to the
// acting username for human decisions. Entries are never mutated after
// insertion.
type NbaEventLogRecord struct {
	ID       string
	NbaID    string
	Status   Status
	Context  map[string]any
	ActedBy  *string
	ActionAt time.Time
}

// IsHumanAction reports whether the entry records an operator decision
// rather than a system-generated creation entry.
func (r *NbaEventLogRecord) IsHumanAction() bool {
	return r.ActedBy != nil && *r.ActedBy != ""
}
