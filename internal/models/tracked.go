package models

import "time"

// TrackedEntry is one row of the tracking table: a mapping from column
// name to display string plus the sequence number assigned on append.
// Entries are created on "add", edited only through explicit cell updates
// and never deleted.
type TrackedEntry struct {
	ID             string            `json:"id"`
	Kind           Kind              `json:"kind"`
	SequenceNumber int               `json:"sequence_number"`
	Fields         map[string]string `json:"fields"`
	AddedAt        time.Time         `json:"added_at"`
}

// Field returns the value of a column, or "" when absent.
func (e *TrackedEntry) Field(name string) string {
	if e.Fields == nil {
		return ""
	}
	return e.Fields[name]
}
