// Package v1 holds the wire contract for governance events. The envelope
// layout is shared with downstream consumers; field changes require a new
// schema version, never an in-place edit.
package v1

import (
	"encoding/json"
	"errors"
	"time"
)

// Envelope is the versioned frame around every agenda event. Data carries the
// event-specific payload (vote.cast, vote.changed, vote.cancelled,
// agenda.tallied) as raw JSON.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Validate rejects envelopes that would be unroutable on the bus.
func (e Envelope) Validate() error {
	if e.EventID == "" {
		return errors.New("envelope event_id is required")
	}
	if e.EventType == "" {
		return errors.New("envelope event_type is required")
	}
	return nil
}
