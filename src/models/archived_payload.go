package models

import (
	"encoding/json"
	"time"
)

// MArchivedPayload is one successful refresh payload as recorded by an archive.
type MArchivedPayload struct {
	TickID    string          `json:"tick_id"`
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}
