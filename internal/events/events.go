package events

import (
	"encoding/json"
	"time"
)

// Event types sent to the UI.
const (
	TypePing          = "ping"
	TypeJobTracked    = "job_tracked"
	TypeStatusChanged = "job_status_changed"
	TypeNotesChanged  = "job_notes_changed"
	TypeJobUntracked  = "job_untracked"
	TypeConfigUpdated = "config_updated"
)

// Event is the envelope every published message uses.
type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MakeEvent encodes an envelope for typ. Data that cannot be encoded is
// left out rather than failing the publish.
func MakeEvent(reqID, typ string, v int, data any) string {
	e := Event{Type: typ, Version: v, At: time.Now().UTC(), RequestID: reqID}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			e.Data = raw
		}
	}
	out, _ := json.Marshal(e)
	return string(out)
}
