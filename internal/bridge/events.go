package bridge

import (
	"encoding/json"
	"fmt"
)

// Event names pushed by the engine
const (
	EventListUpdated    = "download://list-updated"
	EventProgress       = "download://progress"
	EventError          = "download://error"
	EventLibraryUpdated = "library://updated"
	EventConfigUpdate   = "config://update"
	EventSetupProgress  = "setup://progress"
)

// Event is a single push message with its JSON payload
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent encodes payload into an event named name
func NewEvent(name string, payload any) (Event, error) {
	if payload == nil {
		return Event{Name: name}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, Payload: data}, nil
}

// Decode unmarshals the payload into v
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Name)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", e.Name, err)
	}
	return nil
}
