package protocol

import (
	"encoding/json"
	"errors"
)

// Envelope is the wrapper for every message the simulation backend publishes
// on the snapshot topic.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope wraps a payload for the given message type.
func NewEnvelope(msgType string, payload any) (*Envelope, error) {
	d, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: msgType, Data: d}, nil
}

// Encode marshals the envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodePayload unmarshals the raw data into the given target.
func (e *Envelope) DecodePayload(target any) error {
	if len(e.Data) == 0 {
		return errors.New("empty data")
	}
	return json.Unmarshal(e.Data, target)
}
