// Package protocol implements the wire envelope: one JSON object per frame
// with an event type and an arbitrary payload.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const maxPayloadSize = 10 * 1024 * 1024 // 10MB max payload size

// Envelope is the frame format exchanged with clients.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an event name and payload into a single JSON frame.
// A nil payload encodes without a data field.
func Encode(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, errors.New("event name must not be empty")
	}

	env := Envelope{Type: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload for %q: %w", event, err)
		}
		if len(data) > maxPayloadSize {
			return nil, fmt.Errorf("payload size %d exceeds maximum %d bytes", len(data), maxPayloadSize)
		}
		env.Data = data
	}

	return json.Marshal(env)
}

// Decode parses a frame and returns its event name and raw payload.
// The payload references the decoded buffer - do not modify it.
func Decode(frame []byte) (string, json.RawMessage, error) {
	if len(frame) > maxPayloadSize {
		return "", nil, fmt.Errorf("frame size %d exceeds maximum %d bytes", len(frame), maxPayloadSize)
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return "", nil, errors.New("envelope has no event type")
	}
	return env.Type, env.Data, nil
}

// Namespace prefixes an event name with a room id so that rooms sharing one
// socket never collide. The concatenation is the namespaced wire type.
func Namespace(roomID, event string) string {
	return roomID + event
}
