// Package frame implements the JSON envelope codec for the go-dispatch
// protocol. Every text frame carries exactly one envelope:
//
//	{"event": "<tag>", "target": "room:<name>", "payload": {...}}
//
// target is only present on client actions.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed    = errors.New("frame: malformed envelope")
	ErrMissingEvent = errors.New("frame: missing event tag")
	ErrEmptyEvent   = errors.New("frame: empty event tag")
)

// Action is an outgoing envelope (client -> server).
type Action struct {
	Event   string `json:"event"`
	Target  string `json:"target"`
	Payload any    `json:"payload"`
}

// Event is an inbound envelope (server -> client).
type Event struct {
	Event   string          `json:"event"`
	Target  string          `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode serialises an action into a single text frame.
func Encode(a Action) ([]byte, error) {
	if a.Event == "" {
		return nil, ErrEmptyEvent
	}
	if a.Payload == nil {
		a.Payload = struct{}{}
	}
	out, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("frame: encode %s: %w", a.Event, err)
	}
	return out, nil
}

// Decode parses one text frame into an event.
// Frames of any size are accepted.
func Decode(data []byte) (Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, ErrMalformed
	}

	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.Event == "" {
		return Event{}, ErrMissingEvent
	}
	return ev, nil
}

// DecodePayload binds the event payload into v. A missing or null payload
// leaves v at its zero value.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 || bytes.Equal(e.Payload, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, e.Event, err)
	}
	return nil
}
