package homeassistant

import (
	"encoding/json"
	"fmt"
)

// WebSocket message type strings used during the handshake and subscription.
const (
	wsTypeAuthRequired    = "auth_required"
	wsTypeAuth            = "auth"
	wsTypeAuthOK          = "auth_ok"
	wsTypeAuthInvalid     = "auth_invalid"
	wsTypeResult          = "result"
	wsTypeEvent           = "event"
	wsTypeSubscribeEvents = "subscribe_events"
)

// EventStateChanged is the event type for entity state changes.
const EventStateChanged = "state_changed"

// WSAuthMessage is sent to authenticate with Home Assistant.
type WSAuthMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

// WSResultMessage represents a command result from Home Assistant.
type WSResultMessage struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WSError        `json:"error,omitempty"`
}

// WSError represents an error in a WebSocket response.
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSEventMessage represents an event message from Home Assistant.
type WSEventMessage struct {
	ID    int64   `json:"id"`
	Type  string  `json:"type"`
	Event WSEvent `json:"event"`
}

// WSEvent contains event data. Data is kept raw so event-specific payloads
// like state_changed can be decoded by the consumer.
type WSEvent struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Origin    string          `json:"origin"`
	TimeFired string          `json:"time_fired"`
	Context   Context         `json:"context"`
}

// WSSubscribeEventsCommand subscribes to events of one type.
type WSSubscribeEventsCommand struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	EventType string `json:"event_type,omitempty"`
}

// StateChange is the decoded payload of a state_changed event.
type StateChange struct {
	EntityID string  `json:"entity_id"`
	OldState *Entity `json:"old_state"`
	NewState *Entity `json:"new_state"`
}

// ParseMessageType extracts the message type from a raw JSON message.
func ParseMessageType(data []byte) (string, error) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", err
	}
	return msg.Type, nil
}

// ParseStateChange decodes a state_changed event payload.
func (e WSEvent) ParseStateChange() (*StateChange, error) {
	if e.EventType != EventStateChanged {
		return nil, fmt.Errorf("not a state_changed event: %s", e.EventType)
	}
	var change StateChange
	if err := json.Unmarshal(e.Data, &change); err != nil {
		return nil, fmt.Errorf("decoding state change: %w", err)
	}
	return &change, nil
}
