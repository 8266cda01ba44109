package models

import (
	"bytes"
	"encoding/json"
)

// EventType names a signaling event on the wire
type EventType string

const (
	// client -> relay
	EventJoinRoom   EventType = "join-room"
	EventDisconnect EventType = "disconnect"

	// both directions
	EventSignal EventType = "signal"

	// relay -> client
	EventUserConnected    EventType = "user-connected"
	EventUserDisconnected EventType = "user-disconnected"
	EventError            EventType = "error"
)

// SignalMessage is the single JSON frame exchanged with browsers.
// Signal is opaque negotiation data and is forwarded byte for byte.
type SignalMessage struct {
	Event         EventType       `json:"event"`
	RoomID        string          `json:"roomId,omitempty"`
	ParticipantID string          `json:"participantId,omitempty"`
	To            string          `json:"to,omitempty"`
	Signal        json.RawMessage `json:"signal,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// HasSignal reports whether the frame carried a non-null signal payload.
func (m *SignalMessage) HasSignal() bool {
	trimmed := bytes.TrimSpace(m.Signal)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func UserConnected(participantID string) SignalMessage {
	return SignalMessage{Event: EventUserConnected, ParticipantID: participantID}
}

func UserDisconnected(participantID string) SignalMessage {
	return SignalMessage{Event: EventUserDisconnected, ParticipantID: participantID}
}

// Forwarded is the frame delivered to peers for a relayed signal.
func Forwarded(participantID string, signal json.RawMessage) SignalMessage {
	return SignalMessage{Event: EventSignal, ParticipantID: participantID, Signal: signal}
}

func Error(msg string) SignalMessage {
	return SignalMessage{Event: EventError, Error: msg}
}
