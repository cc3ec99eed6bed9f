// Package events defines the messages streamed to UI clients over the
// state WebSocket.
package events

import (
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is sent in the connect message so clients can refuse a
// stream they do not understand
const ProtocolVersion = "1"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeConnect is the first message on every connection
	MessageTypeConnect MessageType = "connect"
	// MessageTypeSnapshot carries the full client state after a change
	MessageTypeSnapshot MessageType = "state:snapshot"
	// MessageTypeError reports a stream problem, never a domain error
	MessageTypeError MessageType = "error"
)

// Message is the envelope for every WebSocket frame
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      any         `json:"data,omitempty"`
}

// New creates a message with a fresh id
func New(t MessageType, data any) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ConnectData greets a newly attached client
type ConnectData struct {
	ClientID        string `json:"client_id"`
	ProtocolVersion string `json:"protocol_version"`
}

// ErrorData describes a stream problem
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}
