package websocket

import (
	"time"

	"parkingapp/internal/store"
)

// Connection is the part of a WebSocket connection the hub uses, so tests
// can run clients without a network
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// StateSource is the state one client streams, normally the session's
// *store.Store
type StateSource interface {
	Snapshot() store.Snapshot
	Subscribe(fn store.Listener) (unsubscribe func())
}
