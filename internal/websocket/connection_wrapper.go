package websocket

import (
	"github.com/gorilla/websocket"
)

// conn adapts a gorilla connection to Connection
type conn struct {
	*websocket.Conn
}

// wrapConn returns c as a Connection
func wrapConn(c *websocket.Conn) Connection {
	return conn{Conn: c}
}

// RemoteAddr returns the peer address as a string
func (c conn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
