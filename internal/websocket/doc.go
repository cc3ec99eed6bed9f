// Package websocket streams client state snapshots to connected UI clients.
//
// A Hub subscribes to the state store and, after every change, sends the
// latest snapshot to each client. The stream is one way; clients only send
// heartbeats. Clients that fall behind are disconnected rather than allowed
// to stall the broadcast.
package websocket
