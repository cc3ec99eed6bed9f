// Package store holds per-resource async operation state.
//
// Each resource (auth, tickets, vehicles, profile) has a Slice that moves
// through pending, fulfilled and rejected as operations run. Dispatch drives
// those transitions so the loading flag is cleared on every exit path. The
// Store aggregates the slices and notifies subscribers with a Snapshot after
// every change.
//
// A Store belongs to one signed-in session. Sessions maps session tokens to
// their stores, and request handlers find the caller's store on the context
// with FromContext. No state is shared between sessions.
package store
