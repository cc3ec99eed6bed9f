package store

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Sessions holds one Store per signed-in session. Entries are keyed by a
// hash of the session token, so raw tokens are never map keys, and are
// dropped after ttl without a Lookup.
type Sessions struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*session
}

type session struct {
	store    *Store
	lastSeen time.Time
}

// NewSessions creates an empty registry. A non-positive ttl keeps sessions
// until Close.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*session),
	}
}

// SessionKey is the registry key for token
func SessionKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Open binds st to token, replacing any store the token had
func (s *Sessions) Open(token string, st *Store) {
	if token == "" || st == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[SessionKey(token)] = &session{store: st, lastSeen: s.now()}
}

// Lookup returns the store bound to token and marks the session as used
func (s *Sessions) Lookup(token string) (*Store, bool) {
	if token == "" {
		return nil, false
	}
	key := SessionKey(token)

	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && s.expired(e) {
		delete(s.entries, key)
		s.mu.Unlock()
		e.store.Reset()
		return nil, false
	}
	if ok {
		e.lastSeen = s.now()
	}
	s.mu.Unlock()

	if !ok {
		return nil, false
	}
	return e.store, true
}

// Close removes the session for token and returns its store
func (s *Sessions) Close(token string) (*Store, bool) {
	key := SessionKey(token)
	s.mu.Lock()
	e, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return e.store, true
}

// Len returns the number of open sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Prune drops expired sessions, resetting their stores so stream
// subscribers see the signed-out state. It returns how many were dropped.
func (s *Sessions) Prune() int {
	s.mu.Lock()
	var stale []*Store
	for key, e := range s.entries {
		if s.expired(e) {
			stale = append(stale, e.store)
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()

	for _, st := range stale {
		st.Reset()
	}
	return len(stale)
}

// Run prunes every interval until ctx is cancelled
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

func (s *Sessions) expired(e *session) bool {
	return s.ttl > 0 && s.now().Sub(e.lastSeen) > s.ttl
}

type storeKey struct{}

// WithStore attaches the caller's session store to ctx
func WithStore(ctx context.Context, st *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, st)
}

// FromContext returns the session store attached by WithStore
func FromContext(ctx context.Context) (*Store, bool) {
	st, ok := ctx.Value(storeKey{}).(*Store)
	return st, ok && st != nil
}
