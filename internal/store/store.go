package store

import (
	"sync"
	"sync/atomic"

	"parkingapp/pkg/contracts/domain"
)

// AuthData is the signed-in user. The token never leaves the gateway.
type AuthData struct {
	User            *domain.User `json:"user"`
	Token           string       `json:"-"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

// TicketsData mirrors the ticket resources
type TicketsData struct {
	Items       []domain.Ticket `json:"items"`
	Selected    *domain.Ticket  `json:"selected"`
	LastPayment *domain.Payment `json:"lastPayment"`
	LastDispute *domain.Dispute `json:"lastDispute"`
}

// VehiclesData mirrors the vehicle resources
type VehiclesData struct {
	Items []domain.Vehicle `json:"items"`
}

// ProfileData mirrors the user profile and uploaded documents
type ProfileData struct {
	User      *domain.User      `json:"user"`
	Documents []domain.Document `json:"documents"`
}

// Snapshot is the state of every slice at one point in time
type Snapshot struct {
	Version  uint64              `json:"version"`
	Auth     State[AuthData]     `json:"auth"`
	Tickets  State[TicketsData]  `json:"tickets"`
	Vehicles State[VehiclesData] `json:"vehicles"`
	Profile  State[ProfileData]  `json:"profile"`
}

// Listener receives a snapshot after every state change. Listeners run on
// the goroutine that made the change and must not block.
type Listener func(Snapshot)

// Store aggregates the resource slices
type Store struct {
	Auth     *Slice[AuthData]
	Tickets  *Slice[TicketsData]
	Vehicles *Slice[VehiclesData]
	Profile  *Slice[ProfileData]

	version   atomic.Uint64
	mu        sync.RWMutex
	listeners map[uint64]Listener
	nextID    uint64
}

// New creates a store with empty slices
func New() *Store {
	s := &Store{
		Auth: NewSlice("auth", func() AuthData { return AuthData{} }),
		Tickets: NewSlice("tickets", func() TicketsData {
			return TicketsData{Items: []domain.Ticket{}}
		}),
		Vehicles: NewSlice("vehicles", func() VehiclesData {
			return VehiclesData{Items: []domain.Vehicle{}}
		}),
		Profile: NewSlice("profile", func() ProfileData {
			return ProfileData{Documents: []domain.Document{}}
		}),
		listeners: make(map[uint64]Listener),
	}

	s.Auth.onChange = s.changed
	s.Tickets.onChange = s.changed
	s.Vehicles.onChange = s.changed
	s.Profile.onChange = s.changed
	return s
}

// Subscribe registers fn and returns a function that removes it
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state of every slice
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Version:  s.version.Load(),
		Auth:     s.Auth.Snapshot(),
		Tickets:  s.Tickets.Snapshot(),
		Vehicles: s.Vehicles.Snapshot(),
		Profile:  s.Profile.Snapshot(),
	}
}

// Reset clears every slice, as on sign-out
func (s *Store) Reset() {
	s.Auth.Reset()
	s.Tickets.Reset()
	s.Vehicles.Reset()
	s.Profile.Reset()
}

func (s *Store) changed() {
	s.version.Add(1)

	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	if len(listeners) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, l := range listeners {
		l(snap)
	}
}
