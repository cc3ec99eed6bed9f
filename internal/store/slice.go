package store

import (
	"sync"
	"time"
)

// State is the observable state of one resource
type State[T any] struct {
	IsLoading bool      `json:"isLoading"`
	Error     *string   `json:"error"`
	Data      T         `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Slice guards the State of one resource. Only the operations of that
// resource mutate it.
type Slice[T any] struct {
	name     string
	mu       sync.RWMutex
	state    State[T]
	initial  func() T
	onChange func()
	now      func() time.Time
}

// NewSlice creates a slice whose data starts (and resets) to initial()
func NewSlice[T any](name string, initial func() T) *Slice[T] {
	return &Slice[T]{
		name:    name,
		state:   State[T]{Data: initial()},
		initial: initial,
		now:     time.Now,
	}
}

// Name identifies the slice in logs and snapshots
func (s *Slice[T]) Name() string {
	return s.name
}

// Pending marks an operation as started and clears the previous error
func (s *Slice[T]) Pending() {
	s.update(func(st *State[T]) {
		st.IsLoading = true
		st.Error = nil
	})
}

// Fulfilled merges a result into the data and clears loading. A nil merge
// leaves the data unchanged. merge must return new slices and maps rather
// than modifying the ones it is given, since snapshots share them.
func (s *Slice[T]) Fulfilled(merge func(T) T) {
	s.update(func(st *State[T]) {
		if merge != nil {
			st.Data = merge(st.Data)
		}
		st.IsLoading = false
		st.Error = nil
		st.UpdatedAt = s.now()
	})
}

// Rejected records msg as the error and clears loading. Data is kept.
func (s *Slice[T]) Rejected(msg string) {
	s.update(func(st *State[T]) {
		st.IsLoading = false
		st.Error = &msg
		st.UpdatedAt = s.now()
	})
}

// Reset restores the initial state
func (s *Slice[T]) Reset() {
	s.update(func(st *State[T]) {
		*st = State[T]{Data: s.initial(), UpdatedAt: s.now()}
	})
}

// Snapshot returns a copy of the current state
func (s *Slice[T]) Snapshot() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	if s.state.Error != nil {
		msg := *s.state.Error
		out.Error = &msg
	}
	return out
}

func (s *Slice[T]) update(fn func(*State[T])) {
	var notify func()
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(&s.state)
		notify = s.onChange
	}()

	if notify != nil {
		notify()
	}
}
