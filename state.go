package apolloAuth

import (
	"slices"
	"sync"
)

// SessionStatus summarizes a [State] snapshot.
type SessionStatus uint8

const (
	// StatusAnonymous means no token is held.
	StatusAnonymous SessionStatus = iota
	// StatusRehydrating means a token is held but its identity is not known
	// yet, or the last identity fetch failed.
	StatusRehydrating
	// StatusAuthenticated means a token and its identity are both held.
	StatusAuthenticated
)

func (s SessionStatus) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusRehydrating:
		return "rehydrating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of the session state after one write.
type Snapshot struct {
	Token   string
	User    *UserIdentity
	Version uint64
}

// IsAuthenticated reports whether a token is held.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}

// Status derives the [SessionStatus] of s.
func (s Snapshot) Status() SessionStatus {
	switch {
	case s.Token == "":
		return StatusAnonymous
	case s.User == nil:
		return StatusRehydrating
	default:
		return StatusAuthenticated
	}
}

// Listener is called once per state write with the resulting snapshot.
type Listener func(Snapshot)

// State holds the current token and user. Reads are exported; writes are
// reserved to the [Coordinator].
//
// Listeners run synchronously on the writing goroutine, in write order, and
// must not call mutating Coordinator operations.
type State struct {
	mu      sync.RWMutex
	token   string
	user    *UserIdentity
	version uint64

	// writeMu orders writes together with their notifications.
	writeMu sync.Mutex

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
}

func newState() *State {
	return &State{listeners: make(map[uint64]Listener)}
}

// Token returns the current token, or "" when none is held.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current identity, or nil.
func (s *State) User() *UserIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// IsAuthenticated reports whether a token is held. It is derived on every
// call and never stored.
func (s *State) IsAuthenticated() bool {
	return s.Token() != ""
}

// Status returns the current [SessionStatus].
func (s *State) Status() SessionStatus {
	return s.Snapshot().Status()
}

// Version counts writes since construction.
func (s *State) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the current token, user and version read together.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{Token: s.token, User: s.user.Clone(), Version: s.version}
}

// Subscribe registers l for every subsequent write. The returned cancel
// func is idempotent.
func (s *State) Subscribe(l Listener) (cancel func()) {
	if l == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// setToken replaces the token. Clearing the token also clears the user.
func (s *State) setToken(token string) {
	s.write(func() bool {
		s.token = token
		if token == "" {
			s.user = nil
		}
		return true
	})
}

// setUser replaces the user. A non-nil user is refused while no token is
// held.
func (s *State) setUser(user *UserIdentity) bool {
	return s.write(func() bool {
		if user != nil && s.token == "" {
			return false
		}
		s.user = user.Clone()
		return true
	})
}

// apply replaces token and user in one write.
func (s *State) apply(token string, user *UserIdentity) {
	s.write(func() bool {
		s.token = token
		if token == "" {
			user = nil
		}
		s.user = user.Clone()
		return true
	})
}

func (s *State) write(mutate func() bool) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !mutate() {
		s.mu.Unlock()
		return false
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

func (s *State) notify(snap Snapshot) {
	s.listenersMu.Lock()
	if len(s.listeners) == 0 {
		s.listenersMu.Unlock()
		return
	}
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	listeners := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(Snapshot{Token: snap.Token, User: snap.User.Clone(), Version: snap.Version})
	}
}
