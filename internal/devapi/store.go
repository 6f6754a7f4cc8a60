package devapi

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	errEmailTaken   = errors.New("email already registered")
	errUserNotFound = errors.New("user not found")
)

type user struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// store keeps accounts in memory, keyed by id and by lower-cased email.
type store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*user
	byEmail map[string]*user
}

func newStore() *store {
	return &store{
		byID:    make(map[int64]*user),
		byEmail: make(map[string]*user),
	}
}

func (s *store) create(u user) (user, error) {
	key := strings.ToLower(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[key]; ok {
		return user{}, errEmailTaken
	}
	s.nextID++
	u.ID = s.nextID
	stored := u
	s.byID[u.ID] = &stored
	s.byEmail[key] = &stored
	return u, nil
}

func (s *store) byEmailAddr(email string) (user, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return user{}, errUserNotFound
	}
	return *u, nil
}

func (s *store) get(id int64) (user, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return user{}, errUserNotFound
	}
	return *u, nil
}

func (s *store) updateHash(id int64, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.byID[id]; ok {
		u.PasswordHash = hash
	}
}

func (s *store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
