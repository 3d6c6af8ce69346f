package auth

import (
	"context"
	"sync"
)

type MemStore struct {
	mu         sync.RWMutex
	byUsername map[string]User
	byID       map[string]User
}

func NewMemStore() *MemStore {
	return &MemStore{
		byUsername: make(map[string]User),
		byID:       make(map[string]User),
	}
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) Create(_ context.Context, id, username, password, role string) (User, error) {
	username = normalizeUsername(username)

	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[username]; ok {
		return User{}, ErrUserExists
	}

	u := User{ID: id, Username: username, Hash: hash, Role: role}
	s.byUsername[username] = u
	s.byID[id] = u
	return u, nil
}

func (s *MemStore) Verify(_ context.Context, username, password string) (User, error) {
	s.mu.RLock()
	u, ok := s.byUsername[normalizeUsername(username)]
	s.mu.RUnlock()

	if !ok {
		return User{}, ErrInvalidCredentials
	}
	return checkPassword(u, password)
}

func (s *MemStore) Get(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
