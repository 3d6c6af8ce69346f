package catalog

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"ShreeMohan/internal/model"
)

type MemStore struct {
	mu     sync.RWMutex
	m      map[int64]model.Product
	nextID int64
}

// NewMemStore returns a store holding seed, with ids assigned in order when
// a seed product has none.
func NewMemStore(seed ...model.Product) *MemStore {
	s := &MemStore{m: make(map[int64]model.Product)}
	for _, p := range seed {
		if p.ID == 0 {
			s.nextID++
			p.ID = s.nextID
		}
		s.nextID = max(s.nextID, p.ID)
		s.m[p.ID] = p
	}
	return s
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) List(context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemStore) Get(_ context.Context, id int64) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemStore) Create(_ context.Context, p model.Product) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(p.Name, 0) {
		return model.Product{}, ErrNameTaken
	}
	s.nextID++
	p.ID = s.nextID
	s.m[p.ID] = p
	return p, nil
}

func (s *MemStore) Update(_ context.Context, p model.Product) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[p.ID]; !ok {
		return model.Product{}, ErrNotFound
	}
	if s.nameTaken(p.Name, p.ID) {
		return model.Product{}, ErrNameTaken
	}
	s.m[p.ID] = p
	return p, nil
}

func (s *MemStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return ErrNotFound
	}
	delete(s.m, id)
	return nil
}

func (s *MemStore) AdjustStock(_ context.Context, id int64, delta int) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.m[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	if p.Stock+delta < 0 {
		return model.Product{}, ErrInsufficientStock
	}
	p.Stock += delta
	s.m[id] = p
	return p, nil
}

func (s *MemStore) nameTaken(name string, except int64) bool {
	key := nameKey(name)
	for id, p := range s.m {
		if id != except && nameKey(p.Name) == key {
			return true
		}
	}
	return false
}
