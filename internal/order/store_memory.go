package order

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"ShreeMohan/internal/model"
)

type MemStore struct {
	mu     sync.RWMutex
	m      map[string]model.Order
	nextID int64
}

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string]model.Order)}
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) List(_ context.Context, f Filter) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Order, 0, len(s.m))
	for _, o := range s.m {
		if f.match(o.Date) {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b model.Order) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemStore) Get(_ context.Context, orderID string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.m[orderID]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemStore) Create(_ context.Context, o model.Order) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[o.OrderID]; ok {
		return model.Order{}, ErrOrderIDTaken
	}
	s.nextID++
	o.ID = s.nextID
	o.Items = slices.Clone(o.Items)
	for i := range o.Items {
		s.nextID++
		o.Items[i].ID = s.nextID
	}
	s.m[o.OrderID] = o
	return o, nil
}

func (s *MemStore) Delete(_ context.Context, orderID string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.m[orderID]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	delete(s.m, orderID)
	return o, nil
}
