package order

import (
	"context"
	"errors"
	"time"

	"ShreeMohan/internal/model"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrOrderIDTaken  = errors.New("order id already exists")
	errBadDateFilter = errors.New("start is after end")
)

// Filter bounds orders by calendar day, both ends inclusive. A zero bound
// is open.
type Filter struct {
	Start time.Time
	End   time.Time
}

func (f Filter) match(t time.Time) bool {
	if !f.Start.IsZero() && t.Before(dayStart(f.Start)) {
		return false
	}
	if !f.End.IsZero() && !t.Before(dayStart(f.End).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// bounds returns the half-open [from, to) range the filter selects.
func (f Filter) bounds() (from, to *time.Time) {
	if !f.Start.IsZero() {
		s := dayStart(f.Start)
		from = &s
	}
	if !f.End.IsZero() {
		e := dayStart(f.End).AddDate(0, 0, 1)
		to = &e
	}
	return from, to
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type Store interface {
	Ping(ctx context.Context) error
	// List returns orders oldest first.
	List(ctx context.Context, f Filter) ([]model.Order, error)
	Get(ctx context.Context, orderID string) (model.Order, error)
	Create(ctx context.Context, o model.Order) (model.Order, error)
	// Delete removes the order and returns it so callers can put stock back.
	Delete(ctx context.Context, orderID string) (model.Order, error)
}
