package catalog

import (
	"context"
	"errors"
	"strings"

	"ShreeMohan/internal/model"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrNameTaken         = errors.New("product name already exists")
	ErrInsufficientStock = errors.New("not enough stock")
)

type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id int64) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) (model.Product, error)
	Delete(ctx context.Context, id int64) error
	// AdjustStock adds delta (negative to take) and refuses to go below zero.
	AdjustStock(ctx context.Context, id int64, delta int) (model.Product, error)
}

func nameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }
