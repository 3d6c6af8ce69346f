package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ShreeMohan/internal/model"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

const productColumns = `id, name, price, stock, description, image`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.Ping)
}

func (s *PostgresStore) List(ctx context.Context) ([]model.Product, error) {
	var out []model.Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id ASC`)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, scanProduct)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Product{}
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (model.Product, error) {
	return s.one(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (s *PostgresStore) Create(ctx context.Context, p model.Product) (model.Product, error) {
	return s.one(ctx, `
		INSERT INTO products (name, price, stock, description, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+productColumns,
		p.Name, p.Price, p.Stock, p.Description, p.Image)
}

func (s *PostgresStore) Update(ctx context.Context, p model.Product) (model.Product, error) {
	return s.one(ctx, `
		UPDATE products
		SET name = $2, price = $3, stock = $4, description = $5, image = $6
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Price, p.Stock, p.Description, p.Image)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tag, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *PostgresStore) AdjustStock(ctx context.Context, id int64, delta int) (model.Product, error) {
	p, err := s.one(ctx, `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING `+productColumns,
		id, delta)
	if !errors.Is(err, ErrNotFound) {
		return p, err
	}
	// no row: either missing or the guard refused
	if _, err := s.Get(ctx, id); err != nil {
		return model.Product{}, err
	}
	return model.Product{}, ErrInsufficientStock
}

func (s *PostgresStore) one(ctx context.Context, query string, args ...any) (model.Product, error) {
	var p model.Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		p, err = pgx.CollectExactlyOneRow(rows, scanProduct)
		return err
	})

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return model.Product{}, ErrNotFound
	case isUniqueViolation(err):
		return model.Product{}, ErrNameTaken
	case err != nil:
		return model.Product{}, err
	}
	return p, nil
}

func scanProduct(row pgx.CollectableRow) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Description, &p.Image)
	return p, err
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
