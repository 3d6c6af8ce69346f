package order

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
	queryTimeout = 5 * time.Second
	pgUniqueCode = "23505"
)

const orderColumns = `id, order_id, customer, customer_address, total, status, date, date_np`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.Ping(ctx)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	from, to := f.bounds()
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1::timestamptz IS NULL OR date >= $1)
		  AND ($2::timestamptz IS NULL OR date < $2)
		ORDER BY date ASC, id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

func (s *PostgresStore) Get(ctx context.Context, orderID string) (model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return model.Order{}, err
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}

	orders := []model.Order{o}
	if err := s.attachItems(ctx, orders); err != nil {
		return model.Order{}, err
	}
	return orders[0], nil
}

func (s *PostgresStore) Create(ctx context.Context, o model.Order) (model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (order_id, customer, customer_address, total, status, date, date_np)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, o.OrderID, o.Customer, o.CustomerAddress, o.Total, o.Status, o.Date, o.DateNP).Scan(&o.ID)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(`
				INSERT INTO order_items (order_pk, product_id, product_name, particulars, quantity, rate)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, o.ID, it.ProductID, it.ProductName, it.Particulars, it.Quantity, it.Rate)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range o.Items {
			if err := br.QueryRow().Scan(&o.Items[i].ID); err != nil {
				_ = br.Close()
				return err
			}
		}
		return br.Close()
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode {
		return model.Order{}, ErrOrderIDTaken
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (s *PostgresStore) Delete(ctx context.Context, orderID string) (model.Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// items go with the order through ON DELETE CASCADE
	tag, err := s.db.Exec(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

func (s *PostgresStore) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[int64]int, len(orders))
	ids := make([]int64, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids = append(ids, o.ID)
	}

	rows, err := s.db.Query(ctx, `
		SELECT order_pk, id, product_id, product_name, particulars, quantity, rate
		FROM order_items
		WHERE order_pk = ANY($1)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderPK int64
			it      model.OrderItem
		)
		if err := rows.Scan(&orderPK, &it.ID, &it.ProductID, &it.ProductName, &it.Particulars, &it.Quantity, &it.Rate); err != nil {
			return err
		}
		it.Amount = it.LineTotal()
		o := &orders[index[orderPK]]
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.OrderID, &o.Customer, &o.CustomerAddress, &o.Total, &o.Status, &o.Date, &o.DateNP)
	return o, err
}
