package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.Ping)
}

func (s *PostgresStore) Create(ctx context.Context, id, username, password, role string) (User, error) {
	u := User{ID: id, Username: normalizeUsername(username), Role: role}

	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	u.Hash = hash

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, `
			INSERT INTO users (id, username, pass_hash, role)
			VALUES ($1, $2, $3, $4)
		`, u.ID, u.Username, u.Hash, u.Role)
		return err
	})
	if isUniqueViolation(err) {
		return User{}, ErrUserExists
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) Verify(ctx context.Context, username, password string) (User, error) {
	u, err := s.scanOne(ctx, `
		SELECT id, username, pass_hash, role
		FROM users
		WHERE username = $1
	`, normalizeUsername(username))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	return checkPassword(u, password)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (User, error) {
	return s.scanOne(ctx, `
		SELECT id, username, pass_hash, role
		FROM users
		WHERE id = $1
	`, id)
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Hash, &u.Role)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
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
