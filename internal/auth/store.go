package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"ShreeMohan/internal/model"
)

var (
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

const RoleAdmin = "admin"

type User struct {
	ID       string
	Username string
	Hash     []byte
	Role     string
}

// Public is the user as the API shows it.
func (u User) Public() model.User {
	return model.User{ID: u.ID, Username: u.Username, Role: u.Role}
}

type UserStore interface {
	Create(ctx context.Context, id, username, password, role string) (User, error)
	Verify(ctx context.Context, username, password string) (User, error)
	Get(ctx context.Context, id string) (User, error)
	Ping(ctx context.Context) error
}

// EnsureAdmin creates the configured shop account unless it already exists.
func EnsureAdmin(ctx context.Context, s UserStore, id, username, password string) error {
	_, err := s.Create(ctx, id, username, password, RoleAdmin)
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	return err
}

func normalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func checkPassword(u User, password string) (User, error) {
	if err := bcrypt.CompareHashAndPassword(u.Hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
