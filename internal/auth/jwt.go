package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "shreemohan-auth"

	typeAccess  = "access"
	typeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenMaker signs and checks HS256 tokens. Access and refresh tokens share
// the secret and differ in their typ claim, so neither is accepted in place
// of the other.
type TokenMaker struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenMaker(secret string, ttl, refreshTTL time.Duration) *TokenMaker {
	return &TokenMaker{
		secret:     []byte(secret),
		ttl:        ttl,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// Pair issues an access token and, when a refresh ttl is configured, a
// refresh token.
func (t *TokenMaker) Pair(u User) (access, refresh string, err error) {
	access, err = t.sign(u, typeAccess, t.ttl)
	if err != nil || t.refreshTTL <= 0 {
		return access, "", err
	}
	refresh, err = t.sign(u, typeRefresh, t.refreshTTL)
	return access, refresh, err
}

func (t *TokenMaker) Access(u User) (string, error) {
	return t.sign(u, typeAccess, t.ttl)
}

func (t *TokenMaker) sign(u User, typ string, ttl time.Duration) (string, error) {
	now := t.now()

	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse accepts only a valid, unexpired access token.
func (t *TokenMaker) Parse(tokenStr string) (Claims, error) {
	return t.parse(tokenStr, typeAccess)
}

func (t *TokenMaker) ParseRefresh(tokenStr string) (Claims, error) {
	return t.parse(tokenStr, typeRefresh)
}

func (t *TokenMaker) parse(tokenStr, typ string) (Claims, error) {
	var c Claims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if c.Type != typ || c.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}
