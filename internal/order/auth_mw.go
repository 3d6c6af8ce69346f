package order

import (
	"context"
	"net/http"
	"strings"

	"ShreeMohan/pkg/kit"
)

type ctxKey string

const userKey ctxKey = "user"

// User is the caller as stamped by the gateway.
type User struct {
	ID   string
	Name string
	Role string
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

// RequireUserHeaders trusts the identity headers set by the gateway after it
// verified the bearer token. The service is not exposed on its own.
func RequireUserHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(kit.HeaderUserID))
		if id == "" {
			kit.WriteError(w, r, http.StatusUnauthorized, "missing user", nil)
			return
		}

		u := User{
			ID:   id,
			Name: r.Header.Get(kit.HeaderUserName),
			Role: r.Header.Get(kit.HeaderUserRole),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}
