package gateway

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"ShreeMohan/internal/auth"
	"ShreeMohan/pkg/kit"
)

const apiPrefix = "/api"

type ctxKey string

const claimsKey ctxKey = "claims"

func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(auth.Claims)
	return c, ok
}

// AuthJWT rejects requests without a valid access token. A 401 from here is
// what tells the client its session is over.
func AuthJWT(jwt *auth.TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tok == "" {
				kit.WriteError(w, r, http.StatusUnauthorized, "Authentication credentials were not provided", nil)
				return
			}
			claims, err := jwt.Parse(tok)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "Token is invalid or expired", nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectHeaders replaces any client-supplied identity headers with the ones
// taken from verified claims.
func InjectHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(kit.HeaderUserID)
		r.Header.Del(kit.HeaderUserName)
		r.Header.Del(kit.HeaderUserRole)

		if c, ok := ClaimsFromContext(r.Context()); ok {
			r.Header.Set(kit.HeaderUserID, c.UserID)
			if c.Username != "" {
				r.Header.Set(kit.HeaderUserName, c.Username)
			}
			if c.Role != "" {
				r.Header.Set(kit.HeaderUserRole, c.Role)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// NewReverseProxy forwards to target with the /api prefix removed, so
// /api/products/3/ reaches the catalog as /products/3/.
func NewReverseProxy(target string, transport http.RoundTripper, log *zap.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = stripAPI(pr.Out.URL.Path)
			pr.Out.URL.RawPath = ""
			pr.SetURL(u)
			pr.SetXForwarded()
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn("upstream failed", zap.String("target", target), zap.String("path", r.URL.Path), zap.Error(err))
			kit.WriteError(w, r, http.StatusBadGateway, "upstream unavailable", nil)
		},
	}, nil
}

func stripAPI(p string) string {
	if rest, ok := strings.CutPrefix(p, apiPrefix); ok && (rest == "" || rest[0] == '/') {
		if rest == "" {
			return "/"
		}
		return rest
	}
	return p
}

// alias serves an old public path through the handler of its current one.
func alias(path string, h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = path
		r2.URL.RawPath = ""
		h.ServeHTTP(w, r2)
	}
}
