package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ShreeMohan/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// LoginLimit attempts per LoginWindow per client IP.
	LoginLimit  int
	LoginWindow time.Duration
}

const (
	defaultLoginLimit  = 5
	defaultLoginWindow = time.Minute
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if s.Log == nil {
		s.Log = deps.Log
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	limit, window := deps.LoginLimit, deps.LoginWindow
	if limit <= 0 {
		limit = defaultLoginLimit
	}
	if window <= 0 {
		window = defaultLoginWindow
	}

	r := kit.NewRouter(kit.RouterOptions{
		Log:            s.Log,
		Service:        deps.Service,
		Registry:       deps.Registry,
		MetricsEnabled: deps.MetricsEnabled,
		MetricsToken:   deps.MetricsToken,
		Ready:          s.Store.Ping,
	})

	logins := kit.NewIPRateLimiter(limit, window)
	r.Route("/auth", func(r chi.Router) {
		r.With(logins.Middleware).Post("/login", s.handleLogin)
		r.Get("/verify-token", s.handleVerify)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}
