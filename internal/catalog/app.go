package catalog

import (
	"net/http"

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
}

// NewHandler serves the product routes plus the shared probes and metrics.
// Readiness follows the store.
func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if s.Log == nil {
		s.Log = deps.Log
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}

	r := kit.NewRouter(kit.RouterOptions{
		Log:            s.Log,
		Service:        deps.Service,
		Registry:       deps.Registry,
		MetricsEnabled: deps.MetricsEnabled,
		MetricsToken:   deps.MetricsToken,
		Ready:          s.Store.Ping,
	})
	r.Mount("/products", s.Routes())
	return r
}
