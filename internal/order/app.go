package order

import (
	"net/http"

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
}

// NewHandler serves orders and sale records. Every business route needs the
// identity headers the gateway injects.
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

	r.Group(func(r chi.Router) {
		r.Use(RequireUserHeaders)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.list)
			r.Post("/", s.create)
			r.Get("/{order_id}", s.get)
			r.Delete("/{order_id}", s.delete)
		})
		r.Get("/salerecords", s.saleRecords)
	})
	return r
}
