package kit

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultReadyTimeout = time.Second

type RouterOptions struct {
	Log     *zap.Logger
	Service string
	// Registry turns on request metrics. /metrics is only served when
	// MetricsEnabled is also set, behind MetricsToken.
	Registry       *prometheus.Registry
	MetricsEnabled bool
	MetricsToken   string

	// Ready backs /readyz. Nil means always ready.
	Ready        func(ctx context.Context) error
	ReadyTimeout time.Duration
}

// NewRouter builds the router every service starts from: request ids,
// trailing slash folding, panic recovery, access logs, optional metrics and
// the /healthz and /readyz probes.
func NewRouter(o RouterOptions) *chi.Mux {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = defaultReadyTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.StripSlashes)
	r.Use(Recoverer)
	r.Use(Logging(o.Log))

	if o.Registry != nil {
		r.Use(NewMetrics(o.Registry).Middleware(o.Service, RoutePattern))
		if o.MetricsEnabled {
			r.With(BearerGuard(o.MetricsToken)).
				Handle("/metrics", promhttp.HandlerFor(o.Registry, promhttp.HandlerOpts{}))
		}
	} else if o.MetricsEnabled {
		o.Log.Warn("metrics enabled without a registry, /metrics not served")
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", o.readyz)
	return r
}

func (o RouterOptions) readyz(w http.ResponseWriter, r *http.Request) {
	if o.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), o.ReadyTimeout)
		defer cancel()

		if err := o.Ready(ctx); err != nil {
			o.Log.Warn("readyz failed", zap.Error(err))
			WriteError(w, r, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
