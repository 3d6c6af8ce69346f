package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"ShreeMohan/internal/auth"
	"ShreeMohan/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	AuthURL    string
	CatalogURL string
	OrderURL   string
	JWTSecret  string
}

const (
	readyTimeout      = 2 * time.Second
	readyProbeTimeout = 700 * time.Millisecond
)

type upstream struct{ name, url string }

var readyClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	},
}

func NewHandler(deps Deps, httpDeps HTTPDeps) (http.Handler, error) {
	if httpDeps.Log == nil {
		httpDeps.Log = zap.NewNop()
	}

	var clientMetrics *kit.ClientMetrics
	if httpDeps.Registry != nil {
		clientMetrics = kit.NewClientMetrics(httpDeps.Registry)
	}

	upstreams := []upstream{
		{"auth", deps.AuthURL},
		{"catalog", deps.CatalogURL},
		{"order", deps.OrderURL},
	}
	proxies, err := buildProxies(upstreams, httpDeps.Log, clientMetrics)
	if err != nil {
		return nil, err
	}
	authProxy, catalogProxy, orderProxy := proxies[0], proxies[1], proxies[2]

	jwt := auth.NewTokenMaker(deps.JWTSecret, 0, 0)

	r := kit.NewRouter(kit.RouterOptions{
		Log:            httpDeps.Log,
		Service:        httpDeps.Service,
		Registry:       httpDeps.Registry,
		MetricsEnabled: httpDeps.MetricsEnabled,
		MetricsToken:   httpDeps.MetricsToken,
		Ready:          func(ctx context.Context) error { return probeAll(ctx, upstreams) },
		ReadyTimeout:   readyTimeout,
	})

	r.Route(apiPrefix, func(api chi.Router) {
		api.Handle("/auth/*", authProxy)
		api.Post("/login", alias(apiPrefix+"/auth/login/", authProxy))
		api.Get("/verify-token", alias(apiPrefix+"/auth/verify-token/", authProxy))

		api.Group(func(pr chi.Router) {
			pr.Use(AuthJWT(jwt))
			pr.Use(InjectHeaders)

			pr.Handle("/products", catalogProxy)
			pr.Handle("/products/*", catalogProxy)
			pr.Handle("/orders", orderProxy)
			pr.Handle("/orders/*", orderProxy)
			pr.Handle("/salerecords", orderProxy)
		})
	})

	return otelhttp.NewHandler(r, httpDeps.Service), nil
}

// buildProxies returns one reverse proxy per upstream, in the order given.
func buildProxies(upstreams []upstream, log *zap.Logger, m *kit.ClientMetrics) ([]http.Handler, error) {
	out := make([]http.Handler, 0, len(upstreams))
	for _, u := range upstreams {
		p, err := NewReverseProxy(u.url, kit.NewClientTransport(u.name, nil, m), log)
		if err != nil {
			return nil, fmt.Errorf("%s proxy: %w", u.name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// probeAll stops at the first upstream that is not ready.
func probeAll(ctx context.Context, upstreams []upstream) error {
	for _, u := range upstreams {
		if err := checkReady(ctx, u.url+"/readyz"); err != nil {
			return fmt.Errorf("%s: %w", u.name, err)
		}
	}
	return nil
}

func checkReady(ctx context.Context, url string) error {
	cctx, cancel := context.WithTimeout(ctx, readyProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := readyClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d", resp.StatusCode)
	}

	return nil
}
