package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ShreeMohan/internal/config"
	"ShreeMohan/internal/gateway"
	"ShreeMohan/pkg/kit"
)

func main() {
	service := "gateway"
	configPath := flag.String("config", "config.yaml", "optional yaml config file")
	flag.Parse()

	cfg, err := kit.LoadConfig[config.Gateway](service, *configPath, config.GatewayDefaults())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	deps := gateway.Deps{
		JWTSecret:  cfg.JWT.Secret,
		AuthURL:    cfg.Auth.URL,
		CatalogURL: cfg.Catalog.URL,
		OrderURL:   cfg.Order.URL,
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h, err := gateway.NewHandler(deps, gateway.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})
	if err != nil {
		log.Fatal("init gateway handler failed", zap.Error(err))
	}

	if err := kit.RunHTTPServer(context.Background(), cfg.HTTP.Addr, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
