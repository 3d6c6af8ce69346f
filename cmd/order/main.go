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
	"ShreeMohan/internal/order"
	"ShreeMohan/migrations"
	"ShreeMohan/pkg/kit"
)

func main() {
	service := "order"
	configPath := flag.String("config", "config.yaml", "optional yaml config file")
	flag.Parse()

	cfg, err := kit.LoadConfig[config.Order](service, *configPath, config.OrderDefaults())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("open order store", zap.Error(err))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &order.Server{
		Store:   store,
		Catalog: order.NewCatalogClient(cfg.Catalog.URL, cfg.Catalog.Timeout, kit.NewClientMetrics(reg)),
		Log:     log,
	}
	h := order.NewHandler(s, order.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})

	if err := kit.RunHTTPServer(ctx, cfg.HTTP.Addr, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(ctx context.Context, db config.DatabaseConfig, log *zap.Logger) (order.Store, func(), error) {
	if db.DSN == "" {
		log.Warn("no database configured, orders live in memory")
		return order.NewMemStore(), func() {}, nil
	}

	if db.Migrate {
		if err := kit.Migrate(db.DSN, migrations.FS); err != nil {
			return nil, nil, err
		}
	}
	pool, err := kit.OpenPostgres(ctx, db.DSN)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using postgres", zap.Stringer("db", db))
	return order.NewPostgresStore(pool), pool.Close, nil
}
