package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ShreeMohan/internal/catalog"
	"ShreeMohan/internal/config"
	"ShreeMohan/migrations"
	"ShreeMohan/pkg/kit"
)

func main() {
	service := "catalog"
	configPath := flag.String("config", "config.yaml", "optional yaml config file")
	flag.Parse()

	cfg, err := kit.LoadConfig[config.Catalog](service, *configPath, config.CatalogDefaults())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("open product store", zap.Error(err))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := catalog.NewHandler(&catalog.Server{Store: store, Log: log}, catalog.HTTPDeps{
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

func openStore(ctx context.Context, db config.DatabaseConfig, log *zap.Logger) (catalog.Store, func(), error) {
	if db.DSN == "" {
		log.Warn("no database configured, products live in memory")
		return catalog.NewMemStore(), func() {}, nil
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
	return catalog.NewPostgresStore(pool), pool.Close, nil
}
