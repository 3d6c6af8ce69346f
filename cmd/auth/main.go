package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ShreeMohan/internal/auth"
	"ShreeMohan/internal/config"
	"ShreeMohan/migrations"
	"ShreeMohan/pkg/kit"
)

func main() {
	service := "auth"
	configPath := flag.String("config", "config.yaml", "optional yaml config file")
	flag.Parse()

	cfg, err := kit.LoadConfig[config.Auth](service, *configPath, config.AuthDefaults())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("open user store", zap.Error(err))
	}
	defer closeStore()

	if cfg.Admin.Username != "" {
		if err := auth.EnsureAdmin(ctx, store, "u_"+uuid.NewString(), cfg.Admin.Username, cfg.Admin.Password); err != nil {
			log.Fatal("seed admin user", zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &auth.Server{
		Log:   log,
		Store: store,
		JWT:   auth.NewTokenMaker(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.RefreshTTL),
	}
	h := auth.NewHandler(s, auth.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		LoginLimit:     cfg.Login.Limit,
		LoginWindow:    cfg.Login.Window,
	})

	if err := kit.RunHTTPServer(ctx, cfg.HTTP.Addr, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(ctx context.Context, db config.DatabaseConfig, log *zap.Logger) (auth.UserStore, func(), error) {
	if db.DSN == "" {
		log.Warn("no database configured, users live in memory")
		return auth.NewMemStore(), func() {}, nil
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
	return auth.NewPostgresStore(pool), pool.Close, nil
}
