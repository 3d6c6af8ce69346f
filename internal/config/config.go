// Package config holds the typed configuration of every binary. Values are
// loaded with kit.LoadConfig: defaults, then config.yaml, then .env, then
// the binary's prefixed environment (AUTH_, CATALOG_, ORDER_, GATEWAY_,
// BILLING_). Keys avoid underscores because an underscore in an environment
// name means nesting.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

func (c HTTPConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("http.addr is required")
	}
	return nil
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Level)
}

// DatabaseConfig selects postgres when DSN is set and the in-memory store
// otherwise.
type DatabaseConfig struct {
	DSN     string `koanf:"dsn"`
	Migrate bool   `koanf:"migrate"`
}

func (c DatabaseConfig) Validate() error {
	if c.DSN == "" {
		return nil
	}
	if _, err := url.Parse(c.DSN); err != nil {
		return fmt.Errorf("db.dsn: %w", err)
	}
	return nil
}

func (c DatabaseConfig) String() string {
	if c.DSN == "" {
		return "<memory>"
	}
	if u, err := url.Parse(c.DSN); err == nil && u.User != nil {
		u.User = url.User("****")
		return u.String()
	}
	return "****"
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
}

func (c MetricsConfig) Validate() error { return nil }

type JWTConfig struct {
	Secret     string        `koanf:"secret"`
	TTL        time.Duration `koanf:"ttl"`
	RefreshTTL time.Duration `koanf:"refreshttl"`
}

const minSecretLen = 32

func (c JWTConfig) Validate() error {
	if len(c.Secret) < minSecretLen {
		return fmt.Errorf("jwt.secret must be at least %d characters", minSecretLen)
	}
	if c.TTL <= 0 {
		return errors.New("jwt.ttl must be positive")
	}
	return nil
}

// ServiceURL points at a peer service.
type ServiceURL struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c ServiceURL) validate(name string) error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s.url %q must be an absolute URL", name, c.URL)
	}
	return nil
}

func validateAll(vs ...interface{ Validate() error }) error {
	var errs []error
	for _, v := range vs {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
