package config

import (
	"errors"
	"time"
)

type Auth struct {
	HTTP    HTTPConfig     `koanf:"http"`
	Log     LogConfig      `koanf:"log"`
	DB      DatabaseConfig `koanf:"db"`
	Metrics MetricsConfig  `koanf:"metrics"`
	JWT     JWTConfig      `koanf:"jwt"`
	Admin   struct {
		Username string `koanf:"username"`
		Password string `koanf:"password"`
	} `koanf:"admin"`
	Login struct {
		Limit  int           `koanf:"limit"`
		Window time.Duration `koanf:"window"`
	} `koanf:"login"`
}

func AuthDefaults() map[string]any {
	return map[string]any{
		"http.addr":      ":8081",
		"log.level":      "info",
		"db.migrate":     true,
		"jwt.ttl":        "12h",
		"jwt.refreshttl": "168h",
		"admin.username": "admin",
		"login.limit":    5,
		"login.window":   "1m",
	}
}

func (c Auth) Validate() error {
	err := validateAll(c.HTTP, c.Log, c.DB, c.Metrics, c.JWT)
	if c.Login.Limit <= 0 || c.Login.Window <= 0 {
		err = errors.Join(err, errors.New("login.limit and login.window must be positive"))
	}
	if c.Admin.Username != "" && len(c.Admin.Password) < 8 {
		err = errors.Join(err, errors.New("admin.password must be at least 8 characters"))
	}
	return err
}

type Catalog struct {
	HTTP    HTTPConfig     `koanf:"http"`
	Log     LogConfig      `koanf:"log"`
	DB      DatabaseConfig `koanf:"db"`
	Metrics MetricsConfig  `koanf:"metrics"`
}

func CatalogDefaults() map[string]any {
	return map[string]any{
		"http.addr":  ":8082",
		"log.level":  "info",
		"db.migrate": true,
	}
}

func (c Catalog) Validate() error {
	return validateAll(c.HTTP, c.Log, c.DB, c.Metrics)
}

type Order struct {
	HTTP    HTTPConfig     `koanf:"http"`
	Log     LogConfig      `koanf:"log"`
	DB      DatabaseConfig `koanf:"db"`
	Metrics MetricsConfig  `koanf:"metrics"`
	Catalog ServiceURL     `koanf:"catalog"`
}

func OrderDefaults() map[string]any {
	return map[string]any{
		"http.addr":       ":8083",
		"log.level":       "info",
		"db.migrate":      true,
		"catalog.url":     "http://localhost:8082",
		"catalog.timeout": "3s",
	}
}

func (c Order) Validate() error {
	return errors.Join(
		validateAll(c.HTTP, c.Log, c.DB, c.Metrics),
		c.Catalog.validate("catalog"),
	)
}

type Gateway struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	JWT     JWTConfig     `koanf:"jwt"`
	Auth    ServiceURL    `koanf:"auth"`
	Catalog ServiceURL    `koanf:"catalog"`
	Order   ServiceURL    `koanf:"order"`
}

func GatewayDefaults() map[string]any {
	return map[string]any{
		"http.addr":   ":8080",
		"log.level":   "info",
		"jwt.ttl":     "12h",
		"auth.url":    "http://localhost:8081",
		"catalog.url": "http://localhost:8082",
		"order.url":   "http://localhost:8083",
	}
}

func (c Gateway) Validate() error {
	return errors.Join(
		validateAll(c.HTTP, c.Log, c.Metrics, c.JWT),
		c.Auth.validate("auth"),
		c.Catalog.validate("catalog"),
		c.Order.validate("order"),
	)
}

// Billing configures the operator CLI.
type Billing struct {
	Log     LogConfig `koanf:"log"`
	Backend struct {
		URL     string        `koanf:"url"`
		Legacy  bool          `koanf:"legacy"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"backend"`
	Tokens struct {
		Store string `koanf:"store"`
		File  string `koanf:"file"`
	} `koanf:"tokens"`
	Redis struct {
		Addr   string        `koanf:"addr"`
		Prefix string        `koanf:"prefix"`
		TTL    time.Duration `koanf:"ttl"`
	} `koanf:"redis"`
}

func BillingDefaults() map[string]any {
	return map[string]any{
		"log.level":       "warn",
		"backend.timeout": "15s",
		"tokens.store":    "file",
		"tokens.file":     ".shreemohan/tokens.json",
		"redis.prefix":    "shreemohan:session",
	}
}

func (c Billing) Validate() error {
	err := c.Log.Validate()
	switch c.Tokens.Store {
	case "memory", "file":
	case "redis":
		if c.Redis.Addr == "" {
			err = errors.Join(err, errors.New("redis.addr is required when tokens.store is redis"))
		}
	default:
		err = errors.Join(err, errors.New("tokens.store must be memory, file or redis"))
	}
	if c.Backend.URL != "" {
		err = errors.Join(err, ServiceURL{URL: c.Backend.URL}.validate("backend"))
	}
	return err
}
