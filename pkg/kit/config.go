package kit

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Validator interface {
	Validate() error
}

// LoadConfig fills a T from, in rising priority: defaults, the yaml file at
// path (optional), a local .env file, and PREFIX_* environment variables.
// Underscores after the prefix become nesting, so SHOP_HTTP_PORT is http.port.
func LoadConfig[T Validator](prefix, path string, defaults map[string]any) (T, error) {
	var cfg T
	k := koanf.New(".")

	if len(defaults) > 0 {
		if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
			return cfg, fmt.Errorf("load defaults: %w", err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", path, err)
		}
	}

	envPrefix := strings.ToUpper(prefix) + "_"
	transform := func(key string) string {
		key = strings.TrimPrefix(strings.ToUpper(key), envPrefix)
		return strings.ReplaceAll(strings.ToLower(key), "_", ".")
	}

	dotenv, err := godotenv.Read(".env")
	switch {
	case err == nil:
		m := make(map[string]any, len(dotenv))
		for key, v := range dotenv {
			if strings.HasPrefix(strings.ToUpper(key), envPrefix) {
				m[transform(key)] = v
			}
		}
		if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
			return cfg, fmt.Errorf("load .env: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, fmt.Errorf("read .env: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
