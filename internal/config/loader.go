package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "BETHEGOLF_"
	EnvConfig = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if BETHEGOLF_CONFIG is set
//  3. env (prefix BETHEGOLF_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// BETHEGOLF_API_BASE_URL -> api_base_url (flat keys, underscores kept).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case strings.TrimSpace(c.APIBaseURL) == "":
		return invalid("api_base_url must not be empty")
	case c.APITimeoutMS < 0:
		return invalid("api_timeout_ms must not be negative")
	case c.MinProcessingMS < 0:
		return invalid("min_processing_ms must not be negative")
	}
	switch c.BridgeBackend {
	case BridgeMemory:
	case BridgeRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return invalid("redis_addr is required for the redis bridge")
		}
	default:
		return invalid("unknown bridge_backend %q", c.BridgeBackend)
	}
	switch c.Rasterizer {
	case RasterizerDraw, RasterizerBrowser:
	default:
		return invalid("unknown rasterizer %q", c.Rasterizer)
	}
	return nil
}
