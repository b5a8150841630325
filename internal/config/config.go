// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML file and environment variables.
//   - Validation errors wrap ErrInvalidConfig; loader failures wrap ErrLoadConfig.
package config

import (
	"context"
	"runtime"
	"time"
)

// Bridge backends.
const (
	BridgeMemory = "memory"
	BridgeRedis  = "redis"
)

// Rasterizers.
const (
	RasterizerDraw    = "draw"
	RasterizerBrowser = "browser"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the scoring API root, e.g. "https://api.bethegolf.com".
	APIBaseURL string `koanf:"api_base_url"`

	// APITimeoutMS bounds scoring API calls; 0 keeps the transport default.
	APITimeoutMS int `koanf:"api_timeout_ms"`

	// DefaultLocale is used when a request carries no locale.
	DefaultLocale string `koanf:"default_locale"`

	// BridgeBackend selects where frames are handed off: memory or redis.
	BridgeBackend string `koanf:"bridge_backend"`

	// RedisAddr is used when BridgeBackend is redis.
	RedisAddr string `koanf:"redis_addr"`

	// BridgeTTLSeconds expires frames that were written but never read.
	BridgeTTLSeconds int `koanf:"bridge_ttl_seconds"`

	// AttemptCapacity bounds the number of live attempts kept in memory.
	AttemptCapacity int `koanf:"attempt_capacity"`

	// ResultCacheSize bounds the public result cache.
	ResultCacheSize int `koanf:"result_cache_size"`

	// RenderWorkers sets the number of share image workers.
	RenderWorkers int `koanf:"render_workers"`

	// RenderQueueSize bounds pending share image jobs.
	RenderQueueSize int `koanf:"render_queue_size"`

	// SubmitDedupeSize bounds the submission guard.
	SubmitDedupeSize int `koanf:"submit_dedupe_size"`

	// Rasterizer selects the share image backend: draw or browser.
	Rasterizer string `koanf:"rasterizer"`

	// BrowserBin points at a Chrome binary for the browser rasterizer.
	BrowserBin string `koanf:"browser_bin"`

	// MinProcessingMS is the minimum time a submission stays in the
	// processing state before its outcome is shown.
	MinProcessingMS int `koanf:"min_processing_ms"`

	// ShareBaseURL prefixes public result links when the API omits share_url.
	ShareBaseURL string `koanf:"share_base_url"`
}

// New creates a Config with defaults. The context is reserved for future
// remote sources and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		APIBaseURL:       "http://localhost:8000",
		APITimeoutMS:     0,
		DefaultLocale:    "en",
		BridgeBackend:    BridgeMemory,
		RedisAddr:        "localhost:6379",
		BridgeTTLSeconds: 600,
		AttemptCapacity:  10_000,
		ResultCacheSize:  1_000,
		RenderWorkers:    runtime.NumCPU(),
		RenderQueueSize:  256,
		SubmitDedupeSize: 50_000,
		Rasterizer:       RasterizerDraw,
		MinProcessingMS:  1500,
		ShareBaseURL:     "https://bethegolf.com/results",
	}
}

// APITimeout returns APITimeoutMS as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutMS) * time.Millisecond
}

// BridgeTTL returns BridgeTTLSeconds as a duration.
func (c *Config) BridgeTTL() time.Duration {
	return time.Duration(c.BridgeTTLSeconds) * time.Second
}

// MinProcessing returns MinProcessingMS as a duration.
func (c *Config) MinProcessing() time.Duration {
	return time.Duration(c.MinProcessingMS) * time.Millisecond
}
