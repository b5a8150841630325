package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/okian/bethegolf/internal/adapters/bridge"
	"github.com/okian/bethegolf/internal/adapters/browser"
	"github.com/okian/bethegolf/internal/adapters/http/api"
	"github.com/okian/bethegolf/internal/adapters/http/site"
	"github.com/okian/bethegolf/internal/adapters/http/swagger"
	"github.com/okian/bethegolf/internal/adapters/scoringapi"
	app "github.com/okian/bethegolf/internal/app"
	"github.com/okian/bethegolf/internal/config"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/logger"
	"github.com/okian/bethegolf/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	// submissions and image renders can outlast a plain read
	writeTimeout = 60 * time.Second

	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	frames, closeBridge, err := newBridge(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBridge()

	rasterizer, closeRasterizer, err := newRasterizer(cfg)
	if err != nil {
		return err
	}
	defer closeRasterizer()

	client, err := scoringapi.New(cfg.APIBaseURL,
		scoringapi.WithTimeout(cfg.APITimeout()),
		scoringapi.WithLogger(log.Named("scoringapi")),
	)
	if err != nil {
		return fmt.Errorf("scoring api: %w", err)
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithScoringClient(client),
		app.WithBridge(frames),
		app.WithRasterizer(rasterizer),
		app.WithRenderWorkers(cfg.RenderWorkers),
		app.WithRenderQueueSize(cfg.RenderQueueSize),
		app.WithAttemptCapacity(cfg.AttemptCapacity),
		app.WithResultCacheSize(cfg.ResultCacheSize),
		app.WithSubmitDedupeSize(cfg.SubmitDedupeSize),
		app.WithMinProcessing(cfg.MinProcessing()),
		app.WithDefaultLocale(cfg.DefaultLocale),
		app.WithShareBaseURL(cfg.ShareBaseURL),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("api", cfg.APIBaseURL),
			logger.String("bridge", cfg.BridgeBackend),
			logger.String("rasterizer", rasterizer.Name()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// newBridge builds the configured frame bridge and its cleanup.
func newBridge(ctx context.Context, cfg *config.Config) (bridge.Store, func(), error) {
	ttl := bridge.WithTTL(cfg.BridgeTTL())
	switch cfg.BridgeBackend {
	case config.BridgeRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store := bridge.NewRedisStore(rdb, ttl)
		if err := store.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis bridge %s: %w", cfg.RedisAddr, err)
		}
		return store, func() { _ = rdb.Close() }, nil
	default:
		return bridge.NewMemoryStore(ttl), func() {}, nil
	}
}

// newRasterizer builds the configured share image backend and its cleanup.
func newRasterizer(cfg *config.Config) (share.Rasterizer, func(), error) {
	switch cfg.Rasterizer {
	case config.RasterizerBrowser:
		r := browser.New(browser.WithBin(cfg.BrowserBin), browser.WithLogger(logger.Get().Named("browser")))
		return r, func() { _ = r.Close() }, nil
	default:
		r, err := share.NewDrawRasterizer()
		if err != nil {
			return nil, nil, fmt.Errorf("draw rasterizer: %w", err)
		}
		return r, func() {}, nil
	}
}

// newRouter mounts the docs, the JSON API and the pages.
func newRouter(ctx context.Context, svc *app.Service) *mux.Router {
	r := mux.NewRouter()
	swagger.Register(ctx, r)
	api.NewServer(svc, svc).Register(ctx, r)
	site.Register(ctx, r, svc)
	return r
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes gauges that GetStats maintains.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
