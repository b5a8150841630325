// Package service wires the assessment flow, the scoring API, the frame
// bridge and the image pipeline into the operations served over HTTP.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/bethegolf/internal/adapters/bridge"
	eventqueue "github.com/okian/bethegolf/internal/adapters/mq/queue"
	workerpool "github.com/okian/bethegolf/internal/adapters/mq/worker"
	"github.com/okian/bethegolf/internal/adapters/repository"
	"github.com/okian/bethegolf/internal/domain/dedupe"
	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/logger"
	"github.com/okian/bethegolf/pkg/metrics"
)

// ScoringClient is the remote assessment API.
type ScoringClient interface {
	Start(ctx context.Context, locale string, d model.Demographics) (model.StartResult, error)
	Complete(ctx context.Context, sessionID, locale string, rs model.ResponseSet) (model.CompletionResult, error)
	PublicResult(ctx context.Context, token, locale string) (model.PublicResult, error)
}

// Service implements the operations behind the web front-end.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	client     ScoringClient
	bridge     bridge.Store
	rasterizer share.Rasterizer

	// Built on Start
	attempts *repository.AttemptStore
	results  *repository.ResultCache
	deduper  dedupe.Deduper
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool

	// Configuration
	renderWorkers   int
	renderQueueSize int
	attemptCapacity int
	resultCacheSize int
	dedupeSize      int
	minProcessing   time.Duration
	defaultLocale   string
	shareBaseURL    string

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScoringClient sets the remote API client. Required.
func WithScoringClient(c ScoringClient) Option {
	return func(s *Service) { s.client = c }
}

// WithBridge sets the store that hands frames from start to the controller.
func WithBridge(b bridge.Store) Option {
	return func(s *Service) {
		if b != nil {
			s.bridge = b
		}
	}
}

// WithRasterizer sets the image backend.
func WithRasterizer(r share.Rasterizer) Option {
	return func(s *Service) {
		if r != nil {
			s.rasterizer = r
		}
	}
}

// WithRenderWorkers sets the number of image workers.
func WithRenderWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.renderWorkers = n
		}
	}
}

// WithRenderQueueSize sets the capacity of the render queue.
func WithRenderQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.renderQueueSize = n
		}
	}
}

// WithAttemptCapacity sets how many live attempts are kept.
func WithAttemptCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attemptCapacity = n
		}
	}
}

// WithResultCacheSize sets how many public results are cached.
func WithResultCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.resultCacheSize = n
		}
	}
}

// WithSubmitDedupeSize sets the size of the submission guard.
func WithSubmitDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithMinProcessing sets the minimum time a submission appears to take.
func WithMinProcessing(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.minProcessing = d
		}
	}
}

// WithDefaultLocale sets the locale used when a request has none.
func WithDefaultLocale(locale string) Option {
	return func(s *Service) {
		if locale != "" {
			s.defaultLocale = locale
		}
	}
}

// WithShareBaseURL sets the prefix of public result links.
func WithShareBaseURL(u string) Option {
	return func(s *Service) { s.shareBaseURL = strings.TrimRight(u, "/") }
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		renderWorkers:   runtime.NumCPU(),
		renderQueueSize: 256,
		attemptCapacity: 10000,
		resultCacheSize: 1000,
		dedupeSize:      50000,
		defaultLocale:   "en",
		shareBaseURL:    "https://bethegolf.com/results",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the registries and starts the render workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.client == nil {
		return ErrNoScoringClient
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting assessment service...")

	if s.bridge == nil {
		s.bridge = bridge.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory frame bridge")
	}
	if s.rasterizer == nil {
		r, err := share.NewDrawRasterizer()
		if err != nil {
			return fmt.Errorf("rasterizer: %w", err)
		}
		s.rasterizer = r
	}

	attempts, err := repository.NewAttemptStore(s.attemptCapacity)
	if err != nil {
		return err
	}
	results, err := repository.NewResultCache(s.resultCacheSize)
	if err != nil {
		return err
	}
	s.attempts = attempts
	s.results = results
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.renderQueueSize))
	s.pool = workerpool.NewPool(s.renderWorkers, s.queue, s.rasterizer)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "assessment service started",
		logger.Int("renderWorkers", s.renderWorkers),
		logger.Int("renderQueueSize", s.renderQueueSize),
		logger.Int("attemptCapacity", s.attemptCapacity),
		logger.String("rasterizer", s.rasterizer.Name()),
	)
	return nil
}

// Stop drains the render queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping assessment service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "assessment service stopped")
	return err
}

// running returns ErrNotStarted until Start succeeded.
func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) locale(l string) string {
	if l = strings.TrimSpace(l); l != "" {
		return l
	}
	return s.defaultLocale
}

// DefaultLocale returns the locale used when a request has none.
func (s *Service) DefaultLocale() string { return s.defaultLocale }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"renderWorkers":   s.renderWorkers,
		"renderQueueSize": s.renderQueueSize,
		"attemptCapacity": s.attemptCapacity,
		"resultCacheSize": s.resultCacheSize,
	}

	if s.started {
		attempts := s.attempts.Count(ctx)
		queueLen := s.queue.Len(ctx)

		stats["attempts"] = attempts
		stats["renderQueueLength"] = queueLen
		stats["cachedResults"] = s.results.Len()
		stats["submissions"] = s.deduper.Size()
		stats["rasterizer"] = s.rasterizer.Name()

		metrics.UpdateActiveAttempts(attempts)
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
