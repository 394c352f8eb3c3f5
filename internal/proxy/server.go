package proxy

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/WillKirkmanM/proxy/internal/cache"
	"github.com/WillKirkmanM/proxy/internal/config"
	"github.com/WillKirkmanM/proxy/internal/forward"
	"github.com/WillKirkmanM/proxy/internal/logging"
	"github.com/WillKirkmanM/proxy/internal/metrics"
	"github.com/WillKirkmanM/proxy/internal/middleware"
)

// Server represents the main proxy server instance
// This struct encapsulates all server dependencies using dependency injection pattern
// The composition approach allows for easy testing and component substitution
type Server struct {
	listener    net.Listener
	store       *cache.Store
	pipeline    *forward.Pipeline
	rateLimiter *middleware.RateLimiter
	metrics     *metrics.Metrics
	logger      *logging.Logger
	config      *config.Config

	wg       sync.WaitGroup
	shutdown chan struct{}
}

// NewServer creates a new proxy server instance using factory pattern
// The factory pattern encapsulates complex initialisation logic and dependency wiring
// This approach promotes loose coupling and makes testing easier
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.NewLogger(cfg.Tracing.ServiceName)
	m := metrics.NewMetrics()

	store, err := cache.New(cfg.Cache.MaxTotalBytes, cfg.Cache.MaxEntryBytes,
		cache.WithLogger(logger),
		cache.WithEvictionMetrics(m.RecordCacheEviction),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache store: %w", err)
	}

	pipelineCfg := forward.DefaultConfig(cfg.Cache.MaxEntryBytes)
	pipelineCfg.ReadTimeout = cfg.Server.ReadTimeout
	pipelineCfg.WriteTimeout = cfg.Server.WriteTimeout
	pipeline := forward.New(store, pipelineCfg,
		forward.WithLogger(logger),
		forward.WithMetrics(m),
	)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	return &Server{
		store:       store,
		pipeline:    pipeline,
		rateLimiter: limiter,
		metrics:     m,
		logger:      logger,
		config:      cfg,
		shutdown:    make(chan struct{}),
	}, nil
}

// Start begins accepting connections with graceful shutdown support
// Uses context for coordinated shutdown across all components
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)

	// net.ListenConfig has no portable backlog knob; cfg.Server.Backlog
	// documents the intended accept queue depth for deployment configs
	// (e.g. a sysctl net.core.somaxconn companion) rather than being
	// applied here.
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln

	errChan := make(chan error, 1)

	go s.acceptLoop(ctx, errChan)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acceptLoop accepts connections until ctx is cancelled or the listener
// is closed by Shutdown, dispatching each to its own goroutine.
func (s *Server) acceptLoop(ctx context.Context, errChan chan<- error) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				errChan <- fmt.Errorf("accept: %w", err)
				return
			}
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection admits a connection past rate limiting and hands it
// to the forwarding pipeline, tracking active-connection and duration
// metrics around the whole lifetime.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if s.rateLimiter != nil {
		ip := middleware.ClientIP(conn.RemoteAddr().String())
		if !s.rateLimiter.Allow(ip) {
			conn.Close()
			return
		}
	}

	start := time.Now()
	s.metrics.IncrementConnections()
	defer s.metrics.DecrementConnections()
	defer func() { s.metrics.RecordConnectionDuration(time.Since(start)) }()

	s.pipeline.Handle(ctx, conn)
}

// Shutdown gracefully stops the server and all background processes
// Implements graceful shutdown pattern to prevent data loss and connection drops
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.shutdown)

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			return fmt.Errorf("failed to close listener: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.store.Close()
	return nil
}

// Metrics returns the server's Prometheus metrics collector so the
// caller can mount its exposition handler on an admin listener.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}
