package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/api"
	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/health"
	"github.com/kickoff-wellness/kickoff/internal/infra/healing"
	"github.com/kickoff-wellness/kickoff/internal/infra/memory"
	"github.com/kickoff-wellness/kickoff/internal/infra/postgres"
	"github.com/kickoff-wellness/kickoff/internal/infra/redisstore"
	"github.com/kickoff-wellness/kickoff/internal/infra/sqlite"
	"github.com/kickoff-wellness/kickoff/internal/logger"
)

// Daemon is the kickoff runtime. It wires together all services.
type Daemon struct {
	Config    Config
	Store     domain.Store // the backend itself, written through Guarded
	Guarded   *healing.GuardedStore
	Persister *engagement.Persister
	Sessions  *engagement.Sessions
	Hub       *api.Hub
	Health    *health.Checker
	Limiter   *api.RateLimiter
	Server    *api.Server

	log         *slog.Logger
	cancel      context.CancelFunc
	persistDone chan struct{}
}

// OpenStore opens the configured backend. Callers own the returned store.
func OpenStore(ctx context.Context, cfg StoreConfig) (domain.Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		db, err := sqlite.Open(cfg.DataDir())
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, nil
	case BackendPostgres:
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case BackendRedis:
		s, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	case BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, version string) (*Daemon, error) {
	store, err := OpenStore(context.Background(), cfg.Store)
	if err != nil {
		return nil, err
	}

	// Requests never wait on store I/O; the persister flushes behind them
	// and the breaker stops flushes from piling onto a dead backend.
	guarded := healing.Guard(store, healing.DefaultBreakerConfig())
	persister := engagement.NewPersister(guarded, engagement.PersisterConfig{
		FlushInterval: cfg.Store.FlushIntervalDuration(),
	})

	hub := api.NewHub(cfg.API.CORSOrigins)
	sessions := engagement.NewSessions(persister, engagement.WithNotifier(hub))

	// Local backends get a data_dir check; remote ones only need a ping.
	dataDir := ""
	if cfg.Store.Backend == BackendSQLite || cfg.Store.Backend == "" {
		dataDir = cfg.Store.DataDir()
	}
	checker := health.NewChecker(guarded, dataDir)
	checker.SetInterval(cfg.Telemetry.HealthIntervalDuration())

	srv := api.NewServer(sessions, version)
	srv.SetHub(hub)
	srv.SetHealth(checker)
	srv.SetPersister(persister)
	srv.SetBreaker(guarded.Breaker())
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	limiter := api.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateBurst)
	if limiter != nil {
		srv.SetRateLimiter(limiter)
	}
	if auth := api.NewAuthenticator(cfg.Auth.JWTSecret); auth != nil {
		srv.SetAuth(auth)
	}

	return &Daemon{
		Config:    cfg,
		Store:     store,
		Guarded:   guarded,
		Persister: persister,
		Sessions:  sessions,
		Hub:       hub,
		Health:    checker,
		Limiter:   limiter,
		Server:    srv,
		log:       logger.Component("daemon"),
	}, nil
}

// Start launches the background loops: write-behind flushing, idle session
// eviction, health checks and rate limiter cleanup.
func (d *Daemon) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.persistDone = make(chan struct{})
	go func() {
		defer close(d.persistDone)
		d.Persister.Run(ctx)
	}()

	go d.Sessions.Run(ctx, d.Config.Store.SessionIdleDuration())

	// Health checker (always runs)
	go d.Health.Run(ctx)

	if d.Limiter != nil {
		go d.Limiter.Run(ctx)
	}
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	d.Start(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-sigCh:
			d.log.Info("shutdown signal received")
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			d.log.Error("http shutdown failed", "error", err)
		}
	}()

	d.log.Info("kickoff serving",
		"addr", "http://"+addr,
		"store", d.Config.Store.Backend,
		"metrics", d.Config.Telemetry.Prometheus,
		"auth", d.Config.Auth.JWTSecret != "",
	)

	err := httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-shutdownDone
		return errors.Join(err, d.Close())
	}
	<-shutdownDone
	return d.Close()
}

// Close stops background loops, flushes pending writes and closes the
// store. Safe to call more than once.
func (d *Daemon) Close() error {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.persistDone != nil {
		<-d.persistDone
		d.persistDone = nil
	}
	if d.Persister == nil {
		return nil
	}
	err := d.Persister.Close()
	d.Persister = nil
	if err != nil {
		d.log.Error("close store failed", "error", err)
	}
	return err
}
