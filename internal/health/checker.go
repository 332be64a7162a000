// Package health provides periodic health checks with auto-recovery.
// Three checks run every 60 seconds: store, data_dir and catalog.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/infra/metrics"
	"github.com/kickoff-wellness/kickoff/internal/logger"
)

// Pinger is satisfied by every store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      *slog.Logger
}

// NewChecker creates a checker for store and the data directory. dataDir
// may be empty for backends that keep nothing on local disk.
func NewChecker(store Pinger, dataDir string) *Checker {
	checks := []Check{
		{
			Name: "store",
			CheckFn: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				return store.Ping(ctx)
			},
		},
		{
			Name: "catalog",
			CheckFn: func(ctx context.Context) error {
				return errors.Join(
					engagement.ValidateLevels(engagement.Levels()),
					engagement.ValidateAchievements(),
				)
			},
		},
	}
	if dataDir != "" {
		checks = append(checks, Check{
			Name: "data_dir",
			CheckFn: func(ctx context.Context) error {
				return checkDataDir(dataDir)
			},
			RecoverFn: func(ctx context.Context) error {
				return os.MkdirAll(dataDir, 0700)
			},
		})
	}
	return NewCheckerWith(checks...)
}

// NewCheckerWith creates a checker running exactly checks.
func NewCheckerWith(checks ...Check) *Checker {
	return &Checker{
		interval: 60 * time.Second,
		checks:   checks,
		log:      logger.Component("health"),
	}
}

// SetInterval changes the period between runs. Call before Run.
func (c *Checker) SetInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check a single time and records the results.
func (c *Checker) RunOnce(ctx context.Context) []Status {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			c.log.Warn("health check failed", "check", check.Name, "error", err)
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr == nil {
					metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
					s.Recovered = true
					s.Healthy = check.CheckFn(ctx) == nil
				}
			}
		} else {
			s.Healthy = true
		}

		gauge := 0.0
		if s.Healthy {
			gauge = 1
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(gauge)
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
	return statuses
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", dir)
	}
	return nil
}
