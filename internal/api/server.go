// Package api provides the HTTP server for kickoff.
// It exposes the points engine per user, the static catalogs, health and
// metrics, and a websocket feed of level-ups and unlocks.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/health"
	"github.com/kickoff-wellness/kickoff/internal/infra/healing"
	"github.com/kickoff-wellness/kickoff/internal/logger"
)

// Server is the kickoff HTTP API server.
type Server struct {
	sessions       *engagement.Sessions
	version        string
	metricsEnabled bool
	corsOrigins    []string
	health         *health.Checker // nil disables /api/health detail
	persister      *engagement.Persister
	breaker        *healing.Breaker
	hub            *Hub            // nil disables the live feed
	limiter        *RateLimiter    // nil disables rate limiting
	auth           *Authenticator  // nil disables bearer auth
	log            *slog.Logger
}

// NewServer creates a new API server.
func NewServer(sessions *engagement.Sessions, version string) *Server {
	return &Server{
		sessions: sessions,
		version:  version,
		log:      logger.Component("api"),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth sets the checker reported by /api/health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// SetPersister reports write-behind queue stats on /api/health.
func (s *Server) SetPersister(p *engagement.Persister) { s.persister = p }

// SetBreaker reports the store circuit breaker on /api/health.
func (s *Server) SetBreaker(b *healing.Breaker) { s.breaker = b }

// SetHub sets the live notification hub.
func (s *Server) SetHub(h *Hub) { s.hub = h }

// SetRateLimiter sets the per-client rate limiter.
func (s *Server) SetRateLimiter(l *RateLimiter) { s.limiter = l }

// SetAuth requires bearer tokens on every user route.
func (s *Server) SetAuth(a *Authenticator) { s.auth = a }

// SetCORSOrigins restricts CORS to origins. Empty or "*" allows any.
func (s *Server) SetCORSOrigins(origins []string) { s.corsOrigins = origins }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	// Liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	r.Get("/api/health", s.handleHealth)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}

		// Static catalogs
		r.Get("/api/levels", s.handleLevels)
		r.Get("/api/achievements", s.handleAchievements)

		r.Route("/api/users/{user}", func(r chi.Router) {
			if s.auth != nil {
				r.Use(s.auth.Middleware)
			}

			// The live feed is long-lived; only plain requests get a deadline.
			if s.hub != nil {
				r.Get("/live", s.hub.HandleLive)
			}

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))

				r.Get("/points", s.handleGetPoints)
				r.Post("/points", s.handleAddPoints)
				r.Post("/activities", s.handleTrackActivity)
				r.Post("/streak", s.handleUpdateStreak)
				r.Post("/achievements/{id}", s.handleUnlockAchievement)
				r.Get("/pending", s.handlePending)
				r.Delete("/pending/level-up", s.handleClearLevelUp)
				r.Delete("/pending/achievement", s.handleClearAchievement)
				r.Get("/history", s.handleHistory)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"healthy": true, "checks": []health.Status{}}
	status := http.StatusOK
	if s.health != nil {
		healthy := s.health.IsHealthy()
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		resp["healthy"] = healthy
		resp["checks"] = s.health.Statuses()
	}
	if s.persister != nil {
		resp["persister"] = s.persister.Stats()
	}
	if s.breaker != nil {
		resp["breaker"] = s.breaker.Snapshot()
	}
	writeJSON(w, status, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidActivityType), errors.Is(err, domain.ErrEmptyUserKey):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownAchievement):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for the configured origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	if len(s.corsOrigins) == 0 || slices.Contains(s.corsOrigins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(s.corsOrigins, origin) {
		return origin
	}
	return ""
}
