package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// ─── Catalogs ───────────────────────────────────────────────────────────────

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"levels": engagement.Levels()})
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"achievements": engagement.AllAchievements()})
}

// ─── Per-User Points ────────────────────────────────────────────────────────

// pointsResponse is the snapshot returned by every points route. SyncError
// is set when the change is applied but could not be persisted yet.
type pointsResponse struct {
	engagement.Summary
	SyncError string `json:"sync_error,omitempty"`
}

type addPointsRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type trackActivityRequest struct {
	Activity domain.ActivityType `json:"activity"`
}

type updateStreakRequest struct {
	Increment bool `json:"increment"`
}

// engine resolves the {user} path parameter, writing the error response
// itself when the engine cannot be loaded.
func (s *Server) engine(w http.ResponseWriter, r *http.Request) (*engagement.Engine, bool) {
	e, err := s.sessions.Get(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		s.log.Error("load engine failed", "user", chi.URLParam(r, "user"), "error", err)
		writeError(w, statusFor(err), err.Error())
		return nil, false
	}
	return e, true
}

// respond writes the snapshot after a mutation. Persistence failures are
// reported in sync_error; anything else is a request error.
func (s *Server) respond(w http.ResponseWriter, e *engagement.Engine, err error) {
	if err != nil && !errors.Is(err, domain.ErrPersistenceUnavailable) {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := pointsResponse{Summary: e.Snapshot()}
	if syncErr := s.sessions.SyncErr(e); syncErr != nil {
		resp.SyncError = syncErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoints(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	s.respond(w, e, nil)
}

func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	var req addPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	s.respond(w, e, e.AddPoints(r.Context(), req.Amount, req.Reason))
}

func (s *Server) handleTrackActivity(w http.ResponseWriter, r *http.Request) {
	var req trackActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	s.respond(w, e, e.TrackActivity(r.Context(), req.Activity))
}

func (s *Server) handleUpdateStreak(w http.ResponseWriter, r *http.Request) {
	var req updateStreakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	s.respond(w, e, e.UpdateStreak(r.Context(), req.Increment))
}

func (s *Server) handleUnlockAchievement(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	_, err := e.UnlockAchievement(r.Context(), domain.AchievementID(chi.URLParam(r, "id")))
	s.respond(w, e, err)
}

// ─── Pending Notifications ──────────────────────────────────────────────────

type pendingResponse struct {
	LevelUp      *domain.Level        `json:"level_up"`
	Achievements []domain.Achievement `json:"achievements"`
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pendingResponse{
		LevelUp:      e.PendingLevelUp(),
		Achievements: e.PendingAchievements(),
	})
}

func (s *Server) handleClearLevelUp(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	e.ClearPendingLevelUp()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearAchievement(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	a := e.ClearPendingAchievement()
	if a == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievement": a})
}

// ─── History ────────────────────────────────────────────────────────────────

// handleHistory serves the newest journal events. Without ?limit the
// session default applies; an explicit limit must be at least 1.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}

	events, err := s.sessions.History(r.Context(), chi.URLParam(r, "user"), limit)
	if err != nil {
		s.log.Error("history failed", "user", chi.URLParam(r, "user"), "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
