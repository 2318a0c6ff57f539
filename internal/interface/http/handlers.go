package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/snapclash/snapclash-hub/internal/application/command"
	"github.com/snapclash/snapclash-hub/internal/application/query"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleFriendLeaderboard handles GET /api/v1/leaderboards/friends?range=
// The caller is identified by the X-User-ID header or the user_id parameter.
func (s *Server) handleFriendLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.FriendLeaderboards == nil {
		s.notConfigured(w, r)
		return
	}

	view, err := s.deps.FriendLeaderboards.Handle(r.Context(), query.GetFriendLeaderboardQuery{
		UserID: callerID(r),
		Range:  r.URL.Query().Get("range"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handlePublicLeaderboard handles GET /api/v1/leaderboards/public?range=
func (s *Server) handlePublicLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.PublicLeaderboards == nil {
		s.notConfigured(w, r)
		return
	}

	view, err := s.deps.PublicLeaderboards.Handle(r.Context(), query.GetPublicLeaderboardQuery{
		Range: r.URL.Query().Get("range"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handleTopChallengers handles GET /api/v1/leaderboards/top
func (s *Server) handleTopChallengers(w http.ResponseWriter, r *http.Request) {
	if s.deps.TopChallengers == nil {
		s.notConfigured(w, r)
		return
	}

	view, err := s.deps.TopChallengers.Handle(r.Context(), query.GetTopChallengersQuery{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE & USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleChallengeResults handles GET /api/v1/challenges/{id}/results
func (s *Server) handleChallengeResults(w http.ResponseWriter, r *http.Request) {
	if s.deps.ChallengeResults == nil {
		s.notConfigured(w, r)
		return
	}

	result, err := s.deps.ChallengeResults.Handle(r.Context(), query.GetChallengeResultsQuery{
		ChallengeID: r.PathValue("id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleUserStats handles GET /api/v1/users/{id}/stats
func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.UserStats == nil {
		s.notConfigured(w, r)
		return
	}

	stats, err := s.deps.UserStats.Handle(r.Context(), query.GetUserStatsQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleDailyToday handles GET /api/v1/daily/today
// Streak and submission flags are filled only for an identified caller.
func (s *Server) handleDailyToday(w http.ResponseWriter, r *http.Request) {
	if s.deps.DailyChallenges == nil {
		s.notConfigured(w, r)
		return
	}

	daily, err := s.deps.DailyChallenges.Handle(r.Context(), query.GetDailyChallengeQuery{
		UserID: callerID(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, daily)
}

// createDailyRequest is the optional body of POST /api/v1/admin/daily.
type createDailyRequest struct {
	Date string `json:"date"`
}

// createDailyResponse describes the daily challenge for the given date.
type createDailyResponse struct {
	Created    bool      `json:"created"`
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	PromptText string    `json:"promptText"`
	EndAt      time.Time `json:"endAt"`
}

// handleCreateDaily handles POST /api/v1/admin/daily
// Answers 201 when the challenge was created and 200 when it already existed.
func (s *Server) handleCreateDaily(w http.ResponseWriter, r *http.Request) {
	if s.deps.DailyCreator == nil {
		s.notConfigured(w, r)
		return
	}

	var req createDailyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "Request body must be JSON")
		return
	}

	result, err := s.deps.DailyCreator.Handle(r.Context(), command.CreateDailyChallengeCommand{Date: req.Date})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, createDailyResponse{
		Created:    result.Created,
		ID:         result.Challenge.ID,
		Date:       result.Challenge.DailyDate,
		PromptText: result.Challenge.Title(),
		EndAt:      result.Challenge.EndAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// callerID returns the caller's user ID. Validation happens in the query.
func callerID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}

// writeError maps application errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsCorruptData(err):
		logger.FromContext(r.Context()).Error("stored data failed validation",
			logger.HTTPPath(r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error")
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		writeJSONError(w, r, http.StatusConflict, "conflict", err.Error())
	default:
		logger.FromContext(r.Context()).Error("request failed",
			logger.HTTPPath(r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func (s *Server) notConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Endpoint is not configured")
}
