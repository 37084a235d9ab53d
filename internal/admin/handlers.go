package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/ratelimit"
	"lonewolfcast/ingestion/internal/repository"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// response is the envelope of every successful sync route
type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps err to a status code and a {"detail": ...} body
func writeError(w http.ResponseWriter, err error, action string) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		code = http.StatusTooManyRequests
	case errors.Is(err, repository.ErrNotFound):
		code = http.StatusNotFound
	}

	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("action", action).Msg("Admin request failed")
	} else {
		log.Warn().Err(err).Str("action", action).Int("status", code).Msg("Admin request refused")
	}

	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf("%s: %v", action, err)})
}

func firstErrors(errs []string) []string {
	if len(errs) > 5 {
		return errs[:5]
	}
	return errs
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin", http.StatusTemporaryRedirect)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Dashboard.Get(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load dashboard stats")
		stats = &models.DashboardStats{}
		if _, limit, uerr := s.deps.Usage.Usage(r.Context()); uerr == nil {
			stats.MaxCallsPerDay = limit
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.dashboard.Execute(w, stats); err != nil {
		log.Error().Err(err).Msg("Failed to render dashboard")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	body := map[string]interface{}{"status": "healthy"}
	if s.deps.PoolStats != nil {
		body["database"] = s.deps.PoolStats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleUsageStats(w http.ResponseWriter, r *http.Request) {
	calls, limit, err := s.deps.Usage.Usage(r.Context())
	if err != nil {
		writeError(w, err, "failed to read API usage")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"calls_made_today":  calls,
		"max_calls_per_day": limit,
	})
}

func (s *Server) handleSyncLeagues(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Leagues.SyncLeagues(r.Context())
	s.deps.Dashboard.Invalidate(r.Context())
	if err != nil {
		writeError(w, err, "league sync failed")
		return
	}
	res.Errors = firstErrors(res.Errors)
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("Synced %d/%d leagues and %d seasons", res.SyncedLeagues, res.TotalLeagues, res.SyncedSeasons),
		Data:    res,
	})
}

func (s *Server) handleSyncMatches(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Matches.SyncMatches(r.Context())
	s.deps.Dashboard.Invalidate(r.Context())
	if err != nil {
		writeError(w, err, "match sync failed")
		return
	}
	res.Errors = firstErrors(res.Errors)
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("Synced %d matches across %d/%d seasons", res.SyncedMatches, res.SyncedSeasons, res.TotalSeasons),
		Data:    res,
	})
}

func (s *Server) handleSyncPredictions(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Predictions.SyncPredictions(r.Context())
	s.deps.Dashboard.Invalidate(r.Context())
	if err != nil {
		writeError(w, err, "prediction sync failed")
		return
	}
	res.Errors = firstErrors(res.Errors)
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("Sync completed - %d/%d matches processed", res.SyncedMatches, res.TotalMatches),
		Data:    res,
	})
}

func (s *Server) handlePredictionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Predictions.Status(r.Context())
	if err != nil {
		writeError(w, err, "failed to read prediction sync status")
		return
	}
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "Prediction sync status",
		Data:    status,
	})
}

func (s *Server) handleSyncMatchPredictions(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.Atoi(mux.Vars(r)["match_id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid match id"})
		return
	}

	res, err := s.deps.Predictions.SyncMatch(r.Context(), matchID)
	s.deps.Dashboard.Invalidate(r.Context())
	if err != nil {
		writeError(w, err, fmt.Sprintf("prediction sync of match %d failed", matchID))
		return
	}

	synced := res.SyncedMatches > 0
	out := response{
		Status:  "success",
		Message: "Predictions synced",
		Data: map[string]any{
			"match_id": matchID,
			"synced":   synced,
			"errors":   res.Errors,
		},
	}
	if !synced {
		out.Status = "warning"
		out.Message = "No prediction available"
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Stats.SyncStats(r.Context())
	s.deps.Dashboard.Invalidate(r.Context())
	if err != nil {
		writeError(w, err, "statistics sync failed")
		return
	}
	res.Errors = firstErrors(res.Errors)
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("Synced statistics of %d/%d matches", res.SyncedMatches, res.TotalMatches),
		Data:    res,
	})
}

func (s *Server) handleSyncOdds(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Odds.SyncOdds(r.Context())
	s.deps.Dashboard.Invalidate(r.Context())
	if err != nil {
		writeError(w, err, "odds sync failed")
		return
	}
	res.Errors = firstErrors(res.Errors)
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("Synced odds of %d/%d matches", res.SyncedMatches, res.TotalMatches),
		Data:    res,
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Evaluator.EvaluateAll(r.Context())
	s.deps.Dashboard.Invalidate(r.Context())
	if err != nil {
		writeError(w, err, "prediction evaluation failed")
		return
	}
	stats.Errors = firstErrors(stats.Errors)
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("Evaluated %d/%d predictions", stats.SuccessfulEvaluations, stats.TotalProcessed),
		Data:    stats,
	})
}

func (s *Server) handleAdviceCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Evaluator.AdviceCategories(r.Context())
	if err != nil {
		writeError(w, err, "failed to read advice categories")
		return
	}
	if categories == nil {
		categories = []models.AdviceCategoryCount{}
	}
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("%d advice categories", len(categories)),
		Data:    categories,
	})
}
