package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	APIKey string `json:"api_key"`
}

// loginHandler exchanges the static admin API key for a short-lived JWT.
func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if req.APIKey != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		token, expires, err := s.auth.Mint()
		if err != nil {
			s.log.Error().Err(err).Msg("failed to mint admin token")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		}{Token: token, ExpiresAt: expires})
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func jobsListHandler(jobUC usecase.JobStatusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs := jobUC.Jobs(r.Context())
		writeJSON(w, http.StatusOK, struct {
			Data []model.JobInfo `json:"data"`
		}{Data: jobs})
	}
}

func jobStatusHandler(jobUC usecase.JobStatusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := jobParam(w, r)
		if !ok {
			return
		}

		view, err := jobUC.Status(r.Context(), job)
		if err != nil {
			http.Error(w, "Failed to get job status", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func jobTriggerHandler(jobUC usecase.JobStatusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := jobParam(w, r)
		if !ok {
			return
		}

		if err := jobUC.Trigger(r.Context(), job); err != nil {
			switch {
			case errors.Is(err, domain.ErrJobUnknown):
				http.NotFound(w, r)
			case errors.Is(err, domain.ErrJobBusy):
				http.Error(w, "Job is already running", http.StatusConflict)
			default:
				http.Error(w, "Failed to trigger job", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered", "job": string(job)})
	}
}

func jobPauseHandler(jobUC usecase.JobStatusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := jobParam(w, r)
		if !ok {
			return
		}

		if err := jobUC.Pause(r.Context(), job); err != nil {
			if errors.Is(err, domain.ErrJobUnknown) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to pause job", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "paused", "job": string(job)})
	}
}

func jobResumeHandler(jobUC usecase.JobStatusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := jobParam(w, r)
		if !ok {
			return
		}

		if err := jobUC.Resume(r.Context(), job); err != nil {
			if errors.Is(err, domain.ErrJobUnknown) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to resume job", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "resumed", "job": string(job)})
	}
}

func jobHistoryHandler(jobUC usecase.JobStatusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := jobParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		var status model.JobRunStatus
		if raw := q.Get("status"); raw != "" {
			status = model.JobRunStatus(raw)
		}

		runs, err := jobUC.History(r.Context(), job, page, limit, status)
		if err != nil {
			http.Error(w, "Failed to list job history", http.StatusInternalServerError)
			return
		}
		if page < 1 {
			page = 1
		}
		writeJSON(w, http.StatusOK, struct {
			Data []*model.JobRun `json:"data"`
			Page int             `json:"page"`
		}{Data: runs, Page: page})
	}
}

func jobStatsHandler(jobUC usecase.JobStatusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := jobParam(w, r)
		if !ok {
			return
		}

		days, _ := strconv.Atoi(r.URL.Query().Get("days"))
		stats, err := jobUC.Stats(r.Context(), job, days)
		if err != nil {
			http.Error(w, "Failed to get job stats", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// jobParam validates the {name} path segment. Unknown names get a 404
// before any use case runs.
func jobParam(w http.ResponseWriter, r *http.Request) (model.JobKind, bool) {
	job := model.JobKind(chi.URLParam(r, "name"))
	if !job.Valid() {
		http.NotFound(w, r)
		return "", false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
