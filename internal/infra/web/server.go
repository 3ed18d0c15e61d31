package web

import (
	"context"
	"net/http"
	"time"

	"event-keyword-monitor/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server hosts the admin API. /health and /metrics are open; everything
// under /api/v1 except the login exchange requires a JWT.
type Server struct {
	jobUC  usecase.JobStatusUseCase
	auth   *AuthManager
	apiKey string
	log    *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(jobUC usecase.JobStatusUseCase, auth *AuthManager, apiKey, addr string, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "WebServer").Logger()
	s := &Server{
		jobUC:  jobUC,
		auth:   auth,
		apiKey: apiKey,
		log:    &compLog,
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", healthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.loginHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/jobs", jobsListHandler(s.jobUC))
			r.Route("/jobs/{name}", func(r chi.Router) {
				r.Get("/status", jobStatusHandler(s.jobUC))
				r.Post("/trigger", jobTriggerHandler(s.jobUC))
				r.Post("/pause", jobPauseHandler(s.jobUC))
				r.Post("/resume", jobResumeHandler(s.jobUC))
				r.Get("/history", jobHistoryHandler(s.jobUC))
				r.Get("/stats", jobStatsHandler(s.jobUC))
			})
		})
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("admin API listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// authMiddleware rejects requests without a valid admin JWT.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
