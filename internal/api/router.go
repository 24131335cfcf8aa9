package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the database ping behind /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.instrumentMiddleware)

	// Prometheus scrape (no auth required)
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/password", s.handleChangePassword)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Get("/metrics", s.handleMetrics)

			r.Route("/participantes", func(r chi.Router) {
				r.Get("/", s.handleListParticipants)
				r.Post("/", s.handleCreateParticipant)
				r.Route("/{cpf}", func(r chi.Router) {
					r.Get("/", s.handleGetParticipant)
					r.Patch("/", s.handleUpdateParticipant)
					r.Delete("/", s.handleDeleteParticipant)
				})
			})

			r.Route("/projetos", func(r chi.Router) {
				r.Get("/", s.handleListProjects)
				r.Post("/", s.handleCreateProject)
				r.Route("/{codigo}", func(r chi.Router) {
					r.Get("/", s.handleGetProject)
					r.Patch("/", s.handleUpdateProject)
					r.Delete("/", s.handleDeleteProject)
					r.Get("/detalhes", s.handleProjectDetails)
					r.Post("/participantes", s.handleAddProjectMember)
					r.Post("/financiamentos", s.handleAllocateGrant)
				})
			})

			r.Route("/financiamentos", func(r chi.Router) {
				r.Get("/", s.handleListGrants)
				r.Post("/", s.handleCreateGrant)
				r.Get("/total", s.handleGrantTotal)

				r.Route("/agencias", func(r chi.Router) {
					r.Get("/", s.handleListAgencies)
					r.Post("/", s.handleCreateAgency)
					r.Route("/{sigla}", func(r chi.Router) {
						r.Get("/", s.handleGetAgency)
						r.Patch("/", s.handleUpdateAgency)
						r.Delete("/", s.handleDeleteAgency)
					})
				})

				r.Route("/{codigo}", func(r chi.Router) {
					r.Get("/", s.handleGetGrant)
					r.Patch("/", s.handleUpdateGrant)
					r.Delete("/", s.handleDeleteGrant)
				})
			})

			r.Route("/producoes", func(r chi.Router) {
				r.Get("/", s.handleListProductions)
				r.Post("/", s.handleCreateProduction)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetProduction)
					r.Patch("/", s.handleUpdateProduction)
					r.Delete("/", s.handleDeleteProduction)
				})
			})

			r.Route("/consultas", func(r chi.Router) {
				r.Get("/coordenadores", s.handleListCoordinators)
				r.Get("/projetos-por-coordenador/{cpf}", s.handleProjectsByCoordinator)
				r.Get("/agencias", s.handleAgenciesWithGrants)
				r.Get("/financiamentos-por-agencia/{sigla}", s.handleGrantsByAgency)
				r.Get("/anos", s.handleProductionYears)
				r.Get("/producoes-por-ano/{ano}", s.handleProductionsByYear)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", s.handleDashboardStats)
				r.Get("/recent-projects", s.handleRecentProjects)
				r.Get("/recent-producoes", s.handleRecentProductions)
			})

			r.Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth reports liveness and, when a database is wired, its reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check: database unavailable", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
	})
}

// urlParam returns a path parameter, percent-decoded so keys such as DOIs
// can carry an escaped slash.
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
