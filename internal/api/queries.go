package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/report"
)

// ─── Consultas ─────────────────────────────────────────────────────

// handleListCoordinators lists the DOCENTE participants, the pool projects
// draw their coordinators from.
func (s *Server) handleListCoordinators(w http.ResponseWriter, r *http.Request) {
	list, err := s.participants.ListByRole(r.Context(), auth.RoleDocente)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleProjectsByCoordinator(w http.ResponseWriter, r *http.Request) {
	list, err := s.reports.ProjectsByCoordinator(r.Context(), urlParam(r, "cpf"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleAgenciesWithGrants lists agencies that have at least one grant.
func (s *Server) handleAgenciesWithGrants(w http.ResponseWriter, r *http.Request) {
	list, err := s.funding.AgenciesWithGrants(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGrantsByAgency(w http.ResponseWriter, r *http.Request) {
	result, err := s.reports.GrantsByAgency(r.Context(), urlParam(r, "sigla"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProductionYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.productions.Years(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, years)
}

func (s *Server) handleProductionsByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(urlParam(r, "ano"))
	if err != nil {
		writeBadRequest(w, "year must be an integer")
		return
	}

	groups, err := s.reports.ProductionsByYear(r.Context(), year)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// ─── Dashboard ─────────────────────────────────────────────────────

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleRecentProjects serves the dashboard project list. ?limit is clamped
// by the reporter.
func (s *Server) handleRecentProjects(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", report.DefaultRecentLimit)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	list, err := s.reports.RecentProjects(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRecentProductions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", report.DefaultRecentLimit)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	list, err := s.reports.RecentProductions(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
