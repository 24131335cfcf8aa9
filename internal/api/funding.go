package api

import (
	"net/http"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/funding"
)

type updateAgencyRequest struct {
	Name string `json:"nome"`
}

type updateGrantRequest struct {
	AgencyAcronym *string  `json:"agencia_sigla"`
	FundingType   *string  `json:"tipo_fomento"`
	TotalAmount   *float64 `json:"valor_total"`
	StartDate     *string  `json:"data_inicio"`
	EndDate       *string  `json:"data_fim"`
}

// ─── Agencies ──────────────────────────────────────────────────────

func (s *Server) handleListAgencies(w http.ResponseWriter, r *http.Request) {
	list, err := s.funding.ListAgencies(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetAgency(w http.ResponseWriter, r *http.Request) {
	a, err := s.funding.GetAgency(r.Context(), urlParam(r, "sigla"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCreateAgency(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpAgencyCreate, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var a funding.Agency
	if err := decodeJSON(r, &a); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.funding.CreateAgency(r.Context(), &a); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityAgency, action: actionCreate, id: a.Acronym, data: a})
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAgency(w http.ResponseWriter, r *http.Request) {
	acronym := urlParam(r, "sigla")
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpAgencyUpdate, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req updateAgencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	a, err := s.funding.UpdateAgency(r.Context(), acronym, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityAgency, action: actionUpdate, id: acronym, data: a})
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAgency(w http.ResponseWriter, r *http.Request) {
	acronym := urlParam(r, "sigla")
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpAgencyDelete, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.funding.DeleteAgency(r.Context(), acronym); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityAgency, action: actionDelete, id: acronym})
	w.WriteHeader(http.StatusNoContent)
}

// ─── Grants ────────────────────────────────────────────────────────

// handleListGrants lists grants with agency names and project counts.
//
// Query parameters: search, tipo_fomento.
func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.funding.ListGrants(r.Context(), funding.Filter{
		Search:      q.Get("search"),
		FundingType: q.Get("tipo_fomento"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetGrant(w http.ResponseWriter, r *http.Request) {
	g, err := s.funding.GetGrant(r.Context(), urlParam(r, "codigo"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleGrantTotal returns the sum of all grant amounts.
func (s *Server) handleGrantTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.funding.TotalAmount(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"total": total})
}

func (s *Server) handleCreateGrant(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpGrantCreate, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var g funding.Grant
	if err := decodeJSON(r, &g); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.funding.CreateGrant(r.Context(), &g); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{
		entity:  entityGrant,
		action:  actionCreate,
		id:      g.ProcessCode,
		data:    g,
		details: map[string]any{"agencia_sigla": g.AgencyAcronym, "valor_total": g.TotalAmount},
	})
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleUpdateGrant(w http.ResponseWriter, r *http.Request) {
	code := urlParam(r, "codigo")
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpGrantUpdate, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req updateGrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	g, err := s.funding.UpdateGrant(r.Context(), code, funding.GrantUpdate{
		AgencyAcronym: req.AgencyAcronym,
		FundingType:   req.FundingType,
		TotalAmount:   req.TotalAmount,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityGrant, action: actionUpdate, id: code, data: g})
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGrant(w http.ResponseWriter, r *http.Request) {
	code := urlParam(r, "codigo")
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpGrantDelete, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.funding.DeleteGrant(r.Context(), code); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityGrant, action: actionDelete, id: code})
	w.WriteHeader(http.StatusNoContent)
}
