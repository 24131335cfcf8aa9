package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/production"
	"github.com/nerrad567/sigpesq-core/internal/project"
)

// productionRequest is the create body. Authors are CPFs in author order.
type productionRequest struct {
	RecordID    string   `json:"id_registro"`
	ProjectCode string   `json:"projeto_codigo"`
	Title       string   `json:"titulo"`
	Type        string   `json:"tipo"`
	Year        int      `json:"ano_publicacao"`
	Venue       string   `json:"meio_divulgacao"`
	Authors     []string `json:"autores"`
}

type updateProductionRequest struct {
	ProjectCode *string  `json:"projeto_codigo"`
	Title       *string  `json:"titulo"`
	Type        *string  `json:"tipo"`
	Year        *int     `json:"ano_publicacao"`
	Venue       *string  `json:"meio_divulgacao"`
	Authors     []string `json:"autores"`
}

// handleListProductions lists productions, newest first.
//
// Query parameters: search, tipo, ano.
func (s *Server) handleListProductions(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "ano", 0)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	q := r.URL.Query()
	list, err := s.productions.List(r.Context(), production.Filter{
		Search: q.Get("search"),
		Type:   q.Get("tipo"),
		Year:   year,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetProduction(w http.ResponseWriter, r *http.Request) {
	p, err := s.productions.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// productionAccess builds the access context for a production linked to
// projectCode with the given authors. A missing project is a client error.
func (s *Server) productionAccess(w http.ResponseWriter, r *http.Request, projectCode string, authors []string) (auth.AccessContext, bool) {
	ac := auth.AccessContext{Authors: authors}
	if projectCode == "" {
		return ac, true
	}

	coordinator, err := s.projects.Coordinator(r.Context(), projectCode)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			writeValidationError(w, fmt.Sprintf("project %s does not exist", projectCode))
			return ac, false
		}
		s.writeServiceError(w, r, err)
		return ac, false
	}
	ac.ProjectCoordinator = coordinator
	return ac, true
}

// handleCreateProduction records a production. The caller must be an
// administrator, the coordinator of the linked project or one of the authors.
func (s *Server) handleCreateProduction(w http.ResponseWriter, r *http.Request) {
	var req productionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ac, ok := s.productionAccess(w, r, req.ProjectCode, req.Authors)
	if !ok {
		return
	}
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpProductionCreate, ac); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	p := &production.Production{
		RecordID:    req.RecordID,
		ProjectCode: req.ProjectCode,
		Title:       req.Title,
		Type:        req.Type,
		Year:        req.Year,
		Venue:       req.Venue,
		Authors:     production.AuthorsFromCPFs(req.Authors),
	}
	if err := s.productions.Create(r.Context(), p); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	created, err := s.productions.Get(r.Context(), p.RecordID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{
		entity:  entityProduction,
		action:  actionCreate,
		id:      created.RecordID,
		data:    created,
		details: map[string]any{"projeto_codigo": created.ProjectCode, "autores": created.AuthorCPFs()},
	})
	writeJSON(w, http.StatusCreated, created)
}

// authorizeStoredProduction checks op against the production as stored.
func (s *Server) authorizeStoredProduction(w http.ResponseWriter, r *http.Request, id string, op auth.Operation) bool {
	projectCode, authors, err := s.productions.Ownership(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return false
	}
	ac, ok := s.productionAccess(w, r, projectCode, authors)
	if !ok {
		return false
	}
	if err := s.auth.Authorize(principalFromContext(r.Context()), op, ac); err != nil {
		s.writeServiceError(w, r, err)
		return false
	}
	return true
}

func (s *Server) handleUpdateProduction(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")

	var req updateProductionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.authorizeStoredProduction(w, r, id, auth.OpProductionUpdate) {
		return
	}

	updated, err := s.productions.Update(r.Context(), id, production.Update{
		ProjectCode: req.ProjectCode,
		Title:       req.Title,
		Type:        req.Type,
		Year:        req.Year,
		Venue:       req.Venue,
		Authors:     req.Authors,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityProduction, action: actionUpdate, id: id, data: updated})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProduction(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if !s.authorizeStoredProduction(w, r, id, auth.OpProductionDelete) {
		return
	}

	if err := s.productions.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityProduction, action: actionDelete, id: id})
	w.WriteHeader(http.StatusNoContent)
}
