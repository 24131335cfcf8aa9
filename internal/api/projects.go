package api

import (
	"fmt"
	"net/http"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/project"
)

type updateProjectRequest struct {
	Title          *string         `json:"titulo"`
	Description    *string         `json:"descricao"`
	StartDate      *string         `json:"data_inicio"`
	EndDate        *string         `json:"data_termino"`
	Status         *project.Status `json:"situacao"`
	CoordinatorCPF *string         `json:"coordenador_cpf"`
}

type addMemberRequest struct {
	ParticipantCPF string `json:"participante_cpf"`
	Function       string `json:"funcao"`
	EntryDate      string `json:"data_entrada"`
	ExitDate       string `json:"data_saida"`
}

type allocateGrantRequest struct {
	GrantCode       string  `json:"codigo_processo"`
	AllocatedAmount float64 `json:"valor_alocado"`
}

// handleListProjects lists projects, newest start date first.
//
// Query parameters: search, situacao.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := project.Filter{Search: q.Get("search")}
	if v := q.Get("situacao"); v != "" {
		status := project.Status(v)
		if !status.Valid() {
			writeValidationError(w, fmt.Sprintf("unknown status %q", v))
			return
		}
		filter.Status = status
	}

	list, err := s.projects.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.Get(r.Context(), urlParam(r, "codigo"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProjectDetails(w http.ResponseWriter, r *http.Request) {
	d, err := s.projects.Details(r.Context(), urlParam(r, "codigo"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleCreateProject creates a project. A DOCENTE always coordinates the
// projects they create; only administrators may name another coordinator.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	caller := principalFromContext(r.Context())
	if err := s.auth.Authorize(caller, auth.OpProjectCreate, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var p project.Project
	if err := decodeJSON(r, &p); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if p.CoordinatorCPF == "" {
		p.CoordinatorCPF = caller.SubjectID
	}
	if !caller.IsAdmin() && p.CoordinatorCPF != caller.SubjectID {
		writeForbidden(w, fmt.Sprintf("%s: only administrators may create projects for another coordinator", auth.ErrForbidden))
		return
	}
	p.CoordinatorName = ""

	if err := s.projects.Create(r.Context(), &p); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{
		entity:  entityProject,
		action:  actionCreate,
		id:      p.Code,
		data:    p,
		details: map[string]any{"coordenador_cpf": p.CoordinatorCPF},
	})
	writeJSON(w, http.StatusCreated, p)
}

// authorizeProject loads the coordinator of code and checks op against it.
// It writes the response and returns false when the caller may not proceed.
func (s *Server) authorizeProject(w http.ResponseWriter, r *http.Request, code string, op auth.Operation) bool {
	coordinator, err := s.projects.Coordinator(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return false
	}
	if err := s.auth.Authorize(principalFromContext(r.Context()), op, auth.AccessContext{ProjectCoordinator: coordinator}); err != nil {
		s.writeServiceError(w, r, err)
		return false
	}
	return true
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	code := urlParam(r, "codigo")

	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.authorizeProject(w, r, code, auth.OpProjectUpdate) {
		return
	}

	updated, err := s.projects.Update(r.Context(), code, project.Update{
		Title:          req.Title,
		Description:    req.Description,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Status:         req.Status,
		CoordinatorCPF: req.CoordinatorCPF,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityProject, action: actionUpdate, id: code, data: updated})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	code := urlParam(r, "codigo")
	if !s.authorizeProject(w, r, code, auth.OpProjectDelete) {
		return
	}

	if err := s.projects.Delete(r.Context(), code); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityProject, action: actionDelete, id: code})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddProjectMember(w http.ResponseWriter, r *http.Request) {
	code := urlParam(r, "codigo")

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.authorizeProject(w, r, code, auth.OpProjectAddMember) {
		return
	}

	m := &project.Membership{
		ParticipantCPF: req.ParticipantCPF,
		ProjectCode:    code,
		Function:       req.Function,
		EntryDate:      req.EntryDate,
		ExitDate:       req.ExitDate,
	}
	if err := s.projects.AddMember(r.Context(), m); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{
		entity:  entityProject,
		action:  actionAddMember,
		id:      code,
		data:    m,
		details: map[string]any{"participante_cpf": m.ParticipantCPF, "funcao": m.Function},
	})
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleAllocateGrant(w http.ResponseWriter, r *http.Request) {
	code := urlParam(r, "codigo")

	var req allocateGrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.authorizeProject(w, r, code, auth.OpProjectAllocateGrant) {
		return
	}

	a := &project.Allocation{ProjectCode: code, GrantCode: req.GrantCode, AllocatedAmount: req.AllocatedAmount}
	if err := s.projects.AllocateGrant(r.Context(), a); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{
		entity:  entityProject,
		action:  actionAllocateGrant,
		id:      code,
		data:    a,
		details: map[string]any{"codigo_processo": a.GrantCode, "valor_alocado": a.AllocatedAmount},
	})
	writeJSON(w, http.StatusCreated, a)
}
