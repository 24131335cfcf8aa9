package api

import (
	"net/http"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/participant"
)

type createParticipantRequest struct {
	CPF      string `json:"cpf"`
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Role     string `json:"tipo"`
	Password string `json:"senha"`
}

// updateParticipantRequest uses pointers so omitted fields stay unchanged.
type updateParticipantRequest struct {
	Name     *string `json:"nome"`
	Email    *string `json:"email"`
	Role     *string `json:"tipo"`
	Password *string `json:"senha"`
}

// handleListParticipants lists participants.
//
// Query parameters: search, tipo.
func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := participant.Filter{Search: q.Get("search")}
	if v := q.Get("tipo"); v != "" {
		role, ok := auth.ParseRole(v)
		if !ok {
			writeValidationError(w, participant.ErrInvalidRole.Error())
			return
		}
		filter.Role = role
	}

	list, err := s.participants.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := s.participants.GetByCPF(r.Context(), urlParam(r, "cpf"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreateParticipant lets an administrator register anyone with any role.
func (s *Server) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	caller := principalFromContext(r.Context())
	if err := s.auth.Authorize(caller, auth.OpParticipantCreate, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req createParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeValidationError(w, participant.ErrInvalidRole.Error())
		return
	}

	p := &participant.Participant{CPF: req.CPF, Name: req.Name, Email: req.Email, Role: role}
	participant.Normalise(p)
	if err := participant.Validate(p); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	hash, err := s.auth.HashSecret(r.Context(), req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.participants.Create(r.Context(), p, hash); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{
		entity:  entityParticipant,
		action:  actionCreate,
		id:      p.CPF,
		data:    p,
		details: map[string]any{"tipo": string(p.Role)},
	})
	writeJSON(w, http.StatusCreated, p)
}

// handleUpdateParticipant applies a partial update. Participants may edit
// their own profile but only administrators may change a role.
func (s *Server) handleUpdateParticipant(w http.ResponseWriter, r *http.Request) {
	cpf := urlParam(r, "cpf")

	var req updateParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	// Non-admins may only address themselves; deny before the lookup so the
	// response does not reveal whether cpf exists.
	caller := principalFromContext(r.Context())
	if err := s.auth.Authorize(caller, auth.OpParticipantUpdate, auth.AccessContext{TargetSubject: cpf}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	current, err := s.participants.GetByCPF(r.Context(), cpf)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	update := participant.Update{Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role, ok := auth.ParseRole(*req.Role)
		if !ok {
			writeValidationError(w, participant.ErrInvalidRole.Error())
			return
		}
		update.Role = &role
	}

	ac := auth.AccessContext{
		TargetSubject: cpf,
		ChangesRole:   update.Role != nil && *update.Role != current.Role,
	}
	if err := s.auth.Authorize(caller, auth.OpParticipantUpdate, ac); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if req.Password != nil {
		hash, err := s.auth.HashSecret(r.Context(), *req.Password)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		update.PasswordHash = &hash
	}

	updated, err := s.participants.Update(r.Context(), cpf, update)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	details := map[string]any{}
	if ac.ChangesRole {
		details["tipo_anterior"] = string(current.Role)
		details["tipo"] = string(updated.Role)
	}
	if update.PasswordHash != nil {
		details["senha_alterada"] = true
	}
	s.recordMutation(r, mutation{
		entity:  entityParticipant,
		action:  actionUpdate,
		id:      cpf,
		data:    updated,
		details: details,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteParticipant(w http.ResponseWriter, r *http.Request) {
	cpf := urlParam(r, "cpf")
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpParticipantDelete, auth.AccessContext{TargetSubject: cpf}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.participants.Delete(r.Context(), cpf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordMutation(r, mutation{entity: entityParticipant, action: actionDelete, id: cpf})
	w.WriteHeader(http.StatusNoContent)
}
