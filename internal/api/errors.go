package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/funding"
	"github.com/nerrad567/sigpesq-core/internal/participant"
	"github.com/nerrad567/sigpesq-core/internal/production"
	"github.com/nerrad567/sigpesq-core/internal/project"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 with the bearer challenge.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500. The cause is logged by the caller, never sent.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// writeServiceError maps a domain or auth error to the response the client
// sees. Validation messages come from this codebase and are safe to echo;
// anything unclassified is logged and answered with a bare 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired):
		writeUnauthorized(w, "could not validate credentials")

	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, auth.ErrInvalidCredentials.Error())

	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, err.Error())

	// Email and CPF are login identities; a collision is reported the same
	// way whether it comes from registration or administration.
	case errors.Is(err, auth.ErrDuplicateIdentity),
		errors.Is(err, participant.ErrDuplicate):
		writeBadRequest(w, auth.ErrDuplicateIdentity.Error())

	case errors.Is(err, auth.ErrInvalidSecret),
		errors.Is(err, auth.ErrInvalidIdentity),
		errors.Is(err, participant.ErrInvalidCPF),
		errors.Is(err, participant.ErrInvalidName),
		errors.Is(err, participant.ErrInvalidEmail),
		errors.Is(err, participant.ErrInvalidRole),
		errors.Is(err, project.ErrInvalidProject),
		errors.Is(err, project.ErrInvalidCoordinator),
		errors.Is(err, funding.ErrInvalidGrant),
		errors.Is(err, production.ErrInvalidProduction):
		writeValidationError(w, err.Error())

	case errors.Is(err, participant.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, funding.ErrAgencyNotFound),
		errors.Is(err, funding.ErrGrantNotFound),
		errors.Is(err, production.ErrNotFound):
		writeNotFound(w, rootMessage(err))

	case errors.Is(err, project.ErrDuplicate),
		errors.Is(err, funding.ErrDuplicate),
		errors.Is(err, production.ErrDuplicate):
		writeConflict(w, rootMessage(err))

	case errors.Is(err, participant.ErrReferenceViolation),
		errors.Is(err, project.ErrReferenceViolation),
		errors.Is(err, funding.ErrReferenceViolation),
		errors.Is(err, production.ErrReferenceViolation):
		writeBadRequest(w, rootMessage(err))

	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeInternalError(w)
	}
}

// rootMessage returns the message of the innermost package sentinel so that
// wrapping context (queries, keys) never reaches the client.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		participant.ErrNotFound, participant.ErrDuplicate, participant.ErrReferenceViolation,
		project.ErrNotFound, project.ErrDuplicate, project.ErrReferenceViolation,
		funding.ErrAgencyNotFound, funding.ErrGrantNotFound, funding.ErrDuplicate, funding.ErrReferenceViolation,
		production.ErrNotFound, production.ErrDuplicate, production.ErrReferenceViolation,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
