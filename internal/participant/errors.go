package participant

import "errors"

var (
	// ErrNotFound is returned when no participant has the given CPF or email.
	ErrNotFound = errors.New("participant not found")

	// ErrDuplicate is returned when the CPF or email is already registered.
	ErrDuplicate = errors.New("cpf or email already registered")

	// ErrReferenceViolation is returned when deleting a participant that still
	// coordinates a project or authors a production.
	ErrReferenceViolation = errors.New("participant is referenced by projects or productions")

	// ErrInvalidCPF is returned when a CPF is not eleven digits.
	ErrInvalidCPF = errors.New("cpf must have 11 digits")

	// ErrInvalidName is returned when the name is empty or too long.
	ErrInvalidName = errors.New("name is required and must be at most 100 characters")

	// ErrInvalidEmail is returned for malformed addresses.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInvalidRole is returned for roles outside ADMIN, DOCENTE, DISCENTE, TECNICO.
	ErrInvalidRole = errors.New("invalid participant role")
)
