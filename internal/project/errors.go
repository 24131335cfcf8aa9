package project

import "errors"

var (
	// ErrNotFound is returned when a project code does not exist.
	ErrNotFound = errors.New("project not found")

	// ErrDuplicate is returned for an existing project code, membership or allocation.
	ErrDuplicate = errors.New("project record already exists")

	// ErrReferenceViolation is returned when a referenced participant or grant does not exist.
	ErrReferenceViolation = errors.New("referenced participant or grant does not exist")

	// ErrInvalidCoordinator is returned when the coordinator is missing or is
	// neither DOCENTE nor ADMIN.
	ErrInvalidCoordinator = errors.New("coordinator must be a DOCENTE or ADMIN participant")

	// ErrInvalidProject is returned when project fields fail validation.
	ErrInvalidProject = errors.New("invalid project")
)
