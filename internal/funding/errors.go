package funding

import "errors"

var (
	// ErrAgencyNotFound is returned when an agency acronym does not exist.
	ErrAgencyNotFound = errors.New("agency not found")

	// ErrGrantNotFound is returned when a grant process code does not exist.
	ErrGrantNotFound = errors.New("grant not found")

	// ErrDuplicate is returned for an existing acronym or process code.
	ErrDuplicate = errors.New("agency or grant already exists")

	// ErrReferenceViolation is returned when a grant names an unknown agency,
	// or when deleting an agency with grants or a grant allocated to projects.
	ErrReferenceViolation = errors.New("agency or grant is still referenced")

	// ErrInvalidGrant is returned when grant or agency fields fail validation.
	ErrInvalidGrant = errors.New("invalid grant")
)
