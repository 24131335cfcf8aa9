package production

import "errors"

var (
	// ErrNotFound is returned when a record ID does not exist.
	ErrNotFound = errors.New("production not found")

	// ErrDuplicate is returned when the record ID is already used.
	ErrDuplicate = errors.New("production already exists")

	// ErrReferenceViolation is returned when the project or an author does not exist.
	ErrReferenceViolation = errors.New("referenced project or author does not exist")

	// ErrInvalidProduction is returned when production fields fail validation.
	ErrInvalidProduction = errors.New("invalid production")
)
