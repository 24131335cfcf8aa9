package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrorKind is the storage-independent category of a failed statement.
type ErrorKind int

// Error kinds reported by Classify.
const (
	// KindOther is any failure that is not a constraint violation.
	KindOther ErrorKind = iota

	// KindDuplicateKey is a UNIQUE or PRIMARY KEY violation.
	KindDuplicateKey

	// KindForeignKey is a FOREIGN KEY violation (missing parent or live children).
	KindForeignKey

	// KindConstraint is any other CHECK / NOT NULL violation.
	KindConstraint
)

// String returns a short name for logs.
func (k ErrorKind) String() string {
	switch k {
	case KindDuplicateKey:
		return "duplicate_key"
	case KindForeignKey:
		return "foreign_key"
	case KindConstraint:
		return "constraint"
	default:
		return "other"
	}
}

// PostgreSQL SQLSTATE codes for integrity constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// Classify maps a driver error onto an ErrorKind using the drivers' typed
// errors, so callers never inspect engine-specific message text.
// Wrapped errors are unwrapped with errors.As.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code != sqlite3.ErrConstraint {
			return KindOther
		}
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return KindDuplicateKey
		case sqlite3.ErrConstraintForeignKey:
			return KindForeignKey
		default:
			return KindConstraint
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return KindDuplicateKey
		case pgForeignKeyViolation:
			return KindForeignKey
		case pgCheckViolation, pgNotNullViolation:
			return KindConstraint
		}
	}

	return KindOther
}

// IsDuplicate reports whether err is a unique-key violation.
func IsDuplicate(err error) bool { return Classify(err) == KindDuplicateKey }

// IsForeignKey reports whether err is a foreign-key violation.
func IsForeignKey(err error) bool { return Classify(err) == KindForeignKey }
