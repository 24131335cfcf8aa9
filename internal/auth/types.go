package auth

import (
	"strings"
	"time"
)

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleAdmin manages every record, including participants and audit.
	RoleAdmin Role = "ADMIN"

	// RoleDocente is a faculty researcher. May coordinate projects and
	// register agencies and grants.
	RoleDocente Role = "DOCENTE"

	// RoleDiscente is a student. Default role for self-registration.
	RoleDiscente Role = "DISCENTE"

	// RoleTecnico is technical staff.
	RoleTecnico Role = "TECNICO"
)

// ValidRoles lists every role a participant can hold.
var ValidRoles = []Role{RoleAdmin, RoleDocente, RoleDiscente, RoleTecnico}

// Valid reports whether r is one of ValidRoles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// CanCoordinate reports whether a participant with role r may coordinate a project.
func (r Role) CanCoordinate() bool {
	return r == RoleDocente || r == RoleAdmin
}

// ParseRole converts user input to a Role, ignoring case and surrounding space.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Principal is the authenticated identity rebuilt from token claims on every
// request. It is never stored.
type Principal struct {
	SubjectID   string `json:"cpf"`
	DisplayName string `json:"nome"`
	Role        Role   `json:"tipo"`
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Account is the stored side of an identity as seen by this package.
type Account struct {
	SubjectID    string
	DisplayName  string
	Email        string
	Role         Role
	PasswordHash string
}

// Principal returns the identity carried in tokens for this account.
func (a *Account) Principal() Principal {
	return Principal{SubjectID: a.SubjectID, DisplayName: a.DisplayName, Role: a.Role}
}

// Session is the result of a successful login or registration.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Principal   Principal
}
