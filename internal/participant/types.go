package participant

import (
	"time"

	"github.com/nerrad567/sigpesq-core/internal/auth"
)

// Participant is a registered person. The password hash never leaves the
// repository except through GetByEmail.
type Participant struct {
	CPF       string    `json:"cpf"`
	Name      string    `json:"nome"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"tipo"`
	CreatedAt time.Time `json:"criado_em"`
}

// Filter narrows List. Search matches name, email or CPF, case-insensitively.
type Filter struct {
	Search string
	Role   auth.Role
}

// Update is a partial update; nil fields are left unchanged.
type Update struct {
	Name         *string
	Email        *string
	Role         *auth.Role
	PasswordHash *string
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil && u.PasswordHash == nil
}
