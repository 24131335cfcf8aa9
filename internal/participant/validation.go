package participant

import (
	"strings"
	"unicode/utf8"

	"github.com/nerrad567/sigpesq-core/internal/auth"
)

// maxNameLength mirrors the column limit used by the registration form.
const maxNameLength = 100

// Normalise trims whitespace and lowercases the email in place.
func Normalise(p *Participant) {
	p.CPF = strings.TrimSpace(p.CPF)
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}

// Validate checks a participant before it is written.
func Validate(p *Participant) error {
	if !auth.ValidCPF(p.CPF) {
		return ErrInvalidCPF
	}
	if err := validateName(p.Name); err != nil {
		return err
	}
	if !auth.ValidEmail(p.Email) {
		return ErrInvalidEmail
	}
	if !p.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// ValidateUpdate normalises and checks the fields an Update sets.
func ValidateUpdate(u *Update) error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if err := validateName(name); err != nil {
			return err
		}
		u.Name = &name
	}
	if u.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*u.Email))
		if !auth.ValidEmail(email) {
			return ErrInvalidEmail
		}
		u.Email = &email
	}
	if u.Role != nil && !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

func validateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return ErrInvalidName
	}
	return nil
}
