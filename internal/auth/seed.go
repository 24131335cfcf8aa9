package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 12

// AdminCounter reports how many participants hold a role.
type AdminCounter interface {
	CountByRole(ctx context.Context, role Role) (int, error)
}

// SeedAdminStore is what SeedAdmin needs from storage.
type SeedAdminStore interface {
	AdminCounter
	AccountStore
}

// SeedAdminInput names the bootstrap administrator.
type SeedAdminInput struct {
	Email string
	Name  string
}

// SeedAdmin creates an ADMIN participant on first boot if none exists.
// The generated password is logged once and must be changed immediately.
// Returns the generated password (empty string if seeding was skipped).
func SeedAdmin(ctx context.Context, store SeedAdminStore, hasher *Hasher, in SeedAdminInput, logger *slog.Logger) (string, error) {
	count, err := store.CountByRole(ctx, RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("checking admin count: %w", err)
	}

	if count > 0 {
		logger.Info("admin exists, skipping admin seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	cpf, err := GenerateCPF()
	if err != nil {
		return "", err
	}

	admin := &Account{
		SubjectID:    cpf,
		DisplayName:  in.Name,
		Email:        normaliseEmail(in.Email),
		Role:         RoleAdmin,
		PasswordHash: hash,
	}

	if err := store.CreateAccount(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"email", admin.Email,
		"cpf", cpf,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
