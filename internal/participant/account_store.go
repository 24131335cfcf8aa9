package participant

import (
	"context"
	"errors"

	"github.com/nerrad567/sigpesq-core/internal/auth"
)

var _ auth.SeedAdminStore = (*AccountStore)(nil)

// AccountStore adapts a Repository to auth.AccountStore.
type AccountStore struct {
	repo *SQLRepository
}

// NewAccountStore wraps repo for the auth service.
func NewAccountStore(repo *SQLRepository) *AccountStore {
	return &AccountStore{repo: repo}
}

// GetAccountByEmail implements auth.AccountStore.
func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	p, hash, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, accountError(err)
	}
	return toAccount(p, hash), nil
}

// GetAccountBySubject implements auth.AccountStore.
func (s *AccountStore) GetAccountBySubject(ctx context.Context, subjectID string) (*auth.Account, error) {
	p, err := s.repo.GetByCPF(ctx, subjectID)
	if err != nil {
		return nil, accountError(err)
	}
	hash, err := s.repo.passwordHash(ctx, subjectID)
	if err != nil {
		return nil, accountError(err)
	}
	return toAccount(p, hash), nil
}

// CreateAccount implements auth.AccountStore.
func (s *AccountStore) CreateAccount(ctx context.Context, a *auth.Account) error {
	p := &Participant{
		CPF:   a.SubjectID,
		Name:  a.DisplayName,
		Email: a.Email,
		Role:  a.Role,
	}
	if err := s.repo.Create(ctx, p, a.PasswordHash); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return auth.ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

// UpdatePasswordHash implements auth.AccountStore.
func (s *AccountStore) UpdatePasswordHash(ctx context.Context, subjectID, hash string) error {
	return accountError(s.repo.UpdatePasswordHash(ctx, subjectID, hash))
}

// CountByRole lets the store seed the first administrator.
func (s *AccountStore) CountByRole(ctx context.Context, role auth.Role) (int, error) {
	return s.repo.CountByRole(ctx, role)
}

func toAccount(p *Participant, hash string) *auth.Account {
	return &auth.Account{
		SubjectID:    p.CPF,
		DisplayName:  p.Name,
		Email:        p.Email,
		Role:         p.Role,
		PasswordHash: hash,
	}
}

func accountError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return auth.ErrAccountNotFound
	}
	return err
}
