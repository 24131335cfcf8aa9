package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"
)

// maxNameLength bounds participant display names.
const maxNameLength = 100

// cpfAttempts is how many generated CPFs Register tries before giving up.
const cpfAttempts = 3

// AccountStore is the persistence the service needs.
//
// GetAccountByEmail and GetAccountBySubject return ErrAccountNotFound when no
// row matches. CreateAccount returns ErrDuplicateIdentity when the email or
// CPF is taken.
type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccountBySubject(ctx context.Context, subjectID string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	UpdatePasswordHash(ctx context.Context, subjectID, hash string) error
}

// RegisterInput is the self-registration payload. CPF is optional.
type RegisterInput struct {
	CPF   string
	Name  string
	Email string
}

// Service composes the hasher, codec and resolver over an AccountStore.
type Service struct {
	store    AccountStore
	hasher   *Hasher
	codec    *Codec
	resolver *Resolver
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires a Service. A nil logger discards output.
func NewService(store AccountStore, hasher *Hasher, codec *Codec, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:    store,
		hasher:   hasher,
		codec:    codec,
		resolver: NewResolver(codec),
		logger:   logger,
	}
}

// Resolver returns the resolver used by Authenticate.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Hasher returns the credential hasher.
func (s *Service) Hasher() *Hasher {
	return s.hasher
}

// Login checks email and password and issues a token.
//
// An unknown email and a wrong password both return ErrInvalidCredentials.
// Unknown emails still pay for one verification so the two cases take
// comparable time.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normaliseEmail(email)

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.hasher.Verify(ctx, password, s.dummyArtifact(ctx))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if !s.hasher.Verify(ctx, password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(account.PasswordHash) {
		s.upgradeHash(ctx, account.SubjectID, password)
	}

	return s.issue(account.Principal())
}

// Register creates a DISCENTE participant and logs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput, password string) (*Session, error) {
	if err := ValidateSecret(password); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name is required and must be at most %d characters", ErrInvalidIdentity, maxNameLength)
	}

	email := normaliseEmail(in.Email)
	if !ValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidIdentity)
	}

	cpf := strings.TrimSpace(in.CPF)
	if cpf != "" && !ValidCPF(cpf) {
		return nil, fmt.Errorf("%w: cpf must have %d digits", ErrInvalidIdentity, CPFLength)
	}
	if cpf == "" {
		generated, err := s.freeCPF(ctx)
		if err != nil {
			return nil, err
		}
		cpf = generated
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	account := &Account{
		SubjectID:    cpf,
		DisplayName:  name,
		Email:        email,
		Role:         RoleDiscente,
		PasswordHash: hash,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	s.logger.Info("participant registered", "cpf", cpf, "role", account.Role)
	return s.issue(account.Principal())
}

// ChangePassword replaces the caller's credential after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, p Principal, current, next string) error {
	if err := ValidateSecret(next); err != nil {
		return err
	}

	account, err := s.store.GetAccountBySubject(ctx, p.SubjectID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("looking up account: %w", err)
	}

	if !s.hasher.Verify(ctx, current, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, account.SubjectID, hash); err != nil {
		return fmt.Errorf("storing password: %w", err)
	}
	return nil
}

// HashSecret validates and hashes a credential for storage by other packages.
func (s *Service) HashSecret(ctx context.Context, secret string) (string, error) {
	if err := ValidateSecret(secret); err != nil {
		return "", err
	}
	return s.hasher.Hash(ctx, secret)
}

// Authenticate resolves the principal behind a request's bearer token.
func (s *Service) Authenticate(r *http.Request) (Principal, error) {
	return s.resolver.ResolveRequest(r)
}

// Authorize applies the role and ownership rules.
func (s *Service) Authorize(p Principal, op Operation, ac AccessContext) error {
	return Authorize(p, op, ac)
}

func (s *Service) issue(p Principal) (*Session, error) {
	token, expiresAt, err := s.codec.Issue(Claims{
		Subject: p.SubjectID,
		Name:    p.DisplayName,
		Role:    p.Role,
	})
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, ExpiresAt: expiresAt, Principal: p}, nil
}

// upgradeHash rewrites a legacy or weak artifact. Failure is logged, not returned:
// the login itself already succeeded.
func (s *Service) upgradeHash(ctx context.Context, subjectID, password string) {
	hash, err := s.hasher.Hash(ctx, password)
	if err == nil {
		err = s.store.UpdatePasswordHash(ctx, subjectID, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", "cpf", subjectID, "error", err)
		return
	}
	s.logger.Info("password hash upgraded", "cpf", subjectID)
}

// freeCPF generates a CPF not yet held by any account.
func (s *Service) freeCPF(ctx context.Context) (string, error) {
	for range cpfAttempts {
		cpf, err := GenerateCPF()
		if err != nil {
			return "", err
		}
		_, err = s.store.GetAccountBySubject(ctx, cpf)
		if errors.Is(err, ErrAccountNotFound) {
			return cpf, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking generated cpf: %w", err)
		}
	}
	return "", fmt.Errorf("no free cpf after %d attempts", cpfAttempts)
}

// dummyArtifact is a hash of a fixed secret, computed once.
func (s *Service) dummyArtifact(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), "timing-equaliser")
		if err != nil {
			s.logger.Warn("computing dummy hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// ValidEmail reports whether email is a bare address such as a@b.c.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.IndexByte(email, '@'):], ".")
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
