package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *memStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := newMemStore()
	svc := NewService(store, testHasher(), testCodec(t, clock), nil)
	return svc, store, clock
}

func TestService_Login(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addAccount(t, svc.Hasher(), Account{
		SubjectID: "11122233344", DisplayName: "Ana Lima", Email: "ana@ufxx.br", Role: RoleDocente,
	}, "abc123")

	sess, err := svc.Login(context.Background(), "  ANA@ufxx.br ", "abc123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.AccessToken == "" {
		t.Fatal("Login() returned an empty token")
	}
	want := Principal{SubjectID: "11122233344", DisplayName: "Ana Lima", Role: RoleDocente}
	if sess.Principal != want {
		t.Errorf("Principal = %+v, want %+v", sess.Principal, want)
	}
}

func TestService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addAccount(t, svc.Hasher(), Account{
		SubjectID: "11122233344", DisplayName: "Ana Lima", Email: "ana@ufxx.br", Role: RoleDocente,
	}, "abc123")

	_, wrongPass := svc.Login(context.Background(), "ana@ufxx.br", "abc124")
	_, unknown := svc.Login(context.Background(), "nobody@ufxx.br", "abc123")

	if !errors.Is(wrongPass, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("errors = %v / %v, want ErrInvalidCredentials", wrongPass, unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPass, unknown)
	}
}

func TestService_LoginStoreFailure(t *testing.T) {
	svc, store, _ := newTestService(t)
	boom := errors.New("disk on fire")
	store.failNext = boom

	_, err := svc.Login(context.Background(), "ana@ufxx.br", "abc123")
	if !errors.Is(err, boom) {
		t.Fatalf("Login() error = %v, want wrapped store error", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("storage faults must not look like bad credentials")
	}
}

func TestService_LoginUpgradesLegacyHash(t *testing.T) {
	svc, store, _ := newTestService(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	if err := store.CreateAccount(context.Background(), &Account{
		SubjectID: "55566677788", DisplayName: "Old", Email: "old@ufxx.br", Role: RoleTecnico, PasswordHash: string(legacy),
	}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	if _, err := svc.Login(context.Background(), "old@ufxx.br", "legacy1"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	acc, err := store.GetAccountBySubject(context.Background(), "55566677788")
	if err != nil {
		t.Fatalf("GetAccountBySubject() error = %v", err)
	}
	if isBcrypt(acc.PasswordHash) {
		t.Error("legacy hash should have been replaced")
	}
	if _, err := svc.Login(context.Background(), "old@ufxx.br", "legacy1"); err != nil {
		t.Errorf("Login() after upgrade error = %v", err)
	}
}

func TestService_Register(t *testing.T) {
	svc, store, _ := newTestService(t)

	sess, err := svc.Register(context.Background(), RegisterInput{Name: " Joao ", Email: "Joao@UFXX.br"}, "abc123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if sess.Principal.Role != RoleDiscente {
		t.Errorf("Role = %s, want DISCENTE", sess.Principal.Role)
	}
	if !ValidCPF(sess.Principal.SubjectID) {
		t.Errorf("generated CPF %q is not 11 digits", sess.Principal.SubjectID)
	}
	if sess.Principal.DisplayName != "Joao" {
		t.Errorf("DisplayName = %q, want trimmed name", sess.Principal.DisplayName)
	}

	acc, err := store.GetAccountByEmail(context.Background(), "joao@ufxx.br")
	if err != nil {
		t.Fatalf("GetAccountByEmail() error = %v", err)
	}
	if acc.PasswordHash == "abc123" || !svc.Hasher().Verify(context.Background(), "abc123", acc.PasswordHash) {
		t.Error("stored artifact should be a hash of the password")
	}

	p, err := svc.Resolver().Resolve(sess.AccessToken)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p != sess.Principal {
		t.Errorf("token principal = %+v, want %+v", p, sess.Principal)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		in       RegisterInput
		password string
		wantErr  error
	}{
		{"short password", RegisterInput{Name: "A", Email: "a@b.co"}, "abc", ErrInvalidSecret},
		{"missing name", RegisterInput{Name: "  ", Email: "a@b.co"}, "abc123", ErrInvalidIdentity},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email"}, "abc123", ErrInvalidIdentity},
		{"display-name email", RegisterInput{Name: "A", Email: "A <a@b.co>"}, "abc123", ErrInvalidIdentity},
		{"bad cpf", RegisterInput{CPF: "123", Name: "A", Email: "a@b.co"}, "abc123", ErrInvalidIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			if _, err := svc.Register(context.Background(), tt.in, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_RegisterDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{CPF: "12345678901", Name: "A", Email: "a@b.co"}, "abc123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := svc.Register(ctx, RegisterInput{CPF: "12345678901", Name: "B", Email: "b@b.co"}, "abc123"); !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("duplicate cpf error = %v, want ErrDuplicateIdentity", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Name: "C", Email: "a@b.co"}, "abc123"); !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("duplicate email error = %v, want ErrDuplicateIdentity", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.addAccount(t, svc.Hasher(), Account{
		SubjectID: "11122233344", DisplayName: "Ana", Email: "ana@ufxx.br", Role: RoleDocente,
	}, "abc123")
	p := Principal{SubjectID: "11122233344", DisplayName: "Ana", Role: RoleDocente}

	if err := svc.ChangePassword(ctx, p, "wrong1", "newpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong current password error = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.ChangePassword(ctx, p, "abc123", "x"); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("short new password error = %v, want ErrInvalidSecret", err)
	}
	if err := svc.ChangePassword(ctx, Principal{SubjectID: "00000000000", Role: RoleDocente}, "abc123", "newpass1"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("unknown subject error = %v, want ErrUnauthenticated", err)
	}

	if err := svc.ChangePassword(ctx, p, "abc123", "newpass1"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.Login(ctx, "ana@ufxx.br", "abc123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password should no longer work, error = %v", err)
	}
	if _, err := svc.Login(ctx, "ana@ufxx.br", "newpass1"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

func TestService_DocenteGrantWorkflow(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addAccount(t, svc.Hasher(), Account{
		SubjectID: "11122233344", DisplayName: "Ana", Email: "ana@ufxx.br", Role: RoleDocente,
	}, "abc123")

	sess, err := svc.Login(context.Background(), "ana@ufxx.br", "abc123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/financiamentos", nil)
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	p, err := svc.Authenticate(req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if err := svc.Authorize(p, OpGrantCreate, AccessContext{}); err != nil {
		t.Errorf("docente should create grants, error = %v", err)
	}
	if err := svc.Authorize(p, OpGrantDelete, AccessContext{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("docente grant delete error = %v, want ErrForbidden", err)
	}
}

func TestService_AuthenticateMissingHeader(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := httptest.NewRequest("GET", "/api/v1/participantes", nil)

	if _, err := svc.Authenticate(req); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Authenticate() error = %v, want ErrUnauthenticated", err)
	}
}

func TestService_HashSecret(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.HashSecret(context.Background(), "123"); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("HashSecret() error = %v, want ErrInvalidSecret", err)
	}
	hash, err := svc.HashSecret(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}
	if !svc.Hasher().Verify(context.Background(), "abc123", hash) {
		t.Error("HashSecret() output should verify")
	}
}

func TestGenerateCPF(t *testing.T) {
	for range 20 {
		cpf, err := GenerateCPF()
		if err != nil {
			t.Fatalf("GenerateCPF() error = %v", err)
		}
		if !ValidCPF(cpf) {
			t.Fatalf("GenerateCPF() = %q, not 11 digits", cpf)
		}
	}

	// 529.982.247-25 is a well-known valid example.
	prefix := []int{5, 2, 9, 9, 8, 2, 2, 4, 7}
	if d := cpfCheckDigit(prefix); d != 2 {
		t.Errorf("first check digit = %d, want 2", d)
	}
	if d := cpfCheckDigit(append(prefix, 2)); d != 5 {
		t.Errorf("second check digit = %d, want 5", d)
	}
}

func TestValidCPF(t *testing.T) {
	tests := map[string]bool{
		"12345678901":    true,
		"1234567890":     false,
		"123456789012":   false,
		"1234567890a":    false,
		"123.456.789-01": false,
	}
	for in, want := range tests {
		if got := ValidCPF(in); got != want {
			t.Errorf("ValidCPF(%q) = %v, want %v", in, got, want)
		}
	}
}
