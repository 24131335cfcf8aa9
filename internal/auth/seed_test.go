package auth

import (
	"context"
	"log/slog"
	"testing"
)

func TestSeedAdmin_CreatesAdmin(t *testing.T) {
	store := newMemStore()
	h := testHasher()
	ctx := context.Background()

	password, err := SeedAdmin(ctx, store, h, SeedAdminInput{Email: "Admin@SIGPesq.local", Name: "Administrador"}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password == "" {
		t.Fatal("SeedAdmin() should return the generated password")
	}

	acc, err := store.GetAccountByEmail(ctx, "admin@sigpesq.local")
	if err != nil {
		t.Fatalf("GetAccountByEmail() error = %v", err)
	}
	if acc.Role != RoleAdmin {
		t.Errorf("Role = %s, want ADMIN", acc.Role)
	}
	if !h.Verify(ctx, password, acc.PasswordHash) {
		t.Error("seed password should verify against the stored hash")
	}
	if err := ValidateSecret(password); err != nil {
		t.Errorf("seed password should satisfy the length policy: %v", err)
	}
}

func TestSeedAdmin_SkipsWhenAdminExists(t *testing.T) {
	store := newMemStore()
	h := testHasher()
	store.addAccount(t, h, Account{SubjectID: "00000000001", DisplayName: "Root", Email: "root@x.br", Role: RoleAdmin}, "abc123")

	password, err := SeedAdmin(context.Background(), store, h, SeedAdminInput{Email: "admin@sigpesq.local", Name: "Administrador"}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password != "" {
		t.Errorf("SeedAdmin() = %q, want empty when an admin exists", password)
	}
	if n, _ := store.CountByRole(context.Background(), RoleAdmin); n != 1 {
		t.Errorf("admin count = %d, want 1", n)
	}
}
