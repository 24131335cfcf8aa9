package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/sigpesq-core/internal/audit"
	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/participant"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.mustDo(http.MethodPost, "/api/v1/auth/login", auth.Principal{},
		map[string]string{"email": emailFor(docentePrincipal), "senha": testPassword}, http.StatusOK)

	resp := decode[tokenResponse](t, rec)
	if resp.TokenType != "bearer" {
		t.Errorf("TokenType = %q, want bearer", resp.TokenType)
	}
	if resp.UserCPF != docentePrincipal.SubjectID || resp.UserType != auth.RoleDocente {
		t.Errorf("user = %s/%s, want %s/%s", resp.UserCPF, resp.UserType, docentePrincipal.SubjectID, auth.RoleDocente)
	}
	if resp.ExpiresIn <= 0 {
		t.Errorf("ExpiresIn = %d, want > 0", resp.ExpiresIn)
	}

	// The token authenticates follow-up requests.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	me := httptest.NewRecorder()
	env.handler.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("GET /auth/me status = %d, want %d", me.Code, http.StatusOK)
	}
	if got := decode[participant.Participant](t, me); got.Email != emailFor(docentePrincipal) {
		t.Errorf("me.Email = %q, want %q", got.Email, emailFor(docentePrincipal))
	}

	env.waitForAudit(audit.Filter{Action: actionLogin, ActorID: docentePrincipal.SubjectID}, 1)
}

func TestLogin_PasswordField(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"password", map[string]string{"email": emailFor(adminPrincipal), "password": testPassword}},
		{"senha", map[string]string{"email": emailFor(adminPrincipal), "senha": testPassword}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.mustDo(http.MethodPost, "/api/v1/auth/login", auth.Principal{}, tt.body, http.StatusOK)
			if got := decode[tokenResponse](t, rec).UserCPF; got != adminPrincipal.SubjectID {
				t.Errorf("UserCPF = %q, want %q", got, adminPrincipal.SubjectID)
			}
		})
	}
}

func TestLogin_FormEncoded(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"username": {emailFor(adminPrincipal)}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := decode[tokenResponse](t, rec).UserType; got != auth.RoleAdmin {
		t.Errorf("UserType = %q, want ADMIN", got)
	}
}

func TestLogin_Rejected(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"email": emailFor(adminPrincipal), "senha": "errada!!"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "ninguem@sigpesq.test", "senha": testPassword}, http.StatusUnauthorized},
		{"missing password", map[string]string{"email": emailFor(adminPrincipal)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.mustDo(http.MethodPost, "/api/v1/auth/login", auth.Principal{}, tt.body, tt.want)
			if tt.want == http.StatusUnauthorized {
				if msg := decode[Error](t, rec).Message; msg != auth.ErrInvalidCredentials.Error() {
					t.Errorf("message = %q, want %q", msg, auth.ErrInvalidCredentials.Error())
				}
			}
		})
	}

	metrics := env.mustDo(http.MethodGet, "/metrics", auth.Principal{}, nil, http.StatusOK).Body.String()
	if !strings.Contains(metrics, `sigpesq_auth_attempts_total{kind="login",outcome="rejected"} 2`) {
		t.Error("rejected logins not counted")
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.mustDo(http.MethodPost, "/api/v1/auth/register", auth.Principal{}, map[string]string{
		"nome":  "Nina Nova",
		"email": "Nina@Sigpesq.test",
		"senha": "nova-senha",
	}, http.StatusCreated)

	resp := decode[tokenResponse](t, rec)
	if resp.UserType != auth.RoleDiscente {
		t.Errorf("UserType = %q, want DISCENTE", resp.UserType)
	}
	if !auth.ValidCPF(resp.UserCPF) {
		t.Errorf("generated cpf %q is not valid", resp.UserCPF)
	}

	// Same email again, different case.
	rec = env.mustDo(http.MethodPost, "/api/v1/auth/register", auth.Principal{}, map[string]string{
		"nome":  "Outra Nina",
		"email": "nina@sigpesq.test",
		"senha": "nova-senha",
	}, http.StatusBadRequest)
	if msg := decode[Error](t, rec).Message; msg != auth.ErrDuplicateIdentity.Error() {
		t.Errorf("message = %q, want %q", msg, auth.ErrDuplicateIdentity.Error())
	}

	env.mustDo(http.MethodPost, "/api/v1/auth/register", auth.Principal{}, map[string]string{
		"nome": "Curta", "email": "curta@sigpesq.test", "senha": "123",
	}, http.StatusBadRequest)
}

func TestRegister_IgnoresRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.mustDo(http.MethodPost, "/api/v1/auth/register", auth.Principal{}, map[string]string{
		"nome":  "Rui Registro",
		"email": "rui@sigpesq.test",
		"senha": "nova-senha",
		"tipo":  "ADMIN",
	}, http.StatusCreated)

	if got := decode[tokenResponse](t, rec).UserType; got != auth.RoleDiscente {
		t.Errorf("UserType = %q, want DISCENTE", got)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)

	env.mustDo(http.MethodPost, "/api/v1/auth/password", discentePrincipal,
		map[string]string{"senha_atual": "errada!!", "nova_senha": "outra-senha"}, http.StatusUnauthorized)

	env.mustDo(http.MethodPost, "/api/v1/auth/password", discentePrincipal,
		map[string]string{"senha_atual": testPassword, "nova_senha": "outra-senha"}, http.StatusNoContent)

	env.mustDo(http.MethodPost, "/api/v1/auth/login", auth.Principal{},
		map[string]string{"email": emailFor(discentePrincipal), "senha": testPassword}, http.StatusUnauthorized)
	env.mustDo(http.MethodPost, "/api/v1/auth/login", auth.Principal{},
		map[string]string{"email": emailFor(discentePrincipal), "senha": "outra-senha"}, http.StatusOK)
}

func TestMe_DeletedAccount(t *testing.T) {
	env := newTestEnv(t)

	env.mustDo(http.MethodDelete, "/api/v1/participantes/"+discentePrincipal.SubjectID, adminPrincipal, nil, http.StatusNoContent)
	env.mustDo(http.MethodGet, "/api/v1/auth/me", discentePrincipal, nil, http.StatusUnauthorized)
}

func TestTicketStore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newTicketStore()
	store.now = func() time.Time { return now }

	ticket := store.issue(docentePrincipal)
	if len(ticket) != 2*ticketBytes {
		t.Fatalf("ticket length = %d, want %d", len(ticket), 2*ticketBytes)
	}

	p, ok := store.redeem(ticket)
	if !ok || p != docentePrincipal {
		t.Fatalf("redeem() = %+v, %v; want %+v, true", p, ok, docentePrincipal)
	}
	if _, ok := store.redeem(ticket); ok {
		t.Error("redeem() succeeded twice for the same ticket")
	}

	expired := store.issue(docentePrincipal)
	now = now.Add(ticketTTL)
	if _, ok := store.redeem(expired); ok {
		t.Error("redeem() accepted a ticket at its expiry instant")
	}

	store.issue(adminPrincipal)
	now = now.Add(ticketTTL)
	store.sweep()
	if n := store.len(); n != 0 {
		t.Errorf("tickets after sweep = %d, want 0", n)
	}
}
