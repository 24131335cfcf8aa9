package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/sigpesq-core/internal/audit"
	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/funding"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/config"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database/dbtest"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/logging"
	"github.com/nerrad567/sigpesq-core/internal/participant"
	"github.com/nerrad567/sigpesq-core/internal/production"
	"github.com/nerrad567/sigpesq-core/internal/project"
	"github.com/nerrad567/sigpesq-core/internal/report"
)

const testPassword = "senha-segura"

// Fixture participants seeded by newTestEnv.
var (
	adminPrincipal    = auth.Principal{SubjectID: "00000000001", DisplayName: "Ana Admin", Role: auth.RoleAdmin}
	docentePrincipal  = auth.Principal{SubjectID: "00000000002", DisplayName: "Davi Docente", Role: auth.RoleDocente}
	otherDocente      = auth.Principal{SubjectID: "00000000003", DisplayName: "Olga Docente", Role: auth.RoleDocente}
	discentePrincipal = auth.Principal{SubjectID: "00000000004", DisplayName: "Dora Discente", Role: auth.RoleDiscente}
)

func emailFor(p auth.Principal) string {
	return p.SubjectID + "@sigpesq.test"
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishEvent(entity, action string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, entity+"."+action)
	return nil
}

func (p *recordingPublisher) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// testEnv is a Server on a migrated SQLite database with background workers
// running and four fixture participants.
type testEnv struct {
	t         *testing.T
	server    *Server
	handler   http.Handler
	db        *database.DB
	codec     *auth.Codec
	auditRepo *audit.SQLRepository
	events    *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.Open(t)
	logger := logging.Discard()

	participants := participant.NewSQLRepository(db)
	projects := project.NewSQLRepository(db)
	fundingRepo := funding.NewSQLRepository(db)
	productions := production.NewSQLRepository(db)
	auditRepo := audit.NewSQLRepository(db)

	hasher := auth.NewHasher(auth.HasherConfig{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, MaxConcurrent: 4})
	codec, err := auth.NewCodec([]byte("api-test-signing-key-32-bytes!!!"))
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	svc := auth.NewService(participant.NewAccountStore(participants), hasher, codec, logger.Logger)

	events := &recordingPublisher{}
	srv, err := New(Deps{
		Config:       config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:           config.WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:       logger,
		DB:           db,
		Auth:         svc,
		Participants: participants,
		Projects:     projects,
		Funding:      fundingRepo,
		Productions:  productions,
		Reports:      report.New(db, projects, fundingRepo),
		Audit:        auditRepo,
		Events:       events,
		Version:      "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	drained := make(chan struct{})
	go srv.hub.Run(ctx)
	go func() {
		defer close(drained)
		srv.drainAuditLog(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-drained
	})

	hash, err := hasher.Hash(context.Background(), testPassword)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	for _, p := range []auth.Principal{adminPrincipal, docentePrincipal, otherDocente, discentePrincipal} {
		err := participants.Create(context.Background(), &participant.Participant{
			CPF:   p.SubjectID,
			Name:  p.DisplayName,
			Email: emailFor(p),
			Role:  p.Role,
		}, hash)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", p.SubjectID, err)
		}
	}

	return &testEnv{
		t:         t,
		server:    srv,
		handler:   srv.Handler(),
		db:        db,
		codec:     codec,
		auditRepo: auditRepo,
		events:    events,
	}
}

// token issues an access token for p.
func (e *testEnv) token(p auth.Principal) string {
	e.t.Helper()
	tok, _, err := e.codec.Issue(auth.Claims{Subject: p.SubjectID, Name: p.DisplayName, Role: p.Role})
	if err != nil {
		e.t.Fatalf("Issue() error = %v", err)
	}
	return tok
}

// do sends a request as p. A zero Principal sends no Authorization header.
func (e *testEnv) do(method, path string, p auth.Principal, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshalling body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.SubjectID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(p))
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// mustDo is do with a status assertion.
func (e *testEnv) mustDo(method, path string, p auth.Principal, body any, want int) *httptest.ResponseRecorder {
	e.t.Helper()
	rec := e.do(method, path, p, body)
	if rec.Code != want {
		e.t.Fatalf("%s %s status = %d, want %d; body = %s", method, path, rec.Code, want, rec.Body.String())
	}
	return rec
}

// seedFunding creates agency FAPESP and grant 2024/00001-0 as admin.
func (e *testEnv) seedFunding() {
	e.t.Helper()
	e.mustDo(http.MethodPost, "/api/v1/financiamentos/agencias", adminPrincipal,
		map[string]any{"sigla": "FAPESP", "nome": "Fundação de Amparo à Pesquisa"}, http.StatusCreated)
	e.mustDo(http.MethodPost, "/api/v1/financiamentos", adminPrincipal, map[string]any{
		"codigo_processo": "2024/00001-0",
		"agencia_sigla":   "FAPESP",
		"tipo_fomento":    "Auxílio Regular",
		"valor_total":     150000.0,
		"data_inicio":     "2024-01-01",
		"data_fim":        "2026-12-31",
	}, http.StatusCreated)
}

// seedProject creates project code coordinated by docentePrincipal.
func (e *testEnv) seedProject(code string) {
	e.t.Helper()
	e.mustDo(http.MethodPost, "/api/v1/projetos", docentePrincipal, map[string]any{
		"codigo":      code,
		"titulo":      "Projeto " + code,
		"data_inicio": "2025-03-01",
	}, http.StatusCreated)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

// waitForAudit polls until filter matches at least n entries.
func (e *testEnv) waitForAudit(filter audit.Filter, n int) []audit.Entry {
	e.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		result, err := e.auditRepo.List(context.Background(), filter)
		if err != nil {
			e.t.Fatalf("List() error = %v", err)
		}
		if result.Total >= n {
			return result.Logs
		}
		if time.Now().After(deadline) {
			e.t.Fatalf("audit entries for %+v = %d, want >= %d", filter, result.Total, n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[Error](t, rec).Code
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
