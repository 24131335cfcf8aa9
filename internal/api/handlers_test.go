package api

import (
	"net/http"
	"slices"
	"testing"

	"github.com/nerrad567/sigpesq-core/internal/audit"
	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/funding"
	"github.com/nerrad567/sigpesq-core/internal/participant"
	"github.com/nerrad567/sigpesq-core/internal/production"
	"github.com/nerrad567/sigpesq-core/internal/project"
	"github.com/nerrad567/sigpesq-core/internal/report"
)

// ─── Participants ──────────────────────────────────────────────────

func TestParticipants_Create(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{
		"cpf":   "12345678901",
		"nome":  "Tiago Técnico",
		"email": "tiago@sigpesq.test",
		"tipo":  "tecnico",
		"senha": "senha-do-tiago",
	}

	env.mustDo(http.MethodPost, "/api/v1/participantes", docentePrincipal, body, http.StatusForbidden)

	rec := env.mustDo(http.MethodPost, "/api/v1/participantes", adminPrincipal, body, http.StatusCreated)
	created := decode[participant.Participant](t, rec)
	if created.Role != auth.RoleTecnico {
		t.Errorf("Role = %q, want TECNICO", created.Role)
	}

	rec = env.mustDo(http.MethodPost, "/api/v1/participantes", adminPrincipal, body, http.StatusBadRequest)
	if msg := decode[Error](t, rec).Message; msg != auth.ErrDuplicateIdentity.Error() {
		t.Errorf("duplicate message = %q, want %q", msg, auth.ErrDuplicateIdentity.Error())
	}

	// Same email under a new CPF collides on the identity too.
	body["cpf"] = "12345678902"
	env.mustDo(http.MethodPost, "/api/v1/participantes", adminPrincipal, body, http.StatusBadRequest)

	env.mustDo(http.MethodPost, "/api/v1/auth/login", auth.Principal{},
		map[string]string{"email": "tiago@sigpesq.test", "senha": "senha-do-tiago"}, http.StatusOK)

	entries := env.waitForAudit(audit.Filter{EntityType: entityParticipant, Action: actionCreate}, 1)
	if entries[0].ActorID != adminPrincipal.SubjectID || entries[0].EntityID != "12345678901" {
		t.Errorf("audit entry = %+v", entries[0])
	}
}

func TestParticipants_UpdateRules(t *testing.T) {
	env := newTestEnv(t)
	self := "/api/v1/participantes/" + discentePrincipal.SubjectID
	other := "/api/v1/participantes/" + docentePrincipal.SubjectID

	tests := []struct {
		name   string
		caller auth.Principal
		path   string
		body   map[string]any
		want   int
	}{
		{"self profile", discentePrincipal, self, map[string]any{"nome": "Dora Renomeada"}, http.StatusOK},
		{"self role unchanged", discentePrincipal, self, map[string]any{"tipo": "DISCENTE"}, http.StatusOK},
		{"self role change", discentePrincipal, self, map[string]any{"tipo": "ADMIN"}, http.StatusForbidden},
		{"other participant", discentePrincipal, other, map[string]any{"nome": "Hacked"}, http.StatusForbidden},
		{"admin role change", adminPrincipal, other, map[string]any{"tipo": "TECNICO"}, http.StatusOK},
		{"invalid role", adminPrincipal, other, map[string]any{"tipo": "REITOR"}, http.StatusBadRequest},
		{"invalid email", discentePrincipal, self, map[string]any{"email": "nope"}, http.StatusBadRequest},
		{"unknown participant", adminPrincipal, "/api/v1/participantes/99999999999", map[string]any{"nome": "X"}, http.StatusNotFound},
		{"unknown participant as non-admin", discentePrincipal, "/api/v1/participantes/99999999999", map[string]any{"nome": "X"}, http.StatusForbidden},
		{"email taken", discentePrincipal, self, map[string]any{"email": emailFor(adminPrincipal)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.mustDo(http.MethodPatch, tt.path, tt.caller, tt.body, tt.want)
		})
	}

	rec := env.mustDo(http.MethodGet, self, discentePrincipal, nil, http.StatusOK)
	got := decode[participant.Participant](t, rec)
	if got.Name != "Dora Renomeada" || got.Role != auth.RoleDiscente {
		t.Errorf("after updates = %+v", got)
	}
}

func TestParticipants_ListAndDelete(t *testing.T) {
	env := newTestEnv(t)

	rec := env.mustDo(http.MethodGet, "/api/v1/participantes?tipo=docente", discentePrincipal, nil, http.StatusOK)
	if list := decode[[]participant.Participant](t, rec); len(list) != 2 {
		t.Errorf("docentes = %d, want 2", len(list))
	}
	env.mustDo(http.MethodGet, "/api/v1/participantes?tipo=reitor", discentePrincipal, nil, http.StatusBadRequest)

	env.seedProject("P1")

	env.mustDo(http.MethodDelete, "/api/v1/participantes/"+otherDocente.SubjectID, docentePrincipal, nil, http.StatusForbidden)
	env.mustDo(http.MethodDelete, "/api/v1/participantes/"+docentePrincipal.SubjectID, adminPrincipal, nil, http.StatusBadRequest)
	env.mustDo(http.MethodDelete, "/api/v1/participantes/"+otherDocente.SubjectID, adminPrincipal, nil, http.StatusNoContent)
	env.mustDo(http.MethodGet, "/api/v1/participantes/"+otherDocente.SubjectID, adminPrincipal, nil, http.StatusNotFound)
}

// ─── Projects ──────────────────────────────────────────────────────

func TestProjects_CreateRules(t *testing.T) {
	env := newTestEnv(t)

	env.mustDo(http.MethodPost, "/api/v1/projetos", discentePrincipal,
		map[string]any{"codigo": "X1", "titulo": "X", "data_inicio": "2025-01-01"}, http.StatusForbidden)

	env.mustDo(http.MethodPost, "/api/v1/projetos", docentePrincipal,
		map[string]any{"codigo": "X2", "titulo": "X", "data_inicio": "2025-01-01", "coordenador_cpf": otherDocente.SubjectID},
		http.StatusForbidden)

	rec := env.mustDo(http.MethodPost, "/api/v1/projetos", docentePrincipal,
		map[string]any{"codigo": "X3", "titulo": "Meu projeto", "data_inicio": "2025-01-01"}, http.StatusCreated)
	p := decode[project.Project](t, rec)
	if p.CoordinatorCPF != docentePrincipal.SubjectID || p.Status != project.StatusInProgress {
		t.Errorf("created = %+v", p)
	}

	// Admins may name any DOCENTE, but not a DISCENTE.
	env.mustDo(http.MethodPost, "/api/v1/projetos", adminPrincipal,
		map[string]any{"codigo": "X4", "titulo": "X", "data_inicio": "2025-01-01", "coordenador_cpf": otherDocente.SubjectID},
		http.StatusCreated)
	env.mustDo(http.MethodPost, "/api/v1/projetos", adminPrincipal,
		map[string]any{"codigo": "X5", "titulo": "X", "data_inicio": "2025-01-01", "coordenador_cpf": discentePrincipal.SubjectID},
		http.StatusBadRequest)

	env.mustDo(http.MethodPost, "/api/v1/projetos", docentePrincipal,
		map[string]any{"codigo": "X3", "titulo": "Again", "data_inicio": "2025-01-01"}, http.StatusConflict)
	env.mustDo(http.MethodPost, "/api/v1/projetos", docentePrincipal,
		map[string]any{"codigo": "X6", "titulo": "Datas", "data_inicio": "2025-05-01", "data_termino": "2025-01-01"},
		http.StatusBadRequest)
}

func TestProjects_CoordinatorOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject("P1")
	env.seedFunding()

	tests := []struct {
		name   string
		caller auth.Principal
		want   int
	}{
		{"other docente", otherDocente, http.StatusForbidden},
		{"discente", discentePrincipal, http.StatusForbidden},
		{"coordinator", docentePrincipal, http.StatusOK},
		{"admin", adminPrincipal, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.mustDo(http.MethodPatch, "/api/v1/projetos/P1", tt.caller,
				map[string]any{"descricao": "por " + tt.name}, tt.want)
		})
	}

	env.mustDo(http.MethodPost, "/api/v1/projetos/P1/participantes", otherDocente,
		map[string]any{"participante_cpf": discentePrincipal.SubjectID, "funcao": "Bolsista", "data_entrada": "2025-03-01"},
		http.StatusForbidden)
	env.mustDo(http.MethodPost, "/api/v1/projetos/P1/participantes", docentePrincipal,
		map[string]any{"participante_cpf": discentePrincipal.SubjectID, "funcao": "Bolsista", "data_entrada": "2025-03-01"},
		http.StatusCreated)
	env.mustDo(http.MethodPost, "/api/v1/projetos/P1/financiamentos", docentePrincipal,
		map[string]any{"codigo_processo": "2024/00001-0", "valor_alocado": 50000.0}, http.StatusCreated)
	env.mustDo(http.MethodPost, "/api/v1/projetos/P1/financiamentos", docentePrincipal,
		map[string]any{"codigo_processo": "nao-existe", "valor_alocado": 1.0}, http.StatusBadRequest)

	rec := env.mustDo(http.MethodGet, "/api/v1/projetos/P1/detalhes", discentePrincipal, nil, http.StatusOK)
	d := decode[project.Details](t, rec)
	if len(d.Participants) != 1 || d.Participants[0].Function != "Bolsista" {
		t.Errorf("participants = %+v", d.Participants)
	}
	if len(d.Grants) != 1 || d.Grants[0].AllocatedAmount != 50000 {
		t.Errorf("grants = %+v", d.Grants)
	}

	env.mustDo(http.MethodDelete, "/api/v1/projetos/P1", otherDocente, nil, http.StatusForbidden)
	env.mustDo(http.MethodDelete, "/api/v1/projetos/P1", docentePrincipal, nil, http.StatusNoContent)
	env.mustDo(http.MethodGet, "/api/v1/projetos/P1", docentePrincipal, nil, http.StatusNotFound)
	env.mustDo(http.MethodDelete, "/api/v1/projetos/P1", adminPrincipal, nil, http.StatusNotFound)
}

func TestProjects_List(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject("P1")
	env.seedProject("P2")
	env.mustDo(http.MethodPatch, "/api/v1/projetos/P2", docentePrincipal, map[string]any{"situacao": "CONCLUIDO"}, http.StatusOK)

	rec := env.mustDo(http.MethodGet, "/api/v1/projetos?situacao=CONCLUIDO", discentePrincipal, nil, http.StatusOK)
	list := decode[[]project.Project](t, rec)
	if len(list) != 1 || list[0].Code != "P2" {
		t.Errorf("finished projects = %+v", list)
	}
	env.mustDo(http.MethodGet, "/api/v1/projetos?situacao=PAUSADO", discentePrincipal, nil, http.StatusBadRequest)
}

// ─── Funding ───────────────────────────────────────────────────────

func TestFunding_Rules(t *testing.T) {
	env := newTestEnv(t)

	// DOCENTE may create agencies and grants but not change or delete them.
	env.mustDo(http.MethodPost, "/api/v1/financiamentos/agencias", docentePrincipal,
		map[string]any{"sigla": "CNPq", "nome": "Conselho Nacional"}, http.StatusCreated)
	grant := map[string]any{
		"codigo_processo": "401234/2025-1",
		"agencia_sigla":   "CNPQ",
		"tipo_fomento":    "Bolsa",
		"valor_total":     1000.0,
		"data_inicio":     "2025-01-01",
		"data_fim":        "2025-12-31",
	}
	env.mustDo(http.MethodPost, "/api/v1/financiamentos", docentePrincipal, grant, http.StatusCreated)
	env.mustDo(http.MethodPost, "/api/v1/financiamentos", docentePrincipal, grant, http.StatusConflict)

	env.mustDo(http.MethodPost, "/api/v1/financiamentos", discentePrincipal, grant, http.StatusForbidden)
	env.mustDo(http.MethodPatch, "/api/v1/financiamentos/401234%2F2025-1", docentePrincipal,
		map[string]any{"valor_total": 2000.0}, http.StatusForbidden)
	env.mustDo(http.MethodDelete, "/api/v1/financiamentos/401234%2F2025-1", docentePrincipal, nil, http.StatusForbidden)
	env.mustDo(http.MethodDelete, "/api/v1/financiamentos/agencias/CNPQ", docentePrincipal, nil, http.StatusForbidden)

	rec := env.mustDo(http.MethodPatch, "/api/v1/financiamentos/401234%2F2025-1", adminPrincipal,
		map[string]any{"valor_total": 2000.0}, http.StatusOK)
	if g := decode[funding.Grant](t, rec); g.TotalAmount != 2000 {
		t.Errorf("TotalAmount = %v, want 2000", g.TotalAmount)
	}

	rec = env.mustDo(http.MethodGet, "/api/v1/financiamentos/total", discentePrincipal, nil, http.StatusOK)
	if total := decode[map[string]float64](t, rec)["total"]; total != 2000 {
		t.Errorf("total = %v, want 2000", total)
	}

	env.mustDo(http.MethodPatch, "/api/v1/financiamentos/401234%2F2025-1", adminPrincipal,
		map[string]any{"valor_total": -1.0}, http.StatusBadRequest)

	// An agency with grants cannot be removed.
	env.mustDo(http.MethodDelete, "/api/v1/financiamentos/agencias/CNPQ", adminPrincipal, nil, http.StatusBadRequest)
	env.mustDo(http.MethodDelete, "/api/v1/financiamentos/401234%2F2025-1", adminPrincipal, nil, http.StatusNoContent)
	env.mustDo(http.MethodDelete, "/api/v1/financiamentos/agencias/CNPQ", adminPrincipal, nil, http.StatusNoContent)
	env.mustDo(http.MethodGet, "/api/v1/financiamentos/agencias/CNPQ", adminPrincipal, nil, http.StatusNotFound)
}

// ─── Productions ───────────────────────────────────────────────────

func TestProductions_Rules(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject("P1")

	body := func(id string, authors ...string) map[string]any {
		return map[string]any{
			"id_registro":    id,
			"projeto_codigo": "P1",
			"titulo":         "Artigo " + id,
			"tipo":           "Artigo",
			"ano_publicacao": 2025,
			"autores":        authors,
		}
	}

	// Neither coordinator nor author.
	env.mustDo(http.MethodPost, "/api/v1/producoes", otherDocente, body("A1", discentePrincipal.SubjectID), http.StatusForbidden)
	// Listed author.
	env.mustDo(http.MethodPost, "/api/v1/producoes", discentePrincipal, body("A1", discentePrincipal.SubjectID), http.StatusCreated)
	// Coordinator of the linked project.
	env.mustDo(http.MethodPost, "/api/v1/producoes", docentePrincipal, body("10.1000/xyz", otherDocente.SubjectID), http.StatusCreated)

	env.mustDo(http.MethodPost, "/api/v1/producoes", adminPrincipal, body("A1"), http.StatusConflict)
	env.mustDo(http.MethodPost, "/api/v1/producoes", adminPrincipal, body("A2", "99999999999"), http.StatusBadRequest)

	missing := body("A3")
	missing["projeto_codigo"] = "NOPE"
	env.mustDo(http.MethodPost, "/api/v1/producoes", adminPrincipal, missing, http.StatusBadRequest)

	rec := env.mustDo(http.MethodGet, "/api/v1/producoes/10.1000%2Fxyz", discentePrincipal, nil, http.StatusOK)
	p := decode[production.Production](t, rec)
	if p.ProjectTitle != "Projeto P1" || len(p.Authors) != 1 || p.Authors[0].Name != otherDocente.DisplayName {
		t.Errorf("production = %+v", p)
	}

	// An author may edit but not delete.
	env.mustDo(http.MethodPatch, "/api/v1/producoes/10.1000%2Fxyz", otherDocente, map[string]any{"meio_divulgacao": "Revista X"}, http.StatusOK)
	env.mustDo(http.MethodPatch, "/api/v1/producoes/10.1000%2Fxyz", discentePrincipal, map[string]any{"titulo": "No"}, http.StatusForbidden)
	env.mustDo(http.MethodDelete, "/api/v1/producoes/10.1000%2Fxyz", otherDocente, nil, http.StatusForbidden)
	env.mustDo(http.MethodDelete, "/api/v1/producoes/10.1000%2Fxyz", docentePrincipal, nil, http.StatusNoContent)
	env.mustDo(http.MethodDelete, "/api/v1/producoes/10.1000%2Fxyz", adminPrincipal, nil, http.StatusNotFound)

	env.mustDo(http.MethodPatch, "/api/v1/producoes/A1", adminPrincipal, map[string]any{"ano_publicacao": 1800}, http.StatusBadRequest)

	rec = env.mustDo(http.MethodGet, "/api/v1/producoes?ano=2025", discentePrincipal, nil, http.StatusOK)
	if list := decode[[]production.Production](t, rec); len(list) != 1 {
		t.Errorf("productions in 2025 = %d, want 1", len(list))
	}
	env.mustDo(http.MethodGet, "/api/v1/producoes?ano=abc", discentePrincipal, nil, http.StatusBadRequest)
}

// ─── Queries and dashboard ─────────────────────────────────────────

func TestQueriesAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject("P1")
	env.seedFunding()
	env.mustDo(http.MethodPost, "/api/v1/producoes", docentePrincipal, map[string]any{
		"id_registro":    "A1",
		"projeto_codigo": "P1",
		"titulo":         "Artigo",
		"tipo":           "Artigo",
		"ano_publicacao": 2025,
		"autores":        []string{docentePrincipal.SubjectID, discentePrincipal.SubjectID},
	}, http.StatusCreated)

	rec := env.mustDo(http.MethodGet, "/api/v1/consultas/coordenadores", discentePrincipal, nil, http.StatusOK)
	if list := decode[[]participant.Participant](t, rec); len(list) != 2 {
		t.Errorf("coordinators = %d, want 2", len(list))
	}

	rec = env.mustDo(http.MethodGet, "/api/v1/consultas/projetos-por-coordenador/"+docentePrincipal.SubjectID, discentePrincipal, nil, http.StatusOK)
	if list := decode[[]project.Project](t, rec); len(list) != 1 {
		t.Errorf("projects by coordinator = %d, want 1", len(list))
	}

	rec = env.mustDo(http.MethodGet, "/api/v1/consultas/agencias", discentePrincipal, nil, http.StatusOK)
	if list := decode[[]funding.Agency](t, rec); len(list) != 1 || list[0].Acronym != "FAPESP" {
		t.Errorf("agencies with grants = %+v", list)
	}

	rec = env.mustDo(http.MethodGet, "/api/v1/consultas/financiamentos-por-agencia/fapesp", discentePrincipal, nil, http.StatusOK)
	if ag := decode[report.AgencyGrants](t, rec); ag.Total != 150000 || len(ag.Grants) != 1 {
		t.Errorf("grants by agency = %+v", ag)
	}
	env.mustDo(http.MethodGet, "/api/v1/consultas/financiamentos-por-agencia/NADA", discentePrincipal, nil, http.StatusNotFound)

	rec = env.mustDo(http.MethodGet, "/api/v1/consultas/anos", discentePrincipal, nil, http.StatusOK)
	if years := decode[[]int](t, rec); !slices.Equal(years, []int{2025}) {
		t.Errorf("years = %v, want [2025]", years)
	}

	rec = env.mustDo(http.MethodGet, "/api/v1/consultas/producoes-por-ano/2025", discentePrincipal, nil, http.StatusOK)
	groups := decode[[]report.TypeGroup](t, rec)
	if len(groups) != 1 || groups[0].Total != 1 {
		t.Fatalf("groups = %+v", groups)
	}
	if got, want := groups[0].Productions[0].Authors, docentePrincipal.DisplayName+", "+discentePrincipal.DisplayName; got != want {
		t.Errorf("authors = %q, want %q", got, want)
	}
	env.mustDo(http.MethodGet, "/api/v1/consultas/producoes-por-ano/abc", discentePrincipal, nil, http.StatusBadRequest)

	rec = env.mustDo(http.MethodGet, "/api/v1/dashboard/stats", discentePrincipal, nil, http.StatusOK)
	stats := decode[report.Stats](t, rec)
	if stats.ActiveProjects != 1 || stats.Participants != 4 || stats.GrantTotal != 150000 || stats.Productions != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rec = env.mustDo(http.MethodGet, "/api/v1/dashboard/recent-projects?limit=1", discentePrincipal, nil, http.StatusOK)
	if list := decode[[]report.RecentProject](t, rec); len(list) != 1 {
		t.Errorf("recent projects = %d, want 1", len(list))
	}
	rec = env.mustDo(http.MethodGet, "/api/v1/dashboard/recent-producoes", discentePrincipal, nil, http.StatusOK)
	if list := decode[[]report.RecentProduction](t, rec); len(list) != 1 {
		t.Errorf("recent productions = %d, want 1", len(list))
	}
	env.mustDo(http.MethodGet, "/api/v1/dashboard/recent-producoes?limit=x", discentePrincipal, nil, http.StatusBadRequest)
}

// ─── Audit and events ──────────────────────────────────────────────

func TestAuditLog(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject("P1")

	env.mustDo(http.MethodGet, "/api/v1/audit", docentePrincipal, nil, http.StatusForbidden)

	env.waitForAudit(audit.Filter{EntityType: entityProject}, 1)
	rec := env.mustDo(http.MethodGet, "/api/v1/audit?entity_type=project&limit=10", adminPrincipal, nil, http.StatusOK)
	result := decode[audit.ListResult](t, rec)
	if result.Total != 1 || result.Limit != 10 {
		t.Fatalf("result = %+v", result)
	}
	entry := result.Logs[0]
	if entry.Action != actionCreate || entry.EntityID != "P1" || entry.ActorRole != string(auth.RoleDocente) {
		t.Errorf("entry = %+v", entry)
	}

	if events := env.events.snapshot(); !containsString(events, "project.create") {
		t.Errorf("published events = %v, want project.create", events)
	}
}

func TestDeniedMutationHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject("P1")
	env.waitForAudit(audit.Filter{EntityType: entityProject}, 1)

	env.mustDo(http.MethodDelete, "/api/v1/projetos/P1", otherDocente, nil, http.StatusForbidden)
	env.mustDo(http.MethodGet, "/api/v1/projetos/P1", otherDocente, nil, http.StatusOK)

	if events := env.events.snapshot(); len(events) != 1 {
		t.Errorf("published events = %v, want only the create", events)
	}
}
