package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nerrad567/sigpesq-core/internal/funding"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
	"github.com/nerrad567/sigpesq-core/internal/project"
)

// DefaultRecentLimit is used when callers pass a non-positive limit.
const DefaultRecentLimit = 5

// maxRecentLimit caps dashboard list sizes.
const maxRecentLimit = 50

// Reporter answers dashboard and query requests.
type Reporter struct {
	db       *database.DB
	projects project.Repository
	funding  funding.Repository
}

// New creates a Reporter. The project and funding repositories serve the
// queries that are plain filtered listings.
func New(db *database.DB, projects project.Repository, fundingRepo funding.Repository) *Reporter {
	return &Reporter{db: db, projects: projects, funding: fundingRepo}
}

// Stats computes the dashboard headline figures.
func (r *Reporter) Stats(ctx context.Context) (*Stats, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM projetos WHERE situacao = ?),
		(SELECT COUNT(*) FROM participantes),
		(SELECT COALESCE(SUM(valor_total), 0) FROM financiamentos),
		(SELECT COUNT(*) FROM producoes),
		(SELECT COUNT(*) FROM projetos WHERE situacao = ?)`

	var s Stats
	err := r.db.QueryRowContext(ctx, query, string(project.StatusInProgress), string(project.StatusFinished)).
		Scan(&s.ActiveProjects, &s.Participants, &s.GrantTotal, &s.Productions, &s.FinishedProjects)
	if err != nil {
		return nil, fmt.Errorf("computing dashboard stats: %w", err)
	}
	return &s, nil
}

// RecentProjects returns the projects with the latest start dates.
func (r *Reporter) RecentProjects(ctx context.Context, limit int) ([]RecentProject, error) {
	const query = `SELECT p.codigo, p.titulo, p.data_inicio, p.situacao, c.nome
		FROM projetos p
		JOIN participantes c ON c.cpf = p.coordenador_cpf
		ORDER BY p.data_inicio DESC, p.codigo
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying recent projects: %w", err)
	}
	defer rows.Close()

	projects := []RecentProject{}
	for rows.Next() {
		var p RecentProject
		var status string
		if err := rows.Scan(&p.Code, &p.Title, &p.StartDate, &status, &p.CoordinatorName); err != nil {
			return nil, fmt.Errorf("scanning recent project: %w", err)
		}
		p.Status = project.Status(status)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent projects: %w", err)
	}
	return projects, nil
}

// RecentProductions returns the latest productions by year.
func (r *Reporter) RecentProductions(ctx context.Context, limit int) ([]RecentProduction, error) {
	const query = `SELECT pr.id_registro, pr.titulo, pr.tipo, pr.ano_publicacao, pj.titulo
		FROM producoes pr
		LEFT JOIN projetos pj ON pj.codigo = pr.projeto_codigo
		ORDER BY pr.ano_publicacao DESC, pr.id_registro DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying recent productions: %w", err)
	}
	defer rows.Close()

	productions := []RecentProduction{}
	for rows.Next() {
		var p RecentProduction
		var projectTitle sql.NullString
		if err := rows.Scan(&p.RecordID, &p.Title, &p.Type, &p.Year, &projectTitle); err != nil {
			return nil, fmt.Errorf("scanning recent production: %w", err)
		}
		p.ProjectTitle = projectTitle.String
		productions = append(productions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent productions: %w", err)
	}
	return productions, nil
}

// ProjectsByCoordinator lists the projects coordinated by cpf.
func (r *Reporter) ProjectsByCoordinator(ctx context.Context, cpf string) ([]project.Project, error) {
	return r.projects.ListByCoordinator(ctx, cpf)
}

// GrantsByAgency lists an agency's grants with their summed value.
func (r *Reporter) GrantsByAgency(ctx context.Context, acronym string) (*AgencyGrants, error) {
	agency, err := r.funding.GetAgency(ctx, strings.ToUpper(strings.TrimSpace(acronym)))
	if err != nil {
		return nil, err
	}
	grants, err := r.funding.GrantsByAgency(ctx, agency.Acronym)
	if err != nil {
		return nil, err
	}

	result := &AgencyGrants{AgencyAcronym: agency.Acronym, AgencyName: agency.Name, Grants: grants}
	for _, g := range grants {
		result.Total += g.TotalAmount
	}
	return result, nil
}

// ProductionsByYear groups a year's productions by type. Types and titles
// are in alphabetical order; authors are joined by their listed order.
func (r *Reporter) ProductionsByYear(ctx context.Context, year int) ([]TypeGroup, error) {
	authors, err := r.authorNamesByYear(ctx, year)
	if err != nil {
		return nil, err
	}

	const query = `SELECT pr.id_registro, pr.titulo, pr.tipo, pr.meio_divulgacao, pj.titulo
		FROM producoes pr
		LEFT JOIN projetos pj ON pj.codigo = pr.projeto_codigo
		WHERE pr.ano_publicacao = ?
		ORDER BY pr.tipo, pr.titulo`
	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("querying productions by year: %w", err)
	}
	defer rows.Close()

	groups := []TypeGroup{}
	for rows.Next() {
		var p YearProduction
		var venue, projectTitle sql.NullString
		if err := rows.Scan(&p.RecordID, &p.Title, &p.Type, &venue, &projectTitle); err != nil {
			return nil, fmt.Errorf("scanning production: %w", err)
		}
		p.Venue = venue.String
		p.ProjectTitle = projectTitle.String
		p.Authors = strings.Join(authors[p.RecordID], ", ")
		p.DOI = p.RecordID

		if n := len(groups); n == 0 || groups[n-1].Type != p.Type {
			groups = append(groups, TypeGroup{Type: p.Type})
		}
		g := &groups[len(groups)-1]
		g.Productions = append(g.Productions, p)
		g.Total++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating productions by year: %w", err)
	}
	return groups, nil
}

// authorNamesByYear maps record IDs of a year's productions to author names in order.
func (r *Reporter) authorNamesByYear(ctx context.Context, year int) (map[string][]string, error) {
	const query = `SELECT pa.producao_id, p.nome
		FROM producoes_autores pa
		JOIN participantes p ON p.cpf = pa.participante_cpf
		JOIN producoes pr ON pr.id_registro = pa.producao_id
		WHERE pr.ano_publicacao = ?
		ORDER BY pa.producao_id, pa.ordem`
	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("querying author names: %w", err)
	}
	defer rows.Close()

	names := make(map[string][]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning author name: %w", err)
		}
		names[id] = append(names[id], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating author names: %w", err)
	}
	return names, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return min(limit, maxRecentLimit)
}
