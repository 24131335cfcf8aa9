package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
)

// Repository defines project persistence.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, code string) (*Project, error)
	List(ctx context.Context, filter Filter) ([]Project, error)
	ListByCoordinator(ctx context.Context, cpf string) ([]Project, error)
	Update(ctx context.Context, code string, u Update) (*Project, error)
	Delete(ctx context.Context, code string) error
	Details(ctx context.Context, code string) (*Details, error)
	AddMember(ctx context.Context, m *Membership) error
	AllocateGrant(ctx context.Context, a *Allocation) error
	Coordinator(ctx context.Context, code string) (string, error)
}

// SQLRepository implements Repository on SQLite or PostgreSQL.
type SQLRepository struct {
	db *database.DB
}

// NewSQLRepository creates a project repository.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectProject = `SELECT p.codigo, p.titulo, p.descricao, p.data_inicio, p.data_termino,
		p.situacao, p.coordenador_cpf, c.nome
	FROM projetos p
	JOIN participantes c ON c.cpf = p.coordenador_cpf`

// Create inserts p after checking its coordinator.
func (r *SQLRepository) Create(ctx context.Context, p *Project) error {
	Normalise(p)
	if err := Validate(p); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	name, err := checkCoordinator(ctx, tx, p.CoordinatorCPF)
	if err != nil {
		return err
	}

	const query = `INSERT INTO projetos (codigo, titulo, descricao, data_inicio, data_termino, situacao, coordenador_cpf)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		p.Code, p.Title, nullString(p.Description), p.StartDate, nullString(p.EndDate), string(p.Status), p.CoordinatorCPF)
	if err != nil {
		return mapWriteError(fmt.Sprintf("inserting project %s", p.Code), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing project %s: %w", p.Code, err)
	}
	p.CoordinatorName = name
	return nil
}

// Get returns one project with its coordinator's name.
func (r *SQLRepository) Get(ctx context.Context, code string) (*Project, error) {
	return scanProject(r.db.QueryRowContext(ctx, selectProject+` WHERE p.codigo = ?`, code))
}

// List returns projects, newest start date first.
func (r *SQLRepository) List(ctx context.Context, filter Filter) ([]Project, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		where = append(where, `(LOWER(p.titulo) LIKE LOWER(?) OR LOWER(p.codigo) LIKE LOWER(?) OR LOWER(c.nome) LIKE LOWER(?))`)
		args = append(args, pattern, pattern, pattern)
	}
	if filter.Status != "" {
		where = append(where, `p.situacao = ?`)
		args = append(args, string(filter.Status))
	}

	query := selectProject
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY p.data_inicio DESC, p.codigo`
	return r.query(ctx, query, args...)
}

// ListByCoordinator returns the projects coordinated by cpf, newest first.
func (r *SQLRepository) ListByCoordinator(ctx context.Context, cpf string) ([]Project, error) {
	return r.query(ctx, selectProject+` WHERE p.coordenador_cpf = ? ORDER BY p.data_inicio DESC, p.codigo`, cpf)
}

// Update merges u into the stored project and writes it back.
func (r *SQLRepository) Update(ctx context.Context, code string, u Update) (*Project, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	p, err := scanProject(tx.QueryRowContext(ctx, selectProject+` WHERE p.codigo = ?`, code))
	if err != nil {
		return nil, err
	}
	previousCoordinator := p.CoordinatorCPF

	u.apply(p)
	Normalise(p)
	if err := Validate(p); err != nil {
		return nil, err
	}

	if p.CoordinatorCPF != previousCoordinator {
		name, err := checkCoordinator(ctx, tx, p.CoordinatorCPF)
		if err != nil {
			return nil, err
		}
		p.CoordinatorName = name
	}

	const query = `UPDATE projetos SET titulo = ?, descricao = ?, data_inicio = ?, data_termino = ?,
		situacao = ?, coordenador_cpf = ? WHERE codigo = ?`
	_, err = tx.ExecContext(ctx, query,
		p.Title, nullString(p.Description), p.StartDate, nullString(p.EndDate), string(p.Status), p.CoordinatorCPF, code)
	if err != nil {
		return nil, mapWriteError(fmt.Sprintf("updating project %s", code), err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing project %s: %w", code, err)
	}
	return p, nil
}

// Delete removes a project. Memberships and allocations cascade; productions
// lose their project link.
func (r *SQLRepository) Delete(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projetos WHERE codigo = ?`, code)
	if err != nil {
		return mapWriteError(fmt.Sprintf("deleting project %s", code), err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Details returns the project with members (by name) and allocated grants.
func (r *SQLRepository) Details(ctx context.Context, code string) (*Details, error) {
	p, err := r.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	d := &Details{Project: *p, Participants: []Member{}, Grants: []AllocatedGrant{}}

	const membersQuery = `SELECT pa.cpf, pa.nome, pa.email, pa.tipo, pp.funcao, pp.data_entrada, pp.data_saida
		FROM participantes_projetos pp
		JOIN participantes pa ON pa.cpf = pp.participante_cpf
		WHERE pp.projeto_codigo = ?
		ORDER BY pa.nome`
	rows, err := r.db.QueryContext(ctx, membersQuery, code)
	if err != nil {
		return nil, fmt.Errorf("querying project members: %w", err)
	}
	for rows.Next() {
		var m Member
		var role string
		var exit sql.NullString
		if err := rows.Scan(&m.CPF, &m.Name, &m.Email, &role, &m.Function, &m.EntryDate, &exit); err != nil {
			rows.Close() //nolint:errcheck // Closing on error path
			return nil, fmt.Errorf("scanning project member: %w", err)
		}
		m.Role = auth.Role(role)
		m.ExitDate = exit.String
		d.Participants = append(d.Participants, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck // Closing on error path
		return nil, fmt.Errorf("iterating project members: %w", err)
	}
	rows.Close() //nolint:errcheck // Read-only cursor

	const grantsQuery = `SELECT f.codigo_processo, f.agencia_sigla, f.tipo_fomento, f.valor_total, pf.valor_alocado
		FROM projetos_financiamentos pf
		JOIN financiamentos f ON f.codigo_processo = pf.financiamento_codigo
		WHERE pf.projeto_codigo = ?
		ORDER BY f.codigo_processo`
	rows, err = r.db.QueryContext(ctx, grantsQuery, code)
	if err != nil {
		return nil, fmt.Errorf("querying project grants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g AllocatedGrant
		if err := rows.Scan(&g.GrantCode, &g.AgencyAcronym, &g.FundingType, &g.TotalAmount, &g.AllocatedAmount); err != nil {
			return nil, fmt.Errorf("scanning project grant: %w", err)
		}
		d.Grants = append(d.Grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project grants: %w", err)
	}
	return d, nil
}

// AddMember links a participant to a project.
func (r *SQLRepository) AddMember(ctx context.Context, m *Membership) error {
	if err := validateMembership(m); err != nil {
		return err
	}
	const query = `INSERT INTO participantes_projetos (participante_cpf, projeto_codigo, funcao, data_entrada, data_saida)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, m.ParticipantCPF, m.ProjectCode, m.Function, m.EntryDate, nullString(m.ExitDate))
	if err != nil {
		return mapWriteError(fmt.Sprintf("adding member %s to project %s", m.ParticipantCPF, m.ProjectCode), err)
	}
	return nil
}

// AllocateGrant assigns part of a grant to a project.
func (r *SQLRepository) AllocateGrant(ctx context.Context, a *Allocation) error {
	if err := validateAllocation(a); err != nil {
		return err
	}
	const query = `INSERT INTO projetos_financiamentos (projeto_codigo, financiamento_codigo, valor_alocado)
		VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, a.ProjectCode, a.GrantCode, a.AllocatedAmount)
	if err != nil {
		return mapWriteError(fmt.Sprintf("allocating grant %s to project %s", a.GrantCode, a.ProjectCode), err)
	}
	return nil
}

// Coordinator returns the CPF of a project's coordinator.
func (r *SQLRepository) Coordinator(ctx context.Context, code string) (string, error) {
	var cpf string
	err := r.db.QueryRowContext(ctx, `SELECT coordenador_cpf FROM projetos WHERE codigo = ?`, code).Scan(&cpf)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading project coordinator: %w", err)
	}
	return cpf, nil
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project rows: %w", err)
	}
	return projects, nil
}

// checkCoordinator returns the coordinator's name if cpf may coordinate.
func checkCoordinator(ctx context.Context, tx *database.Tx, cpf string) (string, error) {
	var name, role string
	err := tx.QueryRowContext(ctx, `SELECT nome, tipo FROM participantes WHERE cpf = ?`, cpf).Scan(&name, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCoordinator
		}
		return "", fmt.Errorf("reading coordinator: %w", err)
	}
	if !auth.Role(role).CanCoordinate() {
		return "", ErrInvalidCoordinator
	}
	return name, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*Project, error) {
	var p Project
	var status string
	var description, end sql.NullString
	err := s.Scan(&p.Code, &p.Title, &description, &p.StartDate, &end, &status, &p.CoordinatorCPF, &p.CoordinatorName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	p.Description = description.String
	p.EndDate = end.String
	p.Status = Status(status)
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// mapWriteError turns constraint failures into package sentinels.
func mapWriteError(action string, err error) error {
	switch database.Classify(err) {
	case database.KindDuplicateKey:
		return fmt.Errorf("%s: %w", action, ErrDuplicate)
	case database.KindForeignKey:
		return fmt.Errorf("%s: %w", action, ErrReferenceViolation)
	case database.KindConstraint:
		return fmt.Errorf("%s: %w", action, ErrInvalidProject)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
