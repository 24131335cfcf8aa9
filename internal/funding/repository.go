package funding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
)

// Repository defines agency and grant persistence.
type Repository interface {
	CreateAgency(ctx context.Context, a *Agency) error
	GetAgency(ctx context.Context, acronym string) (*Agency, error)
	ListAgencies(ctx context.Context) ([]Agency, error)
	AgenciesWithGrants(ctx context.Context) ([]Agency, error)
	UpdateAgency(ctx context.Context, acronym, name string) (*Agency, error)
	DeleteAgency(ctx context.Context, acronym string) error

	CreateGrant(ctx context.Context, g *Grant) error
	GetGrant(ctx context.Context, code string) (*Grant, error)
	ListGrants(ctx context.Context, filter Filter) ([]Grant, error)
	GrantsByAgency(ctx context.Context, acronym string) ([]Grant, error)
	UpdateGrant(ctx context.Context, code string, u GrantUpdate) (*Grant, error)
	DeleteGrant(ctx context.Context, code string) error
	TotalAmount(ctx context.Context) (float64, error)
}

// SQLRepository implements Repository on SQLite or PostgreSQL.
type SQLRepository struct {
	db *database.DB
}

// NewSQLRepository creates a funding repository.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// ─── Agencies ───────────────────────────────────────────────────────

// CreateAgency inserts an agency.
func (r *SQLRepository) CreateAgency(ctx context.Context, a *Agency) error {
	NormaliseAgency(a)
	if err := ValidateAgency(a); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO agencias (sigla, nome) VALUES (?, ?)`, a.Acronym, a.Name)
	if err != nil {
		return mapWriteError(fmt.Sprintf("inserting agency %s", a.Acronym), err)
	}
	return nil
}

// GetAgency returns one agency.
func (r *SQLRepository) GetAgency(ctx context.Context, acronym string) (*Agency, error) {
	var a Agency
	err := r.db.QueryRowContext(ctx, `SELECT sigla, nome FROM agencias WHERE sigla = ?`, acronym).Scan(&a.Acronym, &a.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgencyNotFound
		}
		return nil, fmt.Errorf("scanning agency: %w", err)
	}
	return &a, nil
}

// ListAgencies returns every agency ordered by name.
func (r *SQLRepository) ListAgencies(ctx context.Context) ([]Agency, error) {
	return r.queryAgencies(ctx, `SELECT sigla, nome FROM agencias ORDER BY nome`)
}

// AgenciesWithGrants returns agencies that awarded at least one grant.
func (r *SQLRepository) AgenciesWithGrants(ctx context.Context) ([]Agency, error) {
	const query = `SELECT a.sigla, a.nome FROM agencias a
		WHERE EXISTS (SELECT 1 FROM financiamentos f WHERE f.agencia_sigla = a.sigla)
		ORDER BY a.nome`
	return r.queryAgencies(ctx, query)
}

// UpdateAgency renames an agency.
func (r *SQLRepository) UpdateAgency(ctx context.Context, acronym, name string) (*Agency, error) {
	a := &Agency{Acronym: acronym, Name: name}
	NormaliseAgency(a)
	if err := ValidateAgency(a); err != nil {
		return nil, err
	}
	result, err := r.db.ExecContext(ctx, `UPDATE agencias SET nome = ? WHERE sigla = ?`, a.Name, a.Acronym)
	if err != nil {
		return nil, fmt.Errorf("updating agency %s: %w", a.Acronym, err)
	}
	if err := requireRow(result, ErrAgencyNotFound); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAgency removes an agency without grants.
func (r *SQLRepository) DeleteAgency(ctx context.Context, acronym string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM agencias WHERE sigla = ?`, acronym)
	if err != nil {
		return mapWriteError(fmt.Sprintf("deleting agency %s", acronym), err)
	}
	return requireRow(result, ErrAgencyNotFound)
}

func (r *SQLRepository) queryAgencies(ctx context.Context, query string, args ...any) ([]Agency, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying agencies: %w", err)
	}
	defer rows.Close()

	agencies := []Agency{}
	for rows.Next() {
		var a Agency
		if err := rows.Scan(&a.Acronym, &a.Name); err != nil {
			return nil, fmt.Errorf("scanning agency row: %w", err)
		}
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agency rows: %w", err)
	}
	return agencies, nil
}

// ─── Grants ─────────────────────────────────────────────────────────

const selectGrant = `SELECT f.codigo_processo, f.agencia_sigla, a.nome, f.tipo_fomento, f.valor_total,
		f.data_inicio, f.data_fim, COUNT(DISTINCT pf.projeto_codigo)
	FROM financiamentos f
	JOIN agencias a ON a.sigla = f.agencia_sigla
	LEFT JOIN projetos_financiamentos pf ON pf.financiamento_codigo = f.codigo_processo`

const groupGrant = ` GROUP BY f.codigo_processo, f.agencia_sigla, a.nome, f.tipo_fomento, f.valor_total,
		f.data_inicio, f.data_fim`

// CreateGrant inserts a grant for an existing agency.
func (r *SQLRepository) CreateGrant(ctx context.Context, g *Grant) error {
	NormaliseGrant(g)
	if err := ValidateGrant(g); err != nil {
		return err
	}
	const query = `INSERT INTO financiamentos (codigo_processo, agencia_sigla, tipo_fomento, valor_total, data_inicio, data_fim)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, g.ProcessCode, g.AgencyAcronym, g.FundingType, g.TotalAmount, g.StartDate, g.EndDate)
	if err != nil {
		return mapWriteError(fmt.Sprintf("inserting grant %s", g.ProcessCode), err)
	}
	return nil
}

// GetGrant returns one grant with its agency name and project count.
func (r *SQLRepository) GetGrant(ctx context.Context, code string) (*Grant, error) {
	row := r.db.QueryRowContext(ctx, selectGrant+` WHERE f.codigo_processo = ?`+groupGrant, code)
	return scanGrant(row)
}

// ListGrants returns grants, newest start date first.
func (r *SQLRepository) ListGrants(ctx context.Context, filter Filter) ([]Grant, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		where = append(where, `(LOWER(a.nome) LIKE LOWER(?) OR LOWER(f.codigo_processo) LIKE LOWER(?))`)
		args = append(args, pattern, pattern)
	}
	if filter.FundingType != "" {
		where = append(where, `f.tipo_fomento = ?`)
		args = append(args, filter.FundingType)
	}

	query := selectGrant
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += groupGrant + ` ORDER BY f.data_inicio DESC, f.codigo_processo`
	return r.queryGrants(ctx, query, args...)
}

// GrantsByAgency returns an agency's grants, newest first.
func (r *SQLRepository) GrantsByAgency(ctx context.Context, acronym string) ([]Grant, error) {
	query := selectGrant + ` WHERE f.agencia_sigla = ?` + groupGrant + ` ORDER BY f.data_inicio DESC, f.codigo_processo`
	return r.queryGrants(ctx, query, strings.ToUpper(strings.TrimSpace(acronym)))
}

// UpdateGrant merges u into the stored grant and writes it back.
func (r *SQLRepository) UpdateGrant(ctx context.Context, code string, u GrantUpdate) (*Grant, error) {
	g, err := r.GetGrant(ctx, code)
	if err != nil {
		return nil, err
	}
	u.apply(g)
	NormaliseGrant(g)
	if err := ValidateGrant(g); err != nil {
		return nil, err
	}

	const query = `UPDATE financiamentos SET agencia_sigla = ?, tipo_fomento = ?, valor_total = ?,
		data_inicio = ?, data_fim = ? WHERE codigo_processo = ?`
	result, err := r.db.ExecContext(ctx, query, g.AgencyAcronym, g.FundingType, g.TotalAmount, g.StartDate, g.EndDate, code)
	if err != nil {
		return nil, mapWriteError(fmt.Sprintf("updating grant %s", code), err)
	}
	if err := requireRow(result, ErrGrantNotFound); err != nil {
		return nil, err
	}
	return r.GetGrant(ctx, code)
}

// DeleteGrant removes a grant not allocated to any project.
func (r *SQLRepository) DeleteGrant(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM financiamentos WHERE codigo_processo = ?`, code)
	if err != nil {
		return mapWriteError(fmt.Sprintf("deleting grant %s", code), err)
	}
	return requireRow(result, ErrGrantNotFound)
}

// TotalAmount sums the value of every grant.
func (r *SQLRepository) TotalAmount(ctx context.Context) (float64, error) {
	var total float64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(valor_total), 0) FROM financiamentos`).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing grants: %w", err)
	}
	return total, nil
}

func (r *SQLRepository) queryGrants(ctx context.Context, query string, args ...any) ([]Grant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying grants: %w", err)
	}
	defer rows.Close()

	grants := []Grant{}
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grant rows: %w", err)
	}
	return grants, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGrant(s scanner) (*Grant, error) {
	var g Grant
	err := s.Scan(&g.ProcessCode, &g.AgencyAcronym, &g.AgencyName, &g.FundingType, &g.TotalAmount,
		&g.StartDate, &g.EndDate, &g.ProjectCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("scanning grant: %w", err)
	}
	return &g, nil
}

func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// mapWriteError turns constraint failures into package sentinels.
func mapWriteError(action string, err error) error {
	switch database.Classify(err) {
	case database.KindDuplicateKey:
		return fmt.Errorf("%s: %w", action, ErrDuplicate)
	case database.KindForeignKey:
		return fmt.Errorf("%s: %w", action, ErrReferenceViolation)
	case database.KindConstraint:
		return fmt.Errorf("%s: %w", action, ErrInvalidGrant)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
