package production

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
)

// Repository defines production persistence.
type Repository interface {
	Create(ctx context.Context, p *Production) error
	Get(ctx context.Context, id string) (*Production, error)
	List(ctx context.Context, filter Filter) ([]Production, error)
	Update(ctx context.Context, id string, u Update) (*Production, error)
	Delete(ctx context.Context, id string) error
	Years(ctx context.Context) ([]int, error)
	Ownership(ctx context.Context, id string) (projectCode string, authors []string, err error)
}

// SQLRepository implements Repository on SQLite or PostgreSQL.
type SQLRepository struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLRepository creates a production repository.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

const selectProduction = `SELECT pr.id_registro, pr.projeto_codigo, pj.titulo, pr.titulo, pr.tipo,
		pr.ano_publicacao, pr.meio_divulgacao
	FROM producoes pr
	LEFT JOIN projetos pj ON pj.codigo = pr.projeto_codigo`

// Create inserts a production and its authors in one transaction.
func (r *SQLRepository) Create(ctx context.Context, p *Production) error {
	Normalise(p)
	if err := Validate(p, r.now()); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	const query = `INSERT INTO producoes (id_registro, projeto_codigo, titulo, tipo, ano_publicacao, meio_divulgacao)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query, p.RecordID, nullString(p.ProjectCode), p.Title, p.Type, p.Year, nullString(p.Venue))
	if err != nil {
		return mapWriteError(fmt.Sprintf("inserting production %s", p.RecordID), err)
	}
	if err := insertAuthors(ctx, tx, p.RecordID, p.Authors); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing production %s: %w", p.RecordID, err)
	}
	return nil
}

// Get returns one production with its authors in order.
func (r *SQLRepository) Get(ctx context.Context, id string) (*Production, error) {
	p, err := scanProduction(r.db.QueryRowContext(ctx, selectProduction+` WHERE pr.id_registro = ?`, id))
	if err != nil {
		return nil, err
	}
	authors, err := r.authors(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p.Authors = authors[id]
	if p.Authors == nil {
		p.Authors = []Author{}
	}
	return p, nil
}

// List returns productions, newest year first then by title.
func (r *SQLRepository) List(ctx context.Context, filter Filter) ([]Production, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, `LOWER(pr.titulo) LIKE LOWER(?)`)
		args = append(args, "%"+s+"%")
	}
	if filter.Type != "" {
		where = append(where, `pr.tipo = ?`)
		args = append(args, filter.Type)
	}
	if filter.Year != 0 {
		where = append(where, `pr.ano_publicacao = ?`)
		args = append(args, filter.Year)
	}

	query := selectProduction
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY pr.ano_publicacao DESC, pr.titulo`

	productions, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err := r.attachAuthors(ctx, productions); err != nil {
		return nil, err
	}
	return productions, nil
}

// Update merges u into the stored production. A non-nil author list replaces
// the existing one inside the same transaction.
func (r *SQLRepository) Update(ctx context.Context, id string, u Update) (*Production, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.apply(current)
	Normalise(current)
	if err := Validate(current, r.now()); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	const query = `UPDATE producoes SET projeto_codigo = ?, titulo = ?, tipo = ?, ano_publicacao = ?,
		meio_divulgacao = ? WHERE id_registro = ?`
	result, err := tx.ExecContext(ctx, query,
		nullString(current.ProjectCode), current.Title, current.Type, current.Year, nullString(current.Venue), id)
	if err != nil {
		return nil, mapWriteError(fmt.Sprintf("updating production %s", id), err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	if u.Authors != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM producoes_autores WHERE producao_id = ?`, id); err != nil {
			return nil, fmt.Errorf("clearing authors of %s: %w", id, err)
		}
		if err := insertAuthors(ctx, tx, id, current.Authors); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing production %s: %w", id, err)
	}
	return r.Get(ctx, id)
}

// Delete removes a production and its author list.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM producoes WHERE id_registro = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting production %s: %w", id, err)
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

// Years returns the distinct publication years, newest first.
func (r *SQLRepository) Years(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT ano_publicacao FROM producoes ORDER BY ano_publicacao DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying years: %w", err)
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scanning year: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating years: %w", err)
	}
	return years, nil
}

// Ownership returns the linked project code (empty when none) and the author
// CPFs, the facts authorisation needs.
func (r *SQLRepository) Ownership(ctx context.Context, id string) (string, []string, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return p.ProjectCode, p.AuthorCPFs(), nil
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]Production, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying productions: %w", err)
	}
	defer rows.Close()

	productions := []Production{}
	for rows.Next() {
		p, err := scanProduction(rows)
		if err != nil {
			return nil, err
		}
		productions = append(productions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating production rows: %w", err)
	}
	return productions, nil
}

func (r *SQLRepository) attachAuthors(ctx context.Context, productions []Production) error {
	if len(productions) == 0 {
		return nil
	}
	ids := make([]string, len(productions))
	for i := range productions {
		ids[i] = productions[i].RecordID
	}
	authors, err := r.authors(ctx, ids)
	if err != nil {
		return err
	}
	for i := range productions {
		productions[i].Authors = authors[productions[i].RecordID]
		if productions[i].Authors == nil {
			productions[i].Authors = []Author{}
		}
	}
	return nil
}

// authors loads the author lists of ids, keyed by record ID.
func (r *SQLRepository) authors(ctx context.Context, ids []string) (map[string][]Author, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT pa.producao_id, pa.participante_cpf, p.nome, pa.ordem
		FROM producoes_autores pa
		JOIN participantes p ON p.cpf = pa.participante_cpf
		WHERE pa.producao_id IN (` + placeholders + `)
		ORDER BY pa.producao_id, pa.ordem`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying authors: %w", err)
	}
	defer rows.Close()

	byID := make(map[string][]Author, len(ids))
	for rows.Next() {
		var id string
		var a Author
		if err := rows.Scan(&id, &a.CPF, &a.Name, &a.Order); err != nil {
			return nil, fmt.Errorf("scanning author: %w", err)
		}
		byID[id] = append(byID[id], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating authors: %w", err)
	}
	return byID, nil
}

func insertAuthors(ctx context.Context, tx *database.Tx, id string, authors []Author) error {
	const query = `INSERT INTO producoes_autores (producao_id, participante_cpf, ordem) VALUES (?, ?, ?)`
	for _, a := range authors {
		if _, err := tx.ExecContext(ctx, query, id, a.CPF, a.Order); err != nil {
			return mapWriteError(fmt.Sprintf("adding author %s to %s", a.CPF, id), err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduction(s scanner) (*Production, error) {
	var p Production
	var projectCode, projectTitle, venue sql.NullString
	err := s.Scan(&p.RecordID, &projectCode, &projectTitle, &p.Title, &p.Type, &p.Year, &venue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning production: %w", err)
	}
	p.ProjectCode = projectCode.String
	p.ProjectTitle = projectTitle.String
	p.Venue = venue.String
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
		return fmt.Errorf("%s: %w", action, ErrInvalidProduction)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
