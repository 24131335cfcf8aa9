package participant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
)

// Repository defines participant persistence.
type Repository interface {
	Create(ctx context.Context, p *Participant, passwordHash string) error
	GetByCPF(ctx context.Context, cpf string) (*Participant, error)
	GetByEmail(ctx context.Context, email string) (*Participant, string, error)
	List(ctx context.Context, filter Filter) ([]Participant, error)
	ListByRole(ctx context.Context, role auth.Role) ([]Participant, error)
	Update(ctx context.Context, cpf string, u Update) (*Participant, error)
	UpdatePasswordHash(ctx context.Context, cpf, hash string) error
	Delete(ctx context.Context, cpf string) error
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role auth.Role) (int, error)
}

// SQLRepository implements Repository on SQLite or PostgreSQL.
type SQLRepository struct {
	db *database.DB
}

// NewSQLRepository creates a participant repository.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectColumns = `SELECT cpf, nome, email, tipo, criado_em FROM participantes`

// Create inserts p with the given password hash. CreatedAt is set when zero.
func (r *SQLRepository) Create(ctx context.Context, p *Participant, passwordHash string) error {
	Normalise(p)
	if err := Validate(p); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	const query = `INSERT INTO participantes (cpf, nome, email, tipo, senha_hash, criado_em)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.CPF, p.Name, p.Email, string(p.Role), passwordHash, database.FormatTime(p.CreatedAt))
	if err != nil {
		return mapWriteError(fmt.Sprintf("inserting participant %s", p.CPF), err)
	}
	return nil
}

// GetByCPF returns one participant.
func (r *SQLRepository) GetByCPF(ctx context.Context, cpf string) (*Participant, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE cpf = ?`, cpf)
	return scanParticipant(row)
}

// GetByEmail returns the participant and their stored password hash.
func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*Participant, string, error) {
	const query = `SELECT cpf, nome, email, tipo, criado_em, senha_hash
		FROM participantes WHERE email = ?`

	var p Participant
	var role, createdAt, hash string
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).
		Scan(&p.CPF, &p.Name, &p.Email, &role, &createdAt, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("scanning participant: %w", err)
	}
	p.Role = auth.Role(role)
	p.CreatedAt = database.ParseTime(createdAt)
	return &p, hash, nil
}

// passwordHash returns the stored hash for cpf.
func (r *SQLRepository) passwordHash(ctx context.Context, cpf string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT senha_hash FROM participantes WHERE cpf = ?`, cpf).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading password hash: %w", err)
	}
	return hash, nil
}

// List returns participants ordered by name.
func (r *SQLRepository) List(ctx context.Context, filter Filter) ([]Participant, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		where = append(where, `(LOWER(nome) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR cpf LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}
	if filter.Role != "" {
		where = append(where, `tipo = ?`)
		args = append(args, string(filter.Role))
	}

	query := selectColumns
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY nome`
	return r.query(ctx, query, args...)
}

// ListByRole returns participants holding role, ordered by name.
func (r *SQLRepository) ListByRole(ctx context.Context, role auth.Role) ([]Participant, error) {
	return r.query(ctx, selectColumns+` WHERE tipo = ? ORDER BY nome`, string(role))
}

// Update applies u to the participant and returns the stored result.
func (r *SQLRepository) Update(ctx context.Context, cpf string, u Update) (*Participant, error) {
	if err := ValidateUpdate(&u); err != nil {
		return nil, err
	}
	if u.Empty() {
		return r.GetByCPF(ctx, cpf)
	}

	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, `nome = ?`)
		args = append(args, *u.Name)
	}
	if u.Email != nil {
		sets = append(sets, `email = ?`)
		args = append(args, *u.Email)
	}
	if u.Role != nil {
		sets = append(sets, `tipo = ?`)
		args = append(args, string(*u.Role))
	}
	if u.PasswordHash != nil {
		sets = append(sets, `senha_hash = ?`)
		args = append(args, *u.PasswordHash)
	}
	args = append(args, cpf)

	query := `UPDATE participantes SET ` + strings.Join(sets, `, `) + ` WHERE cpf = ?`
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapWriteError(fmt.Sprintf("updating participant %s", cpf), err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	return r.GetByCPF(ctx, cpf)
}

// UpdatePasswordHash replaces the stored hash.
func (r *SQLRepository) UpdatePasswordHash(ctx context.Context, cpf, hash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE participantes SET senha_hash = ? WHERE cpf = ?`, hash, cpf)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	return requireRow(result)
}

// Delete removes a participant. Memberships cascade; coordinated projects
// and authored productions block the delete with ErrReferenceViolation.
func (r *SQLRepository) Delete(ctx context.Context, cpf string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM participantes WHERE cpf = ?`, cpf)
	if err != nil {
		return mapWriteError(fmt.Sprintf("deleting participant %s", cpf), err)
	}
	return requireRow(result)
}

// Count returns the number of participants.
func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participantes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting participants: %w", err)
	}
	return n, nil
}

// CountByRole returns the number of participants holding role.
func (r *SQLRepository) CountByRole(ctx context.Context, role auth.Role) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participantes WHERE tipo = ?`, string(role)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting participants by role: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	participants := []Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participant rows: %w", err)
	}
	return participants, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(s scanner) (*Participant, error) {
	var p Participant
	var role, createdAt string
	if err := s.Scan(&p.CPF, &p.Name, &p.Email, &role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning participant: %w", err)
	}
	p.Role = auth.Role(role)
	p.CreatedAt = database.ParseTime(createdAt)
	return &p, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
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
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
