package asset

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JasonCodez/kryptyk-labs/internal/dbx"
	"github.com/JasonCodez/kryptyk-labs/internal/ids"
)

const pgErrUniqueViolation = "23505"

var _ Repository = (*PGRepository)(nil)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	q dbx.DBTX
}

// NewPGRepository wraps a database or transaction handle.
func NewPGRepository(q dbx.DBTX) *PGRepository {
	return &PGRepository{q: q}
}

const userColumns = `id, email, coalesce(password_hash, ''), coalesce(display_name, ''),
	coalesce(motto, ''), clearance_level, clearance_progress_pct,
	coalesce(security_question, ''), coalesce(security_answer_hash, ''),
	created_at, updated_at, last_login_at`

func (r *PGRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.ClearanceLevel == "" {
		u.ClearanceLevel = "INITIATE-0"
	}
	_, err := r.q.ExecContext(ctx, `
		insert into users (id, email, clearance_level, clearance_progress_pct)
		values ($1, $2, $3, $4)
	`, u.ID, u.Email, u.ClearanceLevel, u.ClearanceProgressPct)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepository) Find(ctx context.Context, id string) (*User, error) {
	row := r.q.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.q.QueryRowContext(ctx, `select `+userColumns+` from users where email = $1`, email)
	return scanUser(row)
}

func (r *PGRepository) SetCredentials(ctx context.Context, userID, passwordHash, displayName, question, answerHash string) error {
	res, err := r.q.ExecContext(ctx, `
		update users
		set password_hash = $1,
		    display_name = nullif($2, ''),
		    security_question = $3,
		    security_answer_hash = $4,
		    last_login_at = now(),
		    updated_at = now()
		where id = $5
	`, passwordHash, displayName, question, answerHash, userID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return ensureRow(res)
}

func (r *PGRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.q.ExecContext(ctx, `
		update users set password_hash = $1, updated_at = now() where id = $2
	`, passwordHash, userID)
	if err != nil {
		return err
	}
	return ensureRow(res)
}

func (r *PGRepository) TouchLogin(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx, `
		update users set last_login_at = now(), updated_at = now() where id = $1
	`, userID)
	if err != nil {
		return err
	}
	return ensureRow(res)
}

func (r *PGRepository) SyncClearance(ctx context.Context, userID, label string, progressPct int) error {
	res, err := r.q.ExecContext(ctx, `
		update users
		set clearance_level = $1, clearance_progress_pct = $2, updated_at = now()
		where id = $3
	`, label, progressPct, userID)
	if err != nil {
		return err
	}
	return ensureRow(res)
}

func (r *PGRepository) UpdateProfile(ctx context.Context, userID string, displayName, motto *string) error {
	res, err := r.q.ExecContext(ctx, `
		update users
		set display_name = coalesce(nullif($1, ''), display_name),
		    motto = coalesce($2, motto),
		    updated_at = now()
		where id = $3
	`, stringOrEmpty(displayName), motto, userID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return ensureRow(res)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.Motto, &u.ClearanceLevel, &u.ClearanceProgressPct,
		&u.SecurityQuestion, &u.SecurityAnswerHash,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func ensureRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
