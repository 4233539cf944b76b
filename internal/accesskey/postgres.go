package accesskey

import (
	"context"
	"database/sql"
	"errors"

	"github.com/JasonCodez/kryptyk-labs/internal/dbx"
	"github.com/JasonCodez/kryptyk-labs/internal/ids"
)

var _ Repository = (*PGRepository)(nil)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	q dbx.DBTX
}

// NewPGRepository wraps a database or transaction handle.
func NewPGRepository(q dbx.DBTX) *PGRepository {
	return &PGRepository{q: q}
}

func (r *PGRepository) Insert(ctx context.Context, k *Key) error {
	if k.ID == "" {
		k.ID = ids.New()
	}
	_, err := r.q.ExecContext(ctx, `
		insert into access_keys (id, email, key_hash, kind, created_at, expires_at, used, attempts)
		values ($1, $2, $3, $4, $5, $6, false, 0)
	`, k.ID, k.Email, k.KeyHash, string(k.Kind), k.CreatedAt, k.ExpiresAt)
	return err
}

func (r *PGRepository) FindNewest(ctx context.Context, email string, kind Kind) (*Key, error) {
	row := r.q.QueryRowContext(ctx, `
		select id, email, key_hash, kind, created_at, expires_at, used, used_at, attempts
		from access_keys
		where email = $1 and kind = $2
		order by created_at desc
		limit 1
	`, email, string(kind))

	var (
		k      Key
		kindS  string
		usedAt sql.NullTime
	)
	err := row.Scan(&k.ID, &k.Email, &k.KeyHash, &kindS, &k.CreatedAt, &k.ExpiresAt, &k.Used, &usedAt, &k.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	k.Kind = Kind(kindS)
	if usedAt.Valid {
		t := usedAt.Time
		k.UsedAt = &t
	}
	return &k, nil
}

func (r *PGRepository) InvalidateUnused(ctx context.Context, email string, kind Kind) error {
	_, err := r.q.ExecContext(ctx, `
		update access_keys
		set used = true, used_at = now()
		where email = $1 and kind = $2 and used = false
	`, email, string(kind))
	return err
}

func (r *PGRepository) IncrementAttempts(ctx context.Context, keyID string) (int, error) {
	// Single-statement increment; a read-modify-write in Go would
	// undercount under concurrent guesses.
	row := r.q.QueryRowContext(ctx, `
		update access_keys set attempts = attempts + 1 where id = $1 returning attempts
	`, keyID)
	var attempts int
	if err := row.Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return attempts, nil
}

func (r *PGRepository) MarkUsed(ctx context.Context, keyID string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		update access_keys set used = true, used_at = now() where id = $1 and used = false
	`, keyID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
