package mission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JasonCodez/kryptyk-labs/internal/dbx"
)

// PGRepository stores completions in the mission_completions table.
type PGRepository struct {
	q dbx.DBTX
}

func NewPGRepository(q dbx.DBTX) *PGRepository {
	return &PGRepository{q: q}
}

var _ Repository = (*PGRepository)(nil)

func (r *PGRepository) GetSuccess(ctx context.Context, userID, missionID string) (*Completion, error) {
	row := r.q.QueryRowContext(ctx, `
		select user_id, mission_id, success, completed_at
		from mission_completions
		where user_id = $1 and mission_id = $2 and success = true
	`, userID, missionID)

	var c Completion
	if err := row.Scan(&c.UserID, &c.MissionID, &c.Success, &c.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mission: get completion: %w", err)
	}
	return &c, nil
}

func (r *PGRepository) Upsert(ctx context.Context, userID, missionID string, success bool) error {
	_, err := r.q.ExecContext(ctx, `
		insert into mission_completions (user_id, mission_id, success, completed_at)
		values ($1, $2, $3, now())
		on conflict (user_id, mission_id)
		do update set success = excluded.success, completed_at = now()
	`, userID, missionID, success)
	if err != nil {
		return fmt.Errorf("mission: upsert completion: %w", err)
	}
	return nil
}

func (r *PGRepository) CountSuccessful(ctx context.Context, userID string) (int, error) {
	row := r.q.QueryRowContext(ctx, `
		select count(*) from mission_completions where user_id = $1 and success = true
	`, userID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("mission: count completions: %w", err)
	}
	return n, nil
}
