package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/dbx"
)

// PGRepository stores events in the asset_access_logs table.
type PGRepository struct {
	q dbx.DBTX
}

func NewPGRepository(q dbx.DBTX) *PGRepository {
	return &PGRepository{q: q}
}

// Append inserts one event. Meta is stored as jsonb; a nil map stores NULL.
func (r *PGRepository) Append(ctx context.Context, userID, eventType, message string, meta map[string]any) error {
	var metaJSON any
	if meta != nil {
		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("audit: marshal meta: %w", err)
		}
		metaJSON = data
	}
	_, err := r.q.ExecContext(ctx, `
		insert into asset_access_logs (user_id, event_type, message, meta, created_at)
		values ($1, $2, $3, $4, $5)
	`, userID, eventType, message, metaJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// ListRecent returns the newest events for a user, newest first.
func (r *PGRepository) ListRecent(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := r.q.QueryContext(ctx, `
		select id, user_id, event_type, coalesce(message, ''), meta, created_at
		from asset_access_logs
		where user_id = $1
		order by created_at desc
		limit $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.Message, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
