package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/dbx"
	"github.com/JasonCodez/kryptyk-labs/internal/obs"
	"github.com/JasonCodez/kryptyk-labs/internal/stream"
)

// Recorder writes events to the database and mirrors each persisted one
// onto the live feed and as a structured JSON log line. Record is
// best-effort: an audit failure must never fail the operation it
// describes. RecordTx participates in the caller's transaction and does
// return its error, so a rolled-back operation leaves no trace in the
// table (the mirrors still fire; the table is the durable trail).
type Recorder struct {
	db   *sql.DB
	feed *stream.Stream
}

func NewRecorder(db *sql.DB, feed *stream.Stream) *Recorder {
	return &Recorder{db: db, feed: feed}
}

func (r *Recorder) Record(ctx context.Context, userID, eventType, message string, meta map[string]any) {
	if err := NewPGRepository(r.db).Append(ctx, userID, eventType, message, meta); err != nil {
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339),
			"level": "warn",
			"msg":   "audit append failed",
			"event": eventType,
			"error": err.Error(),
		})
		return
	}
	logEvent(ctx, userID, eventType, message, meta)
	r.publish(userID, eventType, message)
}

func (r *Recorder) RecordTx(ctx context.Context, q dbx.DBTX, userID, eventType, message string, meta map[string]any) error {
	if err := NewPGRepository(q).Append(ctx, userID, eventType, message, meta); err != nil {
		return err
	}
	logEvent(ctx, userID, eventType, message, meta)
	r.publish(userID, eventType, message)
	return nil
}

func (r *Recorder) publish(userID, eventType, message string) {
	if r.feed == nil {
		return
	}
	r.feed.Publish(stream.Event{
		Kind:      eventType,
		UserID:    userID,
		Channel:   r.feed.ChannelForID(userID),
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// Recent exposes the user's latest log lines for the profile view.
func (r *Recorder) Recent(ctx context.Context, userID string, limit int) ([]Event, error) {
	return NewPGRepository(r.db).ListRecent(ctx, userID, limit)
}
