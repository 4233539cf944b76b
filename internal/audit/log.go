package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context so mirrored
// log lines can be correlated with the request log.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// logEvent mirrors a persisted trail entry as one structured JSON line, so
// the log stream carries the same history as asset_access_logs.
func logEvent(ctx context.Context, userID, eventType, message string, meta map[string]any) {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": eventType,
	}
	if userID != "" {
		entry["user_id"] = userID
	}
	if message != "" {
		entry["message"] = message
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if len(meta) > 0 {
		fields := make(map[string]any, len(meta))
		for k, v := range meta {
			fields[k] = v
		}
		entry["fields"] = fields
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	obs.Logger().Println(string(data))
}
