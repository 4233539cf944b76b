// Package audit persists asset activity events and mirrors them onto the
// live console feed. Every security-relevant transition (key issuance,
// signup, login, mission outcomes, profile changes) leaves a row here.
package audit

import (
	"time"
)

// Well-known event types. Handlers may record additional types; these are
// the ones the console UI knows how to render.
const (
	EventKeyIssued       = "KEY_ISSUED"
	EventKeyVerified     = "KEY_VERIFIED"
	EventSignup          = "SIGNUP"
	EventLogin           = "LOGIN"
	EventResetRequest    = "RESET_REQUEST"
	EventResetComplete   = "RESET_COMPLETE"
	EventMissionAttempt  = "MISSION_ATTEMPT"
	EventMissionComplete = "MISSION_COMPLETE"
	EventBriefingView    = "BRIEFING_VIEW"
	EventBriefingAck     = "BRIEFING_ACK"
	EventMissionStart    = "MISSION_START"
	EventProfileUpdate   = "PROFILE_UPDATE"
)

// Event is one row of the asset access log.
type Event struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
