package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/audit"
	"github.com/JasonCodez/kryptyk-labs/internal/auth"
	"github.com/JasonCodez/kryptyk-labs/internal/mission"
)

func (a *API) handleMissionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	missionID := strings.TrimSpace(r.URL.Query().Get("mission_id"))
	if missionID == "" {
		writeError(w, r, http.StatusBadRequest, "mission_id is required")
		return
	}
	if _, found := mission.Lookup(missionID); !found {
		writeError(w, r, http.StatusBadRequest, "unknown mission")
		return
	}

	completed, completedAt, err := a.missions.Status(r.Context(), userID, missionID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"mission_id":   missionID,
		"completed":    completed,
		"completed_at": completedAt,
	})
}

func (a *API) handleStarterProtocol(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	beacon, err := a.missions.StarterProtocol(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"mission_id": mission.StarterProtocolID,
		"beacon":     beacon,
	})
}

func (a *API) handleInitiate001Packet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	pkt, err := a.missions.Initiate001Packet(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"mission_id": mission.Initiate001ID,
		"packet":     pkt,
	})
}

func (a *API) handleMissionProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	p, err := a.missions.Progress(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                     true,
		"successful_missions":    p.SuccessfulMissions,
		"clearance_level":        p.Level.Label(),
		"clearance_progress_pct": p.Level.ProgressPct,
		"next_tier":              p.Target.NextTier,
		"next_threshold":         p.Target.NextThreshold,
		"remaining":              p.Target.Remaining,
	})
}

type missionSubmitRequest struct {
	MissionID string `json:"mission_id"`
	Answer    string `json:"answer"`
}

type missionSubmitResponse struct {
	OK                   bool       `json:"ok"`
	MissionID            string     `json:"mission_id"`
	Correct              bool       `json:"correct"`
	AlreadyCompleted     bool       `json:"already_completed,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	SuccessfulMissions   int        `json:"successful_missions"`
	ClearanceLevel       string     `json:"clearance_level"`
	ClearanceProgressPct int        `json:"clearance_progress_pct"`
	RankedUp             bool       `json:"ranked_up"`
	NextTier             string     `json:"next_tier"`
	NextThreshold        int        `json:"next_threshold"`
	Remaining            int        `json:"remaining"`
}

func (a *API) handleMissionSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req missionSubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out, err := a.missions.Submit(r.Context(), userID, strings.TrimSpace(req.MissionID), req.Answer)
	if err != nil {
		if errors.Is(err, mission.ErrUnknownMission) {
			writeError(w, r, http.StatusBadRequest, "unknown mission")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if !out.Correct {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":         true,
			"mission_id": out.MissionID,
			"correct":    false,
			"message":    out.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, missionSubmitResponse{
		OK:                   true,
		MissionID:            out.MissionID,
		Correct:              true,
		AlreadyCompleted:     out.AlreadyCompleted,
		CompletedAt:          out.CompletedAt,
		SuccessfulMissions:   out.SuccessfulMissions,
		ClearanceLevel:       out.Level.Label(),
		ClearanceProgressPct: out.Level.ProgressPct,
		RankedUp:             out.RankedUp,
		NextTier:             out.Target.NextTier,
		NextThreshold:        out.Target.NextThreshold,
		Remaining:            out.Target.Remaining,
	})
}

type missionLogRequest struct {
	EventType string `json:"event_type"`
	MissionID string `json:"mission_id"`
	Title     string `json:"title"`
}

// logMessages is the vocabulary the console may write into the audit
// trail. Anything else is rejected so the trail stays server-shaped.
var logMessages = map[string]string{
	audit.EventBriefingView: "Viewed briefing: ",
	audit.EventBriefingAck:  "Acknowledged briefing: ",
	audit.EventMissionStart: "Mission started: ",
}

func (a *API) handleMissionLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req missionLogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	eventType := strings.TrimSpace(req.EventType)
	prefix, allowed := logMessages[eventType]
	if !allowed {
		writeError(w, r, http.StatusBadRequest, "unsupported event_type")
		return
	}
	missionID := strings.TrimSpace(req.MissionID)
	if missionID == "" {
		writeError(w, r, http.StatusBadRequest, "mission_id is required")
		return
	}
	label := strings.TrimSpace(req.Title)
	if def, found := mission.Lookup(missionID); found {
		label = def.Title
	}
	if label == "" {
		label = missionID
	}

	a.log.Record(r.Context(), userID, eventType, prefix+label,
		map[string]any{"mission_id": missionID, "title": label})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
