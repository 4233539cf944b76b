package httpapi

import (
	"net/http"
	"strings"

	"github.com/JasonCodez/kryptyk-labs/internal/audit"
	"github.com/JasonCodez/kryptyk-labs/internal/auth"
)

type profilePayload struct {
	userPayload
	XP                int     `json:"xp"`
	MissionsCompleted int     `json:"missions_completed"`
	ProfileImageURL   *string `json:"profile_image_url"`
}

func (a *API) handleProfileSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	u, err := a.assets.Me(r.Context(), userID)
	if err != nil {
		writeGateError(w, r, err)
		return
	}
	progress, err := a.missions.Progress(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	logs, err := a.log.Recent(r.Context(), userID, 25)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if logs == nil {
		logs = []audit.Event{}
	}

	payload := profilePayload{
		userPayload:       toUserPayload(u),
		XP:                progress.SuccessfulMissions * 100,
		MissionsCompleted: progress.SuccessfulMissions,
	}
	// Progress just recomputed clearance from the completion count; prefer
	// that over whatever the row held when it was read.
	payload.ClearanceLevel = progress.Level.Label()
	payload.ClearanceProgressPct = progress.Level.ProgressPct

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"profile": payload,
		"logs":    logs,
	})
}

type profileSettingsRequest struct {
	DisplayName *string `json:"display_name"`
	Motto       *string `json:"motto"`
}

func (a *API) handleProfileSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req profileSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.DisplayName != nil {
		trimmed := strings.TrimSpace(*req.DisplayName)
		if trimmed == "" {
			writeError(w, r, http.StatusBadRequest, "display_name cannot be blank")
			return
		}
		req.DisplayName = &trimmed
	}

	if err := a.assets.UpdateSettings(r.Context(), userID, req.DisplayName, req.Motto); err != nil {
		writeGateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
