package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/accesskey"
	"github.com/JasonCodez/kryptyk-labs/internal/asset"
	"github.com/JasonCodez/kryptyk-labs/internal/auth"
)

type userPayload struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	DisplayName          string     `json:"display_name"`
	ClearanceLevel       string     `json:"clearance_level"`
	ClearanceProgressPct int        `json:"clearance_progress_pct"`
	Sector               string     `json:"sector"`
	Motto                string     `json:"motto"`
	CreatedAt            time.Time  `json:"created_at"`
	LastLoginAt          *time.Time `json:"last_login_at,omitempty"`
}

func toUserPayload(u *asset.User) userPayload {
	return userPayload{
		ID:                   u.ID,
		Email:                u.Email,
		DisplayName:          u.DisplayName,
		ClearanceLevel:       u.ClearanceLevel,
		ClearanceProgressPct: u.ClearanceProgressPct,
		Sector:               u.Sector(),
		Motto:                u.Motto,
		CreatedAt:            u.CreatedAt,
		LastLoginAt:          u.LastLoginAt,
	}
}

// writeGateError maps service errors onto HTTP statuses. Key failures all
// collapse into one message so a caller cannot tell a wrong key from an
// expired or exhausted one.
func writeGateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, asset.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, asset.ErrBadCredentials):
		writeError(w, r, http.StatusUnauthorized, "Incorrect email or password.")
	case errors.Is(err, asset.ErrBadSecurityAnswer):
		writeError(w, r, http.StatusBadRequest, "Security answer does not match.")
	case errors.Is(err, asset.ErrAlreadyProvisioned):
		writeError(w, r, http.StatusForbidden, "This asset is already provisioned. Use the login console.")
	case errors.Is(err, asset.ErrNotProvisioned):
		writeError(w, r, http.StatusForbidden, "Signup was never completed for this asset.")
	case errors.Is(err, asset.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "No such asset on record.")
	case errors.Is(err, asset.ErrConflict):
		writeError(w, r, http.StatusConflict, "That designation is taken.")
	case errors.Is(err, accesskey.ErrMismatch),
		errors.Is(err, accesskey.ErrUsed),
		errors.Is(err, accesskey.ErrExpired),
		errors.Is(err, accesskey.ErrAttemptsExhausted),
		errors.Is(err, accesskey.ErrNotFound):
		writeError(w, r, http.StatusBadRequest, "Invalid or expired access key.")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

type requestAccessRequest struct {
	Email string `json:"email"`
}

type requestAccessResponse struct {
	OK        bool      `json:"ok"`
	Message   string    `json:"message"`
	CipherKey string    `json:"cipher_key"`
	Shift     int       `json:"shift"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req requestAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	grant, err := a.assets.RequestAccess(r.Context(), req.Email)
	if err != nil {
		writeGateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestAccessResponse{
		OK:        true,
		Message:   "Access key generated and dispatched.",
		CipherKey: grant.CipherKey,
		Shift:     grant.Shift,
		ExpiresAt: grant.ExpiresAt,
	})
}

type verifyKeyRequest struct {
	Email string `json:"email"`
	Key   string `json:"key"`
}

func (a *API) handleVerifyKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req verifyKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.assets.VerifyKey(r.Context(), req.Email, req.Key); err != nil {
		writeGateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type completeSignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	DisplayName      string `json:"display_name"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

type sessionResponse struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    userPayload `json:"user"`
}

func (a *API) handleCompleteSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req completeSignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, u, err := a.assets.CompleteSignup(r.Context(),
		req.Email, req.Password, req.DisplayName, req.SecurityQuestion, req.SecurityAnswer)
	if err != nil {
		writeGateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		OK:      true,
		Message: "Asset provisioned. Welcome to the lab.",
		Token:   token,
		User:    toUserPayload(u),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, u, err := a.assets.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeGateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		OK:      true,
		Message: "Session established.",
		Token:   token,
		User:    toUserPayload(u),
	})
}

type requestResetRequest struct {
	Email string `json:"email"`
}

type requestResetResponse struct {
	OK               bool   `json:"ok"`
	SecurityQuestion string `json:"security_question"`
	Message          string `json:"message"`
}

func (a *API) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req requestResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	question, err := a.assets.RequestReset(r.Context(), req.Email)
	if err != nil {
		writeGateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestResetResponse{
		OK:               true,
		SecurityQuestion: question,
		Message:          "If this asset exists in the lab, answer the question to proceed.",
	})
}

type verifyResetAnswerRequest struct {
	Email  string `json:"email"`
	Answer string `json:"answer"`
}

func (a *API) handleVerifyResetAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req verifyResetAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resetKey, err := a.assets.VerifyResetAnswer(r.Context(), req.Email, req.Answer)
	if err != nil {
		writeGateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"reset_key": resetKey,
	})
}

type completeResetRequest struct {
	Email    string `json:"email"`
	Key      string `json:"key"`
	Password string `json:"password"`
}

func (a *API) handleCompleteReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req completeResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.assets.CompleteReset(r.Context(), req.Email, req.Key, req.Password); err != nil {
		writeGateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Clearance phrase rotated. Log in with the new phrase.",
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": toUserPayload(u),
	})
}
