package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JasonCodez/kryptyk-labs/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// The gate endpoints are public by definition; everything else needs a
// session token.
var publicPaths = []string{
	"/api/auth/request-access",
	"/api/auth/verify-key",
	"/api/auth/complete-signup",
	"/api/auth/login",
	"/api/auth/request-reset",
	"/api/auth/verify-reset-answer",
	"/api/auth/complete-reset",
	"/healthz",
	"/readyz",
	"/metrics",
	"/openapi.yaml",
	"/api/info",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		// The clearance claim rides along for display only; nothing
		// downstream may authorize on it.
		ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{
			UserID:    claims.Subject,
			Email:     claims.Email,
			Clearance: claims.Clearance,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
