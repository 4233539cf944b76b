// Package httpapi is the HTTP surface of the lab console: the signup gate,
// the mission endpoints, the profile view, and the live event stream.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/JasonCodez/kryptyk-labs/internal/asset"
	"github.com/JasonCodez/kryptyk-labs/internal/audit"
	"github.com/JasonCodez/kryptyk-labs/internal/auth"
	"github.com/JasonCodez/kryptyk-labs/internal/mission"
	"github.com/JasonCodez/kryptyk-labs/internal/obs"
	"github.com/JasonCodez/kryptyk-labs/internal/stream"
)

// ReadyProbe reports whether the API can serve traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API wires handlers onto a mux and owns the middleware chain.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	assets   *asset.Service
	missions *mission.Service
	tokens   *auth.Service
	log      *audit.Recorder
	feed     *stream.Stream

	rateBurst  int
	ratePerSec int
}

// Option configures the API.
type Option func(*API)

// WithRateLimit sets the per-IP token bucket parameters.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		a.rateBurst = burst
		a.ratePerSec = perSecond
	}
}

func New(rp ReadyProbe, assets *asset.Service, missions *mission.Service, tokens *auth.Service, log *audit.Recorder, feed *stream.Stream, version string, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		assets:     assets,
		missions:   missions,
		tokens:     tokens,
		log:        log,
		feed:       feed,
		rateBurst:  20,
		ratePerSec: 10,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/api/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// Signup gate + sessions
	a.mux.HandleFunc("/api/auth/request-access", a.handleRequestAccess)
	a.mux.HandleFunc("/api/auth/verify-key", a.handleVerifyKey)
	a.mux.HandleFunc("/api/auth/complete-signup", a.handleCompleteSignup)
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/request-reset", a.handleRequestReset)
	a.mux.HandleFunc("/api/auth/verify-reset-answer", a.handleVerifyResetAnswer)
	a.mux.HandleFunc("/api/auth/complete-reset", a.handleCompleteReset)
	a.mux.HandleFunc("/api/auth/me", a.handleMe)

	// Missions
	a.mux.HandleFunc("/api/missions/status", a.handleMissionStatus)
	a.mux.HandleFunc("/api/missions/starter-protocol", a.handleStarterProtocol)
	a.mux.HandleFunc("/api/missions/initiate-001-packet", a.handleInitiate001Packet)
	a.mux.HandleFunc("/api/missions/progress", a.handleMissionProgress)
	a.mux.HandleFunc("/api/missions/submit", a.handleMissionSubmit)
	a.mux.HandleFunc("/api/missions/log", a.handleMissionLog)

	// Profile
	a.mux.HandleFunc("/api/profile/summary", a.handleProfileSummary)
	a.mux.HandleFunc("/api/profile/settings", a.handleProfileSettings)

	// Live console feed
	a.mux.HandleFunc("/api/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
