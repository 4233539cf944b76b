// Package config collects runtime settings from the environment with
// development defaults. Defaults are insecure and must be overridden in
// production.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime settings for the console API.
type Config struct {
	Addr        string
	DatabaseDSN string

	// AuthSecret signs session tokens (HS256). MissionSecret keys the
	// HMAC derivations of the mission oracle; keeping them separate means
	// rotating one does not invalidate the other.
	AuthSecret    string
	MissionSecret string
	TokenTTL      time.Duration

	AccessKeyTTL      time.Duration
	AccessKeyAttempts int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	RateBurst  int
	RatePerSec int

	MigrationsDir string
}

// Load builds a Config from environment variables, falling back to
// development defaults.
func Load() *Config {
	cfg := &Config{
		Addr:              ":8080",
		DatabaseDSN:       "",
		AuthSecret:        "changeme",
		MissionSecret:     "",
		TokenTTL:          7 * 24 * time.Hour,
		AccessKeyTTL:      15 * time.Minute,
		AccessKeyAttempts: 5,
		SMTPHost:          "",
		SMTPPort:          587,
		MailFrom:          "Kryptyk Labs <noreply@kryptyklabs.example>",
		RateBurst:         20,
		RatePerSec:        10,
		MigrationsDir:     "migrations",
	}

	overlayString(&cfg.Addr, "KRYPTYK_ADDR")
	overlayString(&cfg.DatabaseDSN, "KRYPTYK_PG_DSN")
	overlayString(&cfg.AuthSecret, "KRYPTYK_AUTH_SECRET")
	overlayString(&cfg.MissionSecret, "KRYPTYK_MISSION_SECRET")
	overlayDuration(&cfg.TokenTTL, "KRYPTYK_TOKEN_TTL")
	overlayDuration(&cfg.AccessKeyTTL, "KRYPTYK_ACCESS_KEY_TTL")
	overlayInt(&cfg.AccessKeyAttempts, "KRYPTYK_ACCESS_KEY_ATTEMPTS")
	overlayString(&cfg.SMTPHost, "KRYPTYK_SMTP_HOST")
	overlayInt(&cfg.SMTPPort, "KRYPTYK_SMTP_PORT")
	overlayString(&cfg.SMTPUser, "KRYPTYK_SMTP_USER")
	overlayString(&cfg.SMTPPass, "KRYPTYK_SMTP_PASS")
	overlayString(&cfg.MailFrom, "KRYPTYK_MAIL_FROM")
	overlayInt(&cfg.RateBurst, "KRYPTYK_RATE_BURST")
	overlayInt(&cfg.RatePerSec, "KRYPTYK_RATE_PER_SEC")
	overlayString(&cfg.MigrationsDir, "KRYPTYK_MIGRATIONS_DIR")

	// The oracle falls back to the auth secret like the original console
	// did, so a single-secret deployment still works.
	if cfg.MissionSecret == "" {
		cfg.MissionSecret = cfg.AuthSecret
	}
	return cfg
}

func overlayString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overlayInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overlayDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}
