package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %s", cfg.Addr)
	}
	if cfg.AccessKeyTTL != 15*time.Minute {
		t.Fatalf("AccessKeyTTL = %s", cfg.AccessKeyTTL)
	}
	if cfg.AccessKeyAttempts != 5 {
		t.Fatalf("AccessKeyAttempts = %d", cfg.AccessKeyAttempts)
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Fatalf("TokenTTL = %s", cfg.TokenTTL)
	}
	if cfg.MissionSecret != cfg.AuthSecret {
		t.Fatalf("MissionSecret should fall back to AuthSecret")
	}
}

func TestLoadOverlay(t *testing.T) {
	t.Setenv("KRYPTYK_ADDR", ":9090")
	t.Setenv("KRYPTYK_ACCESS_KEY_TTL", "5m")
	t.Setenv("KRYPTYK_ACCESS_KEY_ATTEMPTS", "3")
	t.Setenv("KRYPTYK_MISSION_SECRET", "oracle-secret")

	cfg := Load()
	if cfg.Addr != ":9090" {
		t.Fatalf("Addr = %s", cfg.Addr)
	}
	if cfg.AccessKeyTTL != 5*time.Minute {
		t.Fatalf("AccessKeyTTL = %s", cfg.AccessKeyTTL)
	}
	if cfg.AccessKeyAttempts != 3 {
		t.Fatalf("AccessKeyAttempts = %d", cfg.AccessKeyAttempts)
	}
	if cfg.MissionSecret != "oracle-secret" {
		t.Fatalf("MissionSecret = %s", cfg.MissionSecret)
	}
}

func TestLoadIgnoresInvalidOverlay(t *testing.T) {
	t.Setenv("KRYPTYK_ACCESS_KEY_TTL", "not-a-duration")
	t.Setenv("KRYPTYK_RATE_BURST", "many")

	cfg := Load()
	if cfg.AccessKeyTTL != 15*time.Minute {
		t.Fatalf("AccessKeyTTL = %s", cfg.AccessKeyTTL)
	}
	if cfg.RateBurst != 20 {
		t.Fatalf("RateBurst = %d", cfg.RateBurst)
	}
}
