// Package clearance is the single place the rank thresholds live. The stored
// clearance on a user row is a cache of ForCount; it must never be edited by
// any other rule.
package clearance

import (
	"math"
	"strconv"
	"strings"
)

// Tier labels, lowest to highest.
const (
	TierInitiate  = "INITIATE"
	TierOperative = "OPERATIVE"
	TierArchivist = "ARCHIVIST"
	TierAdmin     = "ADMIN"
)

// Cumulative successful-mission thresholds for each rank-up.
const (
	operativeAt = 10
	archivistAt = 30
	adminAt     = 60
)

// Level is the computed clearance state for a successful-mission count.
type Level struct {
	Tier        string
	Sublevel    int // missions completed within the current tier
	ProgressPct int // progress toward the next tier, 0..100
}

// Label renders the display form stored on the user row, e.g. "OPERATIVE-3".
func (l Level) Label() string {
	return l.Tier + "-" + strconv.Itoa(l.Sublevel)
}

// ForCount maps a cumulative successful-mission count to a clearance level.
// Total: negative counts clamp to zero, and there is no upper bound.
func ForCount(n int) Level {
	if n < 0 {
		n = 0
	}
	switch {
	case n >= adminAt:
		return Level{Tier: TierAdmin, Sublevel: n - adminAt, ProgressPct: 100}
	case n >= archivistAt:
		return Level{Tier: TierArchivist, Sublevel: n - archivistAt, ProgressPct: pct(n, archivistAt, adminAt)}
	case n >= operativeAt:
		return Level{Tier: TierOperative, Sublevel: n - operativeAt, ProgressPct: pct(n, operativeAt, archivistAt)}
	default:
		return Level{Tier: TierInitiate, Sublevel: n, ProgressPct: pct(n, 0, operativeAt)}
	}
}

// Target describes the next rank-up from a given count.
type Target struct {
	NextTier      string // empty at the ceiling
	NextThreshold int    // zero at the ceiling
	Remaining     int
}

// NextTarget reports the next tier and how many successful missions remain to
// reach it. At the ceiling all fields are zero values except Remaining=0.
func NextTarget(n int) Target {
	if n < 0 {
		n = 0
	}
	switch {
	case n >= adminAt:
		return Target{}
	case n >= archivistAt:
		return Target{NextTier: TierAdmin, NextThreshold: adminAt, Remaining: adminAt - n}
	case n >= operativeAt:
		return Target{NextTier: TierArchivist, NextThreshold: archivistAt, Remaining: archivistAt - n}
	default:
		return Target{NextTier: TierOperative, NextThreshold: operativeAt, Remaining: operativeAt - n}
	}
}

// Normalize maps a stored clearance value to its bare tier. Older rows used
// INITIATED as the lowest label; strip any "-n" sublevel suffix.
func Normalize(stored string) string {
	raw := strings.ToUpper(strings.TrimSpace(stored))
	if raw == "" {
		return TierInitiate
	}
	base, _, _ := strings.Cut(raw, "-")
	if base == "" || base == "INITIATED" {
		return TierInitiate
	}
	return base
}

func pct(n, start, end int) int {
	span := end - start
	if span <= 0 {
		return 0
	}
	p := int(math.Round(float64(n-start) / float64(span) * 100))
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}
