package clearance

import "testing"

func TestForCount(t *testing.T) {
	cases := []struct {
		n        int
		tier     string
		progress int
	}{
		{0, TierInitiate, 0},
		{5, TierInitiate, 50},
		{9, TierInitiate, 90},
		{10, TierOperative, 0},
		{20, TierOperative, 50},
		{29, TierOperative, 95},
		{30, TierArchivist, 0},
		{59, TierArchivist, 97},
		{60, TierAdmin, 100},
		{1000, TierAdmin, 100},
		{-3, TierInitiate, 0},
	}
	for _, tc := range cases {
		got := ForCount(tc.n)
		if got.Tier != tc.tier {
			t.Errorf("ForCount(%d).Tier = %s, want %s", tc.n, got.Tier, tc.tier)
		}
		if got.ProgressPct != tc.progress {
			t.Errorf("ForCount(%d).ProgressPct = %d, want %d", tc.n, got.ProgressPct, tc.progress)
		}
		if got.ProgressPct < 0 || got.ProgressPct > 100 {
			t.Errorf("ForCount(%d) progress out of range: %d", tc.n, got.ProgressPct)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := ForCount(5).Label(); got != "INITIATE-5" {
		t.Fatalf("Label = %s", got)
	}
	if got := ForCount(12).Label(); got != "OPERATIVE-2" {
		t.Fatalf("Label = %s", got)
	}
	if got := ForCount(60).Label(); got != "ADMIN-0" {
		t.Fatalf("Label = %s", got)
	}
}

func TestNextTarget(t *testing.T) {
	if got := NextTarget(0); got.NextTier != TierOperative || got.Remaining != 10 {
		t.Fatalf("NextTarget(0) = %+v", got)
	}
	if got := NextTarget(29); got.NextTier != TierArchivist || got.Remaining != 1 {
		t.Fatalf("NextTarget(29) = %+v", got)
	}
	if got := NextTarget(45); got.NextTier != TierAdmin || got.NextThreshold != 60 || got.Remaining != 15 {
		t.Fatalf("NextTarget(45) = %+v", got)
	}
	if got := NextTarget(61); got.NextTier != "" || got.Remaining != 0 {
		t.Fatalf("NextTarget(61) = %+v", got)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":            TierInitiate,
		"INITIATED":   TierInitiate,
		"initiate-5":  TierInitiate,
		"OPERATIVE-0": TierOperative,
		"ARCHIVIST":   TierArchivist,
		"admin-12":    TierAdmin,
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %s, want %s", in, got, want)
		}
	}
}
