package model

import "testing"

func TestVerdictFromScore(t *testing.T) {
	cases := []struct {
		score int
		want  Verdict
	}{
		{100, VerdictVerified},
		{70, VerdictVerified},
		{69, VerdictLikelyValid},
		{50, VerdictLikelyValid},
		{49, VerdictWeakMatch},
		{35, VerdictWeakMatch},
		{34, VerdictNoMatch},
		{0, VerdictNoMatch},
	}
	for _, tc := range cases {
		if got := VerdictFromScore(tc.score); got != tc.want {
			t.Errorf("VerdictFromScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestHasNamedVictim(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"George Retes", true},
		{"Unknown", false},
		{"unknown male", false},
		{"Multiple individuals", false},
		{"", false},
	}
	for _, tc := range cases {
		rec := &Record{VictimName: tc.name}
		if got := rec.HasNamedVictim(); got != tc.want {
			t.Errorf("HasNamedVictim(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSourceTierWeight(t *testing.T) {
	cases := []struct {
		tier SourceTier
		want int
	}{
		{TierOfficial, 4},
		{TierInvestigative, 3},
		{TierNewsSystematic, 2},
		{TierNewsAdHoc, 1},
		{SourceTier(0), 1},
		{SourceTier(9), 1},
	}
	for _, tc := range cases {
		if got := tc.tier.Weight(); got != tc.want {
			t.Errorf("Weight(%d) = %d, want %d", tc.tier, got, tc.want)
		}
	}
}

func TestSourceTierString(t *testing.T) {
	if TierOfficial.String() != "official" {
		t.Errorf("Unexpected tier name: %s", TierOfficial.String())
	}
	if SourceTier(7).String() != "unknown" {
		t.Errorf("Expected unknown for out-of-range tier, got %s", SourceTier(7).String())
	}
}
