package annotate

import "testing"

func TestImpactRank(t *testing.T) {
	tests := []struct {
		impact string
		want   int
	}{
		{ImpactHigh, 3},
		{ImpactModerate, 2},
		{ImpactLow, 1},
		{ImpactModifier, 0},
		{"", 0},
		{"high", 0},
		{"SEVERE", 0},
	}
	for _, tt := range tests {
		t.Run(tt.impact, func(t *testing.T) {
			if got := ImpactRank(tt.impact); got != tt.want {
				t.Errorf("ImpactRank(%q) = %d, want %d", tt.impact, got, tt.want)
			}
		})
	}
}

func TestCandidate_RankNil(t *testing.T) {
	var c *Candidate
	if got := c.Rank(); got != 0 {
		t.Errorf("nil Candidate Rank() = %d, want 0", got)
	}
}
