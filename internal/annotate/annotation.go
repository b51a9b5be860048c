// Package annotate selects the most severe functional annotation carried in
// a variant's INFO field, from either SnpEff ANN or VEP CSQ payloads.
package annotate

// Impact levels for variant consequences.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Candidate is one entry of a multi-annotation payload.
// Empty strings mean the entry did not carry the field.
type Candidate struct {
	Allele      string // Alternate allele the entry describes
	Consequence string // SO consequence term(s)
	Impact      string // HIGH, MODERATE, LOW, MODIFIER, or as read
	Gene        string // Gene symbol
	HGVSc       string // HGVS coding DNA notation (e.g., "c.34G>T")
	HGVSp       string // HGVS protein notation (e.g., "p.Gly12Cys")
}

// Rank returns the precedence of the candidate's impact.
func (c *Candidate) Rank() int {
	if c == nil {
		return 0
	}
	return ImpactRank(c.Impact)
}

// ImpactRank returns numeric rank for impact comparison (higher = more severe).
// Unrecognized or empty impacts rank with MODIFIER.
func ImpactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 3
	case ImpactModerate:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}
