// Package prioritize scores annotated variants and orders them for review.
package prioritize

import (
	"cmp"
	"math"
	"slices"

	"github.com/gatomis/vcf-pheno/internal/annotate"
	"github.com/gatomis/vcf-pheno/internal/pheno"
	"github.com/gatomis/vcf-pheno/internal/vcf"
)

// Weights are the coefficients of the composite priority score.
type Weights struct {
	Impact    float64 `mapstructure:"impact" yaml:"impact"`
	Phenotype float64 `mapstructure:"phenotype" yaml:"phenotype"`
	Rarity    float64 `mapstructure:"rarity" yaml:"rarity"`
	UnknownAF float64 `mapstructure:"unknown_af" yaml:"unknown_af"` // AF assumed when absent
}

// DefaultWeights returns 2.0 impact, 1.5 phenotype, 1.0 rarity, with an
// unknown allele frequency treated as 0.5.
func DefaultWeights() Weights {
	return Weights{
		Impact:    2.0,
		Phenotype: 1.5,
		Rarity:    1.0,
		UnknownAF: 0.5,
	}
}

// Scored is a variant enriched with its annotation and phenotype results.
type Scored struct {
	Variant    *vcf.Variant
	Annotation *annotate.Candidate // nil when the record carries no annotation
	PhenoScore int
	PhenoMatch bool
	PanelMatch bool
	Priority   float64
}

// NewScored attaches an annotation and a phenotype match to v.
func NewScored(v *vcf.Variant, ann *annotate.Candidate, m pheno.Match) *Scored {
	return &Scored{
		Variant:    v,
		Annotation: ann,
		PhenoScore: m.Score,
		PhenoMatch: m.Phenotype,
		PanelMatch: m.Panel,
	}
}

// Gene returns the annotated gene symbol, if any.
func (s *Scored) Gene() (string, bool) {
	if s.Annotation == nil || s.Annotation.Gene == "" {
		return "", false
	}
	return s.Annotation.Gene, true
}

// ImpactRank returns the precedence of the annotated impact.
func (s *Scored) ImpactRank() int {
	return s.Annotation.Rank()
}

// Score computes the priority of s without modifying it.
// A missing or NaN allele frequency counts as w.UnknownAF.
func Score(s *Scored, w Weights) float64 {
	af := w.UnknownAF
	if s.Variant != nil && s.Variant.AF != nil && !math.IsNaN(*s.Variant.AF) {
		af = *s.Variant.AF
	}
	af = min(max(af, 0), 1)

	return w.Impact*float64(s.ImpactRank()) +
		w.Phenotype*float64(s.PhenoScore) +
		w.Rarity*(1-af)
}

// Rank sets Priority on every record and returns a new slice ordered by
// panel match, then phenotype match, then priority, all descending.
// Equal records keep their input order.
func Rank(records []*Scored, w Weights) []*Scored {
	out := slices.Clone(records)
	for _, s := range out {
		s.Priority = Score(s, w)
	}

	slices.SortStableFunc(out, func(a, b *Scored) int {
		if c := compareBool(b.PanelMatch, a.PanelMatch); c != 0 {
			return c
		}
		if c := compareBool(b.PhenoMatch, a.PhenoMatch); c != 0 {
			return c
		}
		return cmp.Compare(b.Priority, a.Priority)
	})
	return out
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
