// Package stats accumulates summary counts over parsed VCF records.
package stats

import (
	"sort"

	"github.com/gatomis/vcf-pheno/internal/vcf"
)

// Accumulator holds running counts for one parse run.
// It is not safe for concurrent use; shard and Merge instead.
type Accumulator struct {
	Total         int
	Pass          int
	SNPs          int // counted per alternate allele
	Indels        int // counted per alternate allele
	Transitions   int
	Transversions int
	ByChrom       map[string]int
	Filters       map[string]int
}

// New creates an empty accumulator.
func New() *Accumulator {
	return &Accumulator{
		ByChrom: make(map[string]int),
		Filters: make(map[string]int),
	}
}

// Add folds one record into the counts.
func (a *Accumulator) Add(v *vcf.Variant) {
	a.Total++
	a.Filters[v.Filter]++
	if v.IsPass() {
		a.Pass++
	}
	a.ByChrom[v.Chrom]++

	for _, c := range v.AlleleClasses() {
		switch c {
		case vcf.AlleleTransition:
			a.SNPs++
			a.Transitions++
		case vcf.AlleleTransversion:
			a.SNPs++
			a.Transversions++
		case vcf.AlleleIndel:
			a.Indels++
		}
	}
}

// Merge adds the counts of o into a. Merging is associative and commutative,
// so shards may be combined in any order.
func (a *Accumulator) Merge(o *Accumulator) {
	a.Total += o.Total
	a.Pass += o.Pass
	a.SNPs += o.SNPs
	a.Indels += o.Indels
	a.Transitions += o.Transitions
	a.Transversions += o.Transversions
	for k, n := range o.ByChrom {
		a.ByChrom[k] += n
	}
	for k, n := range o.Filters {
		a.Filters[k] += n
	}
}

// PassRate is the fraction of records that passed filters.
func (a *Accumulator) PassRate() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Pass) / float64(a.Total)
}

// TiTvRatio returns the transition/transversion ratio, or 0 when there are
// no transversions.
func (a *Accumulator) TiTvRatio() float64 {
	if a.Transversions == 0 {
		return 0
	}
	return float64(a.Transitions) / float64(a.Transversions)
}

// Count is one histogram bucket.
type Count struct {
	Key   string `json:"key" yaml:"key"`
	Count int    `json:"count" yaml:"count"`
}

// Summary is the read-only view of a completed run.
type Summary struct {
	Total         int      `json:"n_total" yaml:"n_total"`
	Pass          int      `json:"n_pass" yaml:"n_pass"`
	SNPs          int      `json:"snps" yaml:"snps"`
	Indels        int      `json:"indels" yaml:"indels"`
	Transitions   int      `json:"ti" yaml:"ti"`
	Transversions int      `json:"tv" yaml:"tv"`
	PassRate      float64  `json:"pass_rate" yaml:"pass_rate"`
	TiTv          *float64 `json:"ti_tv,omitempty" yaml:"ti_tv,omitempty"` // nil when there are no transversions
	ByChrom       []Count  `json:"by_chrom" yaml:"by_chrom"`
	Filters       []Count  `json:"filters" yaml:"filters"`
	SkippedLines  int      `json:"skipped_lines" yaml:"skipped_lines"`
}

// Summary derives ratios and sorted histograms from the counts.
func (a *Accumulator) Summary() Summary {
	s := Summary{
		Total:         a.Total,
		Pass:          a.Pass,
		SNPs:          a.SNPs,
		Indels:        a.Indels,
		Transitions:   a.Transitions,
		Transversions: a.Transversions,
		PassRate:      a.PassRate(),
		ByChrom:       sortedCounts(a.ByChrom),
		Filters:       sortedCounts(a.Filters),
	}
	if a.Transversions > 0 {
		r := a.TiTvRatio()
		s.TiTv = &r
	}
	return s
}

// sortedCounts orders buckets by descending count, then key.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
