package annotate

import (
	"strconv"
	"strings"

	"github.com/gatomis/vcf-pheno/internal/vcf"
)

// INFO keys carrying annotation payloads.
const (
	KeyANN = "ANN" // SnpEff, fixed positional layout
	KeyCSQ = "CSQ" // VEP, layout declared in the header
)

// Layout identifies which annotation convention a record uses.
type Layout int

const (
	LayoutNone Layout = iota
	LayoutFixed
	LayoutDynamic
)

func (l Layout) String() string {
	switch l {
	case LayoutFixed:
		return KeyANN
	case LayoutDynamic:
		return KeyCSQ
	default:
		return "none"
	}
}

// SnpEff ANN sub-field positions.
const (
	annAllele      = 0
	annAnnotation  = 1
	annImpact      = 2
	annGeneName    = 3
	annHGVSc       = 9
	annHGVSp       = 10
	annFieldsCount = 16
)

// resolver turns one raw annotation entry into a Candidate.
type resolver interface {
	resolve(entry string) Candidate
}

// fixedLayout reads SnpEff ANN entries by position.
type fixedLayout struct{}

func (fixedLayout) resolve(entry string) Candidate {
	fields := strings.Split(entry, "|")
	for len(fields) < annFieldsCount {
		fields = append(fields, "")
	}
	return Candidate{
		Allele:      fields[annAllele],
		Consequence: fields[annAnnotation],
		Impact:      fields[annImpact],
		Gene:        fields[annGeneName],
		HGVSc:       fields[annHGVSc],
		HGVSp:       fields[annHGVSp],
	}
}

// dynamicLayout reads VEP CSQ entries by the names declared in the header.
// Without a schema no names are known and every lookup is empty.
type dynamicLayout struct {
	names []string
	index map[string]int
}

func newDynamicLayout(schema vcf.Schema) *dynamicLayout {
	d := &dynamicLayout{names: schema, index: make(map[string]int, len(schema))}
	for i, name := range schema {
		// Later duplicates win, as a name->value zip would.
		d.index[name] = i
	}
	return d
}

func (d *dynamicLayout) resolve(entry string) Candidate {
	vals := strings.Split(entry, "|")
	consequence := d.value(vals, "Consequence")
	if consequence == "" {
		consequence = d.value(vals, "CONSEQUENCE")
	}
	return Candidate{
		Allele:      d.value(vals, "Allele"),
		Consequence: consequence,
		Impact:      d.value(vals, "IMPACT"),
		Gene:        d.value(vals, "SYMBOL"),
		HGVSc:       d.value(vals, "HGVSc"),
		HGVSp:       d.value(vals, "HGVSp"),
	}
}

// value looks up a named field. Values beyond the declared names are
// addressable by the positional key "F<i>"; missing values are empty.
func (d *dynamicLayout) value(vals []string, name string) string {
	if i, ok := d.index[name]; ok {
		if i < len(vals) {
			return vals[i]
		}
		return ""
	}
	if rest, ok := strings.CutPrefix(name, "F"); ok {
		if i, err := strconv.Atoi(rest); err == nil && i >= len(d.names) && i < len(vals) {
			return vals[i]
		}
	}
	return ""
}

// Extractor selects the single most severe annotation of a record.
// It is immutable and safe for concurrent use.
type Extractor struct {
	fixed   fixedLayout
	dynamic *dynamicLayout
}

// NewExtractor creates an extractor for a stream whose header declared
// schema (nil when no CSQ declaration was present).
func NewExtractor(schema vcf.Schema) *Extractor {
	return &Extractor{dynamic: newDynamicLayout(schema)}
}

// Layout reports which convention applies to info and the raw payload.
// ANN takes precedence over CSQ when both are present.
func (e *Extractor) Layout(info map[string]any) (Layout, string) {
	if raw, ok := info[KeyANN]; ok {
		s, _ := raw.(string)
		return LayoutFixed, s
	}
	if raw, ok := info[KeyCSQ]; ok {
		s, _ := raw.(string)
		return LayoutDynamic, s
	}
	return LayoutNone, ""
}

// Extract returns the highest-impact candidate, or nil when the record
// carries no annotation. Among equal impacts the first entry wins.
func (e *Extractor) Extract(info map[string]any) *Candidate {
	layout, payload := e.Layout(info)
	if payload == "" {
		return nil
	}

	var r resolver
	switch layout {
	case LayoutFixed:
		r = e.fixed
	case LayoutDynamic:
		r = e.dynamic
	default:
		return nil
	}

	var best *Candidate
	bestRank := -1
	for _, entry := range strings.Split(payload, ",") {
		c := r.resolve(entry)
		if rank := ImpactRank(c.Impact); rank > bestRank {
			bestRank = rank
			best = &c
		}
	}
	return best
}

// ExtractVariant is Extract applied to a parsed record.
func (e *Extractor) ExtractVariant(v *vcf.Variant) *Candidate {
	return e.Extract(v.Info)
}
