package vcf

import "strings"

// Variant represents a single data line from a VCF file.
// Optional fields are nil when absent from the input, never zero-filled.
type Variant struct {
	Chrom  string         // Chromosome name (e.g., "12", "chr12")
	Pos    int64          // 1-based genomic position
	ID     string         // Variant identifier, "." when absent
	Ref    string         // Reference allele
	Alt    string         // Raw comma-delimited alternate alleles
	Qual   *float64       // Quality score
	Filter string         // PASS, "." or a failed filter name
	Info   map[string]any // INFO values: string, or true for flags

	RawInfo       string // INFO column as read
	SampleColumns string // FORMAT and sample columns as read, tab-joined

	// First-sample FORMAT fields.
	GT *string
	DP *float64
	AD *string

	AF *float64 // allele frequency, first INFO alias present
	MQ *float64 // mapping quality

	LineNumber int
}

// AlleleClass classifies one alternate allele against the reference.
type AlleleClass uint8

const (
	AlleleTransition AlleleClass = iota
	AlleleTransversion
	AlleleIndel
)

// IsSNP reports whether the allele is a single-base substitution.
func (c AlleleClass) IsSNP() bool {
	return c == AlleleTransition || c == AlleleTransversion
}

func (c AlleleClass) String() string {
	switch c {
	case AlleleTransition:
		return "transition"
	case AlleleTransversion:
		return "transversion"
	default:
		return "indel"
	}
}

// Alts returns the alternate alleles in input order.
func (v *Variant) Alts() []string {
	return strings.Split(v.Alt, ",")
}

// AlleleClasses classifies every alternate allele independently.
func (v *Variant) AlleleClasses() []AlleleClass {
	alts := v.Alts()
	classes := make([]AlleleClass, len(alts))
	for i, alt := range alts {
		classes[i] = ClassifyAllele(v.Ref, alt)
	}
	return classes
}

// IsSNV returns true if every alternate allele is a single-base substitution.
func (v *Variant) IsSNV() bool {
	for _, c := range v.AlleleClasses() {
		if !c.IsSNP() {
			return false
		}
	}
	return true
}

// IsPass reports whether the record passed filtering ("PASS" or unfiltered ".").
func (v *Variant) IsPass() bool {
	return v.Filter == "PASS" || v.Filter == "."
}

// HasID reports whether the record carries an identifier.
func (v *Variant) HasID() bool {
	return v.ID != "" && v.ID != "."
}

// ClassifyAllele returns the class of alt relative to ref. A single reference
// base against a single alternate base is a SNP; anything else is an indel.
// Only the lengths matter, so a "." alternate against one base is a SNP and,
// not being a purine/pyrimidine partner, a transversion.
func ClassifyAllele(ref, alt string) AlleleClass {
	if len(ref) != 1 || len(alt) != 1 {
		return AlleleIndel
	}
	if isTransition(upperBase(ref[0]), upperBase(alt[0])) {
		return AlleleTransition
	}
	return AlleleTransversion
}

// isTransition reports purine<->purine (A/G) or pyrimidine<->pyrimidine (C/T).
func isTransition(ref, alt byte) bool {
	switch ref {
	case 'A':
		return alt == 'G'
	case 'G':
		return alt == 'A'
	case 'C':
		return alt == 'T'
	case 'T':
		return alt == 'C'
	}
	return false
}

func upperBase(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
