package vcf

import (
	"strings"
)

const (
	metaPrefix         = "##"
	columnHeaderPrefix = "#CHROM"
	schemaLinePrefix   = "##INFO=<ID=CSQ"
	schemaFormatClause = "Format:"

	// firstSampleColumn is the 0-based index of the first sample column.
	firstSampleColumn = 9
)

// Schema holds the ordered CSQ sub-field names declared in the header.
// A nil Schema means the header declared none.
type Schema []string

// Header is the interpreted VCF meta-information and column header.
type Header struct {
	Lines       []string // raw ## lines followed by the #CHROM line
	Schema      Schema
	SampleNames []string
}

// ReadHeader consumes meta lines up to and including the #CHROM line.
// A data line before #CHROM, or a stream without one, is a FormatError.
func ReadHeader(r *Reader) (*Header, error) {
	h := &Header{}
	for {
		line, ok := r.ReadLine()
		if !ok {
			return nil, &FormatError{
				Line:    r.LineNumber(),
				Message: "no #CHROM header line found",
			}
		}

		switch {
		case strings.HasPrefix(line, metaPrefix):
			h.Lines = append(h.Lines, line)
			if h.Schema == nil && strings.HasPrefix(line, schemaLinePrefix) {
				if schema, ok := ParseSchemaLine(line); ok {
					h.Schema = schema
				}
			}
		case strings.HasPrefix(line, columnHeaderPrefix):
			h.Lines = append(h.Lines, line)
			h.SampleNames = parseSampleNames(line)
			return h, nil
		case strings.HasPrefix(line, "#"), line == "":
			continue
		default:
			return nil, &FormatError{
				Line:    r.LineNumber(),
				Message: "expected #CHROM header line before data",
			}
		}
	}
}

// ParseSchemaLine extracts the pipe-delimited field list from the
// "Format:" clause of a CSQ INFO declaration.
func ParseSchemaLine(line string) (Schema, bool) {
	i := strings.Index(line, schemaFormatClause)
	if i < 0 {
		return nil, false
	}
	rest := strings.TrimLeft(line[i+len(schemaFormatClause):], " \t")
	if end := strings.IndexAny(rest, "\">"); end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return nil, false
	}

	names := strings.Split(rest, "|")
	for i, n := range names {
		names[i] = strings.TrimSpace(n)
	}
	return Schema(names), true
}

// parseSampleNames returns the tokens after the FORMAT column.
// Fewer than nine columns yields no samples.
func parseSampleNames(line string) []string {
	fields := strings.Split(line, "\t")
	if len(fields) <= firstSampleColumn {
		return nil
	}
	return fields[firstSampleColumn:]
}
