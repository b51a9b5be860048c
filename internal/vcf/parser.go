package vcf

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// MinColumns is the number of fixed columns (CHROM..INFO) a data line must
// carry. Shorter lines are skipped and counted, not reported as errors.
const MinColumns = 8

// DefaultMaxVariants caps the number of records read from one input.
const DefaultMaxVariants = 500000

// Allele-frequency INFO keys, tried in order.
var AFKeys = []string{"AF", "AF_POPMAX", "gnomAD_AF", "VAF"}

// Mapping-quality INFO keys, tried in order.
var MQKeys = []string{"MQ"}

// Parser reads variants from a VCF stream.
//
// Only the first sample column is interpreted; later sample columns are
// ignored. Callers needing per-sample genotypes must extend ParseLine.
type Parser struct {
	reader      *Reader
	header      *Header
	maxVariants int
	logger      *zap.Logger

	dataLines int // non-blank, non-comment lines after the header
	parsed    int
	skipped   int
	done      bool
}

// NewParser creates a new VCF parser for the given file.
// Supports plain, gzip, BGZF and zstd compressed files; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	p, err := newParser(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(src io.Reader) (*Parser, error) {
	r, err := OpenReader(src)
	if err != nil {
		return nil, err
	}
	p, err := newParser(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return p, nil
}

func newParser(r *Reader) (*Parser, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	return &Parser{
		reader: r,
		header: h,
		logger: zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for skipped-line diagnostics.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// SetMaxVariants stops parsing after n records. Zero or negative disables the cap.
func (p *Parser) SetMaxVariants(n int) {
	p.maxVariants = n
}

// Next reads the next variant.
// Returns nil, nil when there are no more variants. If data lines were
// present but none had the mandatory columns, a FormatError is returned.
func (p *Parser) Next() (*Variant, error) {
	for !p.done {
		if p.maxVariants > 0 && p.parsed >= p.maxVariants {
			p.logger.Info("variant cap reached", zap.Int("max_variants", p.maxVariants))
			p.done = true
			break
		}

		line, ok := p.reader.ReadLine()
		if !ok {
			p.done = true
			if err := p.reader.Err(); err != nil {
				p.logger.Warn("input ended early", zap.Error(err))
			}
			if p.dataLines > 0 && p.parsed == 0 {
				return nil, &FormatError{
					Line:    p.reader.LineNumber(),
					Message: fmt.Sprintf("no parsable data lines (%d seen, each needs %d columns)", p.dataLines, MinColumns),
				}
			}
			break
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p.dataLines++

		v, err := ParseLine(line)
		if err != nil {
			p.skipped++
			p.logger.Debug("skipping malformed line",
				zap.Int("line", p.reader.LineNumber()),
				zap.Error(err))
			continue
		}
		v.LineNumber = p.reader.LineNumber()
		p.parsed++
		return v, nil
	}
	return nil, nil
}

// ParseLine parses a single VCF data line into a Variant.
func ParseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < MinColumns {
		return nil, &ParseError{
			Message: fmt.Sprintf("expected at least %d columns, found %d", MinColumns, len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid position: %s", fields[1])}
	}
	if fields[0] == "" || fields[3] == "" || fields[4] == "" {
		return nil, &ParseError{Message: "empty CHROM, REF or ALT"}
	}

	v := &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   parseOptionalFloat(fields[5]),
		Filter: fields[6],
		Info:   parseInfo(fields[7]),

		RawInfo: fields[7],
	}
	if len(fields) > MinColumns {
		v.SampleColumns = strings.Join(fields[MinColumns:], "\t")
	}

	if len(fields) > firstSampleColumn && fields[8] != "" {
		parseFirstSample(v, fields[8], fields[firstSampleColumn])
	}

	v.AF = firstFloat(v.Info, AFKeys)
	v.MQ = firstFloat(v.Info, MQKeys)

	return v, nil
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) map[string]any {
	result := make(map[string]any)
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		if kv == "" {
			continue
		}
		if k, val, ok := strings.Cut(kv, "="); ok {
			result[k] = val
		} else {
			// Flag-type INFO field
			result[kv] = true
		}
	}

	return result
}

// parseFirstSample zips FORMAT keys with the first sample's values.
// Later sample columns are kept raw in Variant.SampleColumns only.
func parseFirstSample(v *Variant, format, sample string) {
	keys := strings.Split(format, ":")
	vals := strings.Split(sample, ":")
	n := min(len(keys), len(vals))

	for i := 0; i < n; i++ {
		val := vals[i]
		switch keys[i] {
		case "GT":
			v.GT = &val
		case "DP":
			v.DP = parseOptionalFloat(val)
		case "AD":
			v.AD = &val
		}
	}
}

// firstFloat returns the first alias present in info that parses as a float.
// Comma-delimited values contribute only their first element.
func firstFloat(info map[string]any, keys []string) *float64 {
	for _, k := range keys {
		raw, ok := info[k].(string)
		if !ok {
			continue
		}
		if i := strings.IndexByte(raw, ','); i >= 0 {
			raw = raw[:i]
		}
		if f := parseOptionalFloat(raw); f != nil {
			return f
		}
	}
	return nil
}

// parseOptionalFloat returns nil for ".", empty, unparsable and
// non-finite values ("nan", "inf").
func parseOptionalFloat(s string) *float64 {
	if s == "" || s == "." {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Header returns the interpreted VCF header.
func (p *Parser) Header() *Header {
	return p.header
}

// Schema returns the CSQ field schema declared in the header, or nil.
func (p *Parser) Schema() Schema {
	return p.header.Schema
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.header.SampleNames
}

// SkippedLines returns the number of data lines skipped as malformed.
func (p *Parser) SkippedLines() int {
	return p.skipped
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.reader.LineNumber()
}

// Compression returns the framing detected on the input.
func (p *Parser) Compression() Compression {
	return p.reader.Compression()
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	return p.reader.Close()
}

// ParseError describes a data line that could not be parsed.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
	}
	return "vcf parse error: " + e.Message
}

// FormatError is a structural failure of the whole input, such as a missing
// #CHROM line. Unlike ParseError it is always surfaced to the caller.
type FormatError struct {
	Line    int
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("vcf format error at line %d: %s", e.Line, e.Message)
}
