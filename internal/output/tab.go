// Package output renders ranked variants and run statistics.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/gatomis/vcf-pheno/internal/duckdb"
	"github.com/gatomis/vcf-pheno/internal/prioritize"
)

// Columns written by TabWriter, in order.
var tabColumns = []string{
	"#RANK",
	"CHROM",
	"POS",
	"ID",
	"REF",
	"ALT",
	"QUAL",
	"FILTER",
	"GENE",
	"CONSEQUENCE",
	"IMPACT",
	"HGVSc",
	"HGVSp",
	"AF",
	"DP",
	"MQ",
	"GT",
	"PHENO_SCORE",
	"PHENO_MATCH",
	"PANEL_MATCH",
	"PRIORITY_SCORE",
}

// TabWriter writes ranked variants in tab-delimited format.
// Absent values are written as "-".
type TabWriter struct {
	w    *bufio.Writer
	rank int
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tabColumns, "\t") + "\n")
	return err
}

// Write writes the next scored record. Ranks are assigned in call order.
func (tw *TabWriter) Write(s *prioritize.Scored) error {
	tw.rank++
	var gene, consequence, impact, hgvsc, hgvsp string
	if a := s.Annotation; a != nil {
		gene, consequence, impact, hgvsc, hgvsp = a.Gene, a.Consequence, a.Impact, a.HGVSc, a.HGVSp
	}
	v := s.Variant

	return tw.writeValues([]string{
		strconv.Itoa(tw.rank),
		v.Chrom,
		strconv.FormatInt(v.Pos, 10),
		v.ID,
		v.Ref,
		v.Alt,
		formatFloat(v.Qual),
		v.Filter,
		orDash(gene),
		orDash(consequence),
		orDash(impact),
		orDash(hgvsc),
		orDash(hgvsp),
		formatFloat(v.AF),
		formatFloat(v.DP),
		formatFloat(v.MQ),
		formatString(v.GT),
		strconv.Itoa(s.PhenoScore),
		strconv.FormatBool(s.PhenoMatch),
		strconv.FormatBool(s.PanelMatch),
		formatPriority(s.Priority),
	})
}

// WriteStored writes a row read back from the result store, keeping its
// stored rank.
func (tw *TabWriter) WriteStored(r duckdb.RankedRow) error {
	return tw.writeValues([]string{
		strconv.FormatInt(r.Rank, 10),
		r.Chrom,
		strconv.FormatInt(r.Pos, 10),
		r.ID,
		r.Ref,
		r.Alt,
		formatFloat(r.Qual),
		r.Filter,
		orDash(r.Gene),
		orDash(r.Consequence),
		orDash(r.Impact),
		orDash(r.HGVSc),
		orDash(r.HGVSp),
		formatFloat(r.AF),
		formatFloat(r.DP),
		formatFloat(r.MQ),
		formatString(r.GT),
		strconv.FormatInt(r.PhenoScore, 10),
		strconv.FormatBool(r.PhenoMatch),
		strconv.FormatBool(r.PanelMatch),
		formatPriority(r.Priority),
	})
}

func (tw *TabWriter) writeValues(values []string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func formatString(s *string) string {
	if s == nil {
		return "-"
	}
	return orDash(*s)
}

func formatPriority(p float64) string {
	return strconv.FormatFloat(p, 'f', 4, 64)
}
