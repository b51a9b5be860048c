// Package pheno maps variant genes to phenotype relevance and panel membership
// using caller-supplied lookup tables.
package pheno

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gatomis/vcf-pheno/internal/vcf"
)

// Accepted header spellings, compared case-insensitively.
var (
	termColumns = []string{"hpo_id", "hpo", "term_id"}
	geneColumns = []string{"genesymbol", "gene", "symbol", "gene_symbol"}
)

// TermGene is one phenotype-term to gene association.
type TermGene struct {
	Term string
	Gene string
}

// TermGeneTable is a normalized term→gene table. Rows keep file order.
type TermGeneTable []TermGene

// Kinds of auxiliary table.
const (
	KindPhenotypeTable = "phenotype table"
	KindPanel          = "gene panel"
)

// TableError reports an unusable auxiliary table.
type TableError struct {
	Kind    string // KindPhenotypeTable or KindPanel
	Path    string
	Message string
}

func (e *TableError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = KindPhenotypeTable
	}
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", kind, e.Path, e.Message)
}

// NormalizeGene trims and upper-cases a gene symbol.
func NormalizeGene(gene string) string {
	return strings.ToUpper(strings.TrimSpace(gene))
}

// LoadTermGeneTable reads a CSV or TSV term→gene table, optionally compressed.
func LoadTermGeneTable(path string) (TermGeneTable, error) {
	r, err := vcf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open phenotype table: %w", err)
	}
	defer r.Close()

	table, err := parseTermGeneLines(r)
	if err != nil {
		var te *TableError
		if errors.As(err, &te) {
			te.Path = path
		}
		return nil, err
	}
	return table, nil
}

// ParseTermGeneTable parses a term→gene table from src.
// The delimiter is a tab if the header line contains one, else a comma.
func ParseTermGeneTable(src io.Reader) (TermGeneTable, error) {
	r, err := vcf.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open phenotype table: %w", err)
	}
	defer r.Close()
	return parseTermGeneLines(r)
}

func parseTermGeneLines(r *vcf.Reader) (TermGeneTable, error) {
	var (
		header  []string
		delim   string
		termIdx = -1
		geneIdx = -1
		table   TermGeneTable
	)

	for line := range r.Lines() {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if header == nil {
			delim = ","
			if strings.Contains(line, "\t") {
				delim = "\t"
			}
			header = splitCells(line, delim)
			if len(header) > 0 {
				header[0] = strings.TrimSpace(strings.TrimPrefix(header[0], "#"))
			}
			termIdx = findColumn(header, termColumns)
			geneIdx = findColumn(header, geneColumns)
			if termIdx < 0 || geneIdx < 0 {
				return nil, &TableError{Kind: KindPhenotypeTable, Message: "must contain columns HPO_ID and GeneSymbol (or equivalents)"}
			}
			continue
		}

		cells := splitCells(line, delim)
		if termIdx >= len(cells) || geneIdx >= len(cells) {
			continue
		}
		term := strings.TrimSpace(cells[termIdx])
		gene := NormalizeGene(cells[geneIdx])
		if term == "" || gene == "" {
			continue
		}
		table = append(table, TermGene{Term: term, Gene: gene})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read phenotype table: %w", err)
	}

	if header == nil {
		return nil, &TableError{Kind: KindPhenotypeTable, Message: "empty table"}
	}
	return table, nil
}

// splitCells splits a delimited line and strips surrounding quotes.
func splitCells(line, delim string) []string {
	cells := strings.Split(line, delim)
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if len(c) >= 2 && c[0] == '"' && c[len(c)-1] == '"' {
			c = c[1 : len(c)-1]
		}
		cells[i] = c
	}
	return cells
}

// findColumn returns the index of the first header cell, in header order,
// whose lower-cased name is one of aliases.
func findColumn(header, aliases []string) int {
	for i, h := range header {
		name := strings.ToLower(h)
		for _, a := range aliases {
			if name == a {
				return i
			}
		}
	}
	return -1
}

// PhenotypeMap maps a normalized gene to the number of query terms it is
// associated with.
type PhenotypeMap map[string]int

// BuildPhenotypeMap counts distinct (term, gene) rows whose term is in terms.
// Terms are trimmed and blanks dropped; no terms yields an empty map.
func BuildPhenotypeMap(table TermGeneTable, terms []string) PhenotypeMap {
	query := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			query[t] = struct{}{}
		}
	}

	m := make(PhenotypeMap)
	if len(query) == 0 {
		return m
	}

	seen := make(map[TermGene]struct{})
	for _, row := range table {
		if _, ok := query[row.Term]; !ok {
			continue
		}
		if _, dup := seen[row]; dup {
			continue
		}
		seen[row] = struct{}{}
		m[row.Gene]++
	}
	return m
}

// ParseTerms splits a comma or whitespace separated list of term IDs.
func ParseTerms(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
}
