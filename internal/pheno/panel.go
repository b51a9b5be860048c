package pheno

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var panelHeaders = map[string]bool{
	"gene":        true,
	"genes":       true,
	"symbol":      true,
	"genesymbol":  true,
	"gene_symbol": true,
	"hugo symbol": true,
	"hugo_symbol": true,
}

// Panel is a set of normalized gene symbols of interest.
type Panel map[string]struct{}

// NewPanel builds a panel from raw symbols, ignoring blanks.
func NewPanel(genes []string) Panel {
	p := make(Panel, len(genes))
	for _, g := range genes {
		if g = NormalizeGene(g); g != "" {
			p[g] = struct{}{}
		}
	}
	return p
}

// Contains reports whether gene, after normalization, is in the panel.
func (p Panel) Contains(gene string) bool {
	if len(p) == 0 {
		return false
	}
	g := NormalizeGene(gene)
	if g == "" {
		return false
	}
	_, ok := p[g]
	return ok
}

// LoadPanel reads a gene panel file.
func LoadPanel(path string) (Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open panel file: %w", err)
	}
	defer f.Close()

	p, err := ParsePanel(f)
	if err != nil {
		var te *TableError
		if errors.As(err, &te) {
			te.Path = path
		}
		return nil, err
	}
	return p, nil
}

// ParsePanel reads one gene per line, or the first column of a tab or
// comma delimited file. Comment lines and a leading header row are skipped.
func ParsePanel(r io.Reader) (Panel, error) {
	var genes []string
	first := true

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cell := line
		if i := strings.IndexAny(line, "\t,"); i >= 0 {
			cell = line[:i]
		}
		cell = strings.Trim(strings.TrimSpace(cell), `"`)

		if first {
			first = false
			if panelHeaders[strings.ToLower(cell)] {
				continue
			}
		}
		genes = append(genes, cell)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan panel: %w", err)
	}

	p := NewPanel(genes)
	if len(p) == 0 {
		return nil, &TableError{Kind: KindPanel, Message: "panel contains no genes"}
	}
	return p, nil
}
