package output

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/gatomis/vcf-pheno/internal/stats"
)

// Summary formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// SummaryFormats lists the accepted values for WriteSummary.
var SummaryFormats = []string{FormatText, FormatYAML, FormatJSON}

// WriteSummary renders run statistics in the given format.
func WriteSummary(w io.Writer, s stats.Summary, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return writeSummaryText(w, s)
	case FormatYAML:
		out, err := yaml.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshaling summary: %w", err)
		}
		_, err = w.Write(out)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("marshaling summary: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown summary format %q (valid: %s)", format, strings.Join(SummaryFormats, ", "))
	}
}

func writeSummaryText(w io.Writer, s stats.Summary) error {
	titv := "n/a"
	if s.TiTv != nil {
		titv = fmt.Sprintf("%.3f", *s.TiTv)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Variants:      %d\n", s.Total)
	fmt.Fprintf(&b, "PASS:          %d (%.1f%%)\n", s.Pass, 100*s.PassRate)
	fmt.Fprintf(&b, "SNPs:          %d\n", s.SNPs)
	fmt.Fprintf(&b, "Indels:        %d\n", s.Indels)
	fmt.Fprintf(&b, "Ti/Tv:         %s (%d/%d)\n", titv, s.Transitions, s.Transversions)
	if s.SkippedLines > 0 {
		fmt.Fprintf(&b, "Skipped lines: %d\n", s.SkippedLines)
	}

	if len(s.ByChrom) > 0 {
		b.WriteString("By chromosome:\n")
		for _, c := range s.ByChrom {
			fmt.Fprintf(&b, "  %-12s %d\n", c.Key, c.Count)
		}
	}
	if len(s.Filters) > 0 {
		b.WriteString("Filters:\n")
		for _, c := range s.Filters {
			fmt.Fprintf(&b, "  %-12s %d\n", c.Key, c.Count)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
