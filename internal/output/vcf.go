package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/gatomis/vcf-pheno/internal/prioritize"
)

// INFO keys added to each written record.
const (
	InfoRank       = "VP_RANK"
	InfoGene       = "VP_GENE"
	InfoImpact     = "VP_IMPACT"
	InfoPhenoScore = "VP_PHENO_SCORE"
	InfoPanel      = "VP_PANEL"
	InfoPriority   = "VP_PRIORITY"
)

var infoHeaderLines = []string{
	`##INFO=<ID=VP_RANK,Number=1,Type=Integer,Description="Rank in prioritized output (1 = highest)">`,
	`##INFO=<ID=VP_GENE,Number=1,Type=String,Description="Gene of the most severe annotation">`,
	`##INFO=<ID=VP_IMPACT,Number=1,Type=String,Description="Impact of the most severe annotation">`,
	`##INFO=<ID=VP_PHENO_SCORE,Number=1,Type=Integer,Description="Number of query phenotype terms associated with the gene">`,
	`##INFO=<ID=VP_PANEL,Number=0,Type=Flag,Description="Gene is in the supplied panel">`,
	`##INFO=<ID=VP_PRIORITY,Number=1,Type=Float,Description="Composite priority score">`,
}

// VCFWriter writes ranked records back out as VCF, appending the
// prioritization results to each record's INFO column.
// Records are written in ranked order, not coordinate order.
type VCFWriter struct {
	w           *bufio.Writer
	headerLines []string // original ## lines and the #CHROM line
	rank        int
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer, headerLines []string) *VCFWriter {
	return &VCFWriter{
		w:           bufio.NewWriter(w),
		headerLines: headerLines,
	}
}

// WriteHeader writes the original header with the added INFO declarations
// inserted before the #CHROM line.
func (vw *VCFWriter) WriteHeader() error {
	wroteInfo := false
	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, "#CHROM") && !wroteInfo {
			if err := vw.writeInfoHeader(); err != nil {
				return err
			}
			wroteInfo = true
		}
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if !wroteInfo {
		return vw.writeInfoHeader()
	}
	return nil
}

func (vw *VCFWriter) writeInfoHeader() error {
	for _, l := range infoHeaderLines {
		if _, err := vw.w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write writes the next scored record. Ranks are assigned in call order.
func (vw *VCFWriter) Write(s *prioritize.Scored) error {
	vw.rank++
	v := s.Variant

	var lb strings.Builder
	lb.Grow(256)

	lb.WriteString(v.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(v.Pos, 10))
	lb.WriteByte('\t')
	lb.WriteString(orDot(v.ID))
	lb.WriteByte('\t')
	lb.WriteString(v.Ref)
	lb.WriteByte('\t')
	lb.WriteString(v.Alt)
	lb.WriteByte('\t')
	if v.Qual != nil {
		lb.WriteString(strconv.FormatFloat(*v.Qual, 'g', -1, 64))
	} else {
		lb.WriteByte('.')
	}
	lb.WriteByte('\t')
	lb.WriteString(orDot(v.Filter))
	lb.WriteByte('\t')

	if v.RawInfo != "" && v.RawInfo != "." {
		lb.WriteString(v.RawInfo)
		lb.WriteByte(';')
	}
	vw.writeInfo(&lb, s)

	if v.SampleColumns != "" {
		lb.WriteByte('\t')
		lb.WriteString(v.SampleColumns)
	}
	lb.WriteByte('\n')

	_, err := vw.w.WriteString(lb.String())
	return err
}

func (vw *VCFWriter) writeInfo(lb *strings.Builder, s *prioritize.Scored) {
	lb.WriteString(InfoRank + "=" + strconv.Itoa(vw.rank))
	if a := s.Annotation; a != nil {
		if a.Gene != "" {
			lb.WriteString(";" + InfoGene + "=" + escapeInfoValue(a.Gene))
		}
		if a.Impact != "" {
			lb.WriteString(";" + InfoImpact + "=" + escapeInfoValue(a.Impact))
		}
	}
	lb.WriteString(";" + InfoPhenoScore + "=" + strconv.Itoa(s.PhenoScore))
	if s.PanelMatch {
		lb.WriteString(";" + InfoPanel)
	}
	lb.WriteString(";" + InfoPriority + "=" + formatPriority(s.Priority))
}

// Flush flushes any buffered data to the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

// escapeInfoValue replaces characters that would break INFO parsing.
func escapeInfoValue(s string) string {
	return strings.NewReplacer(";", "%3B", "=", "%3D", " ", "_", "\t", "_").Replace(s)
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}
