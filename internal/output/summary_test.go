package output

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gatomis/vcf-pheno/internal/stats"
)

func sampleSummary() stats.Summary {
	titv := 2.0
	return stats.Summary{
		Total: 10, Pass: 6, SNPs: 3, Indels: 1,
		Transitions: 2, Transversions: 1,
		PassRate: 0.6, TiTv: &titv,
		ByChrom:      []stats.Count{{Key: "chr3", Count: 3}, {Key: "chr1", Count: 2}},
		Filters:      []stats.Count{{Key: "PASS", Count: 6}, {Key: "LowQual", Count: 4}},
		SkippedLines: 1,
	}
}

func TestWriteSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleSummary(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "Variants:      10")
	assert.Contains(t, out, "PASS:          6 (60.0%)")
	assert.Contains(t, out, "Ti/Tv:         2.000 (2/1)")
	assert.Contains(t, out, "Skipped lines: 1")
	assert.Contains(t, out, "chr3")
	assert.Contains(t, out, "LowQual")
}

func TestWriteSummary_TextWithoutTransversions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, stats.Summary{Total: 1, Transitions: 1}, ""))
	assert.Contains(t, buf.String(), "Ti/Tv:         n/a (1/0)")
	assert.NotContains(t, buf.String(), "Skipped lines")
}

func TestWriteSummary_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleSummary(), FormatYAML))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 10, got["n_total"])
	assert.Equal(t, 2.0, got["ti_tv"])
}

func TestWriteSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	s := sampleSummary()
	s.TiTv = nil
	require.NoError(t, WriteSummary(&buf, s, FormatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(6), got["n_pass"])
	assert.NotContains(t, got, "ti_tv", "absent ratio is omitted")
}

func TestWriteSummary_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummary(&buf, sampleSummary(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
