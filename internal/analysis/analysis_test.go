package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatomis/vcf-pheno/internal/annotate"
	"github.com/gatomis/vcf-pheno/internal/pheno"
	"github.com/gatomis/vcf-pheno/internal/vcf"
)

func testdata(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("..", "vcf", "testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Skipf("fixture %s not found", path)
	}
	return path
}

func TestAnalyzeFile_TenRecords(t *testing.T) {
	req := Request{
		Scorer: pheno.NewScorer(nil, pheno.NewPanel([]string{"brca1"})),
		Config: DefaultConfig(),
	}

	res, err := NewAnalyzer().AnalyzeFile(context.Background(), testdata(t, "ten_records.vcf"), req)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.RunID)
	assert.Equal(t, []string{"PROBAND", "MOTHER"}, res.Samples)
	assert.Nil(t, res.Schema)
	require.Len(t, res.Ranked, 10)

	assert.Equal(t, 10, res.Stats.Total)
	assert.Equal(t, 6, res.Stats.Pass)
	assert.Equal(t, 9, res.Stats.SNPs)
	assert.Equal(t, 1, res.Stats.Indels)

	top := res.Ranked[0]
	assert.Equal(t, "chr1", top.Variant.Chrom)
	assert.Equal(t, int64(100), top.Variant.Pos)
	require.NotNil(t, top.Annotation)
	assert.Equal(t, "BRCA1", top.Annotation.Gene)
	assert.Equal(t, "missense_variant", top.Annotation.Consequence)
	assert.Equal(t, annotate.ImpactModerate, top.Annotation.Impact)
	assert.True(t, top.PanelMatch)
	assert.False(t, top.PhenoMatch)
	assert.InDelta(t, 4.99, top.Priority, 1e-9)

	for _, s := range res.Ranked[1:] {
		assert.Nil(t, s.Annotation)
		assert.False(t, s.PanelMatch)
	}
}

func TestAnalyze_CSQPhenotypeOrdering(t *testing.T) {
	f, err := os.Open(testdata(t, "csq.vcf"))
	require.NoError(t, err)
	defer f.Close()

	req := Request{
		Scorer: pheno.NewScorer(pheno.PhenotypeMap{"BRCA2": 1}, nil),
		Config: Config{Workers: 2, Weights: DefaultConfig().Weights},
	}
	res, err := NewAnalyzer().Analyze(context.Background(), f, req)
	require.NoError(t, err)
	require.Len(t, res.Ranked, 2)
	assert.Len(t, res.Schema, 12)

	first, second := res.Ranked[0], res.Ranked[1]
	require.NotNil(t, first.Annotation)
	assert.Equal(t, "BRCA2", first.Annotation.Gene, "phenotype match outranks impact")
	assert.True(t, first.PhenoMatch)
	assert.Equal(t, 1, first.PhenoScore)
	assert.InDelta(t, 1.5+0.5, first.Priority, 1e-9)

	require.NotNil(t, second.Annotation)
	assert.Equal(t, "stop_gained", second.Annotation.Consequence)
	assert.Equal(t, "ENST00000352993.7:c.3113C>T", second.Annotation.HGVSc)
	assert.InDelta(t, 6.0+0.9999, second.Priority, 1e-9)
}

func TestAnalyze_NilScorer(t *testing.T) {
	res, err := NewAnalyzer().AnalyzeFile(context.Background(), testdata(t, "csq.vcf"), Request{Config: DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "BRCA1", res.Ranked[0].Annotation.Gene)
	assert.InDelta(t, 6.9999, res.Ranked[0].Priority, 1e-9)
}

func TestAnalyze_FormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no column header", "chr1\t1\t.\tA\tG\t.\tPASS\t.\n"},
		{"no line with required columns", "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\nchr1\t1\tA\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyzer().Analyze(context.Background(), strings.NewReader(tt.input), Request{Config: DefaultConfig()})
			var fe *vcf.FormatError
			require.True(t, errors.As(err, &fe), "got %v", err)
		})
	}
}

func TestAnalyze_SkippedLinesReported(t *testing.T) {
	input := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"chr1\t1\t.\tA\tG\t.\tPASS\t.\n" +
		"short\tline\n" +
		"chr1\tnotanumber\t.\tA\tG\t.\tPASS\t.\n"

	res, err := NewAnalyzer().Analyze(context.Background(), strings.NewReader(input), Request{Config: DefaultConfig()})
	require.NoError(t, err)
	assert.Len(t, res.Ranked, 1)
	assert.Equal(t, 2, res.SkippedLines)
	assert.Equal(t, 2, res.Stats.SkippedLines)
}

func TestAnalyze_NaNFrequencyRanksAsUnknown(t *testing.T) {
	input := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"chr1\t200\t.\tA\tG\t.\tPASS\tAF=0.5;ANN=G|intron_variant|MODIFIER|TP53||||||||\n" +
		"chr1\t300\t.\tA\tC\t.\tPASS\tAF=nan;ANN=C|stop_gained|HIGH|TP53||||||||\n"

	res, err := NewAnalyzer().Analyze(context.Background(), strings.NewReader(input), Request{Config: DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, res.Ranked, 2)

	top := res.Ranked[0]
	assert.Equal(t, int64(300), top.Variant.Pos)
	assert.Nil(t, top.Variant.AF)
	assert.InDelta(t, 6.5, top.Priority, 1e-9)
	assert.InDelta(t, 0.5, res.Ranked[1].Priority, 1e-9)
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewAnalyzer().AnalyzeFile(ctx, testdata(t, "ten_records.vcf"), Request{Config: DefaultConfig()})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_Deterministic(t *testing.T) {
	path := testdata(t, "ten_records.vcf")
	req := Request{Config: Config{Workers: 4, Weights: DefaultConfig().Weights}}

	first, err := NewAnalyzer().AnalyzeFile(context.Background(), path, req)
	require.NoError(t, err)

	for range 5 {
		again, err := NewAnalyzer().AnalyzeFile(context.Background(), path, req)
		require.NoError(t, err)
		require.Len(t, again.Ranked, len(first.Ranked))
		for i := range first.Ranked {
			assert.Equal(t, first.Ranked[i].Variant.LineNumber, again.Ranked[i].Variant.LineNumber)
		}
	}
}

func TestStats_OnlyCounts(t *testing.T) {
	acc, skipped, err := NewAnalyzer().Stats(context.Background(), testdata(t, "ten_records.vcf"), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, acc.Total)
	assert.Zero(t, skipped)
}
