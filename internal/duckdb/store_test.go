package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatomis/vcf-pheno/internal/annotate"
	"github.com/gatomis/vcf-pheno/internal/pheno"
	"github.com/gatomis/vcf-pheno/internal/prioritize"
	"github.com/gatomis/vcf-pheno/internal/stats"
	"github.com/gatomis/vcf-pheno/internal/vcf"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func f64(f float64) *float64 { return &f }

func sampleRanked() []*prioritize.Scored {
	gt := "0/1"
	return []*prioritize.Scored{
		{
			Variant: &vcf.Variant{
				Chrom: "17", Pos: 43094464, ID: "rs80357906", Ref: "G", Alt: "A",
				Qual: f64(80), Filter: "PASS", AF: f64(0.0001), DP: f64(31), GT: &gt,
			},
			Annotation: &annotate.Candidate{
				Allele: "A", Consequence: "stop_gained", Impact: annotate.ImpactHigh,
				Gene: "BRCA1", HGVSc: "c.3113C>T", HGVSp: "p.Gln1038Ter",
			},
			PanelMatch: true,
			Priority:   6.9999,
		},
		{
			Variant: &vcf.Variant{
				Chrom: "13", Pos: 32338000, ID: ".", Ref: "T", Alt: "C", Filter: "PASS",
			},
			Annotation: &annotate.Candidate{Consequence: "intron_variant", Impact: annotate.ImpactModifier, Gene: "BRCA2"},
			PhenoScore: 1,
			PhenoMatch: true,
			Priority:   2.0,
		},
		{
			Variant:  &vcf.Variant{Chrom: "1", Pos: 100, Ref: "A", Alt: "G", Filter: "LowQual"},
			Priority: 0.5,
		},
	}
}

// --- Ranked result tests (DuckDB) ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestWriteAndReadTopRanked(t *testing.T) {
	s := openInMemory(t)
	runID := uuid.New()

	require.NoError(t, s.WriteRanked(runID, sampleRanked()))

	rows, err := s.TopRanked(runID.String(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, int64(1), first.Rank)
	assert.Equal(t, "BRCA1", first.Gene)
	assert.Equal(t, "p.Gln1038Ter", first.HGVSp)
	require.NotNil(t, first.Qual)
	assert.InDelta(t, 80, *first.Qual, 1e-9)
	require.NotNil(t, first.AF)
	assert.InDelta(t, 0.0001, *first.AF, 1e-12)
	require.NotNil(t, first.GT)
	assert.Equal(t, "0/1", *first.GT)
	assert.True(t, first.PanelMatch)

	second := rows[1]
	assert.Nil(t, second.Qual, "absent values stay absent")
	assert.Nil(t, second.AF)
	assert.Nil(t, second.GT)
	assert.Equal(t, int64(1), second.PhenoScore)
	assert.True(t, second.PhenoMatch)

	third := rows[2]
	assert.Empty(t, third.Gene)
	assert.Empty(t, third.Impact)
	assert.Equal(t, int64(3), third.Rank)

	top, err := s.TopRanked(runID.String(), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "BRCA1", top[0].Gene)
}

func TestWriteRankedEmpty(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteRanked(uuid.New(), nil))
}

func TestSearchByGene(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteRanked(uuid.New(), sampleRanked()))
	require.NoError(t, s.WriteRanked(uuid.New(), sampleRanked()[:1]))

	brca1, err := s.SearchByGene("brca1")
	require.NoError(t, err)
	assert.Len(t, brca1, 2)

	brca2, err := s.SearchByGene("BRCA2")
	require.NoError(t, err)
	require.Len(t, brca2, 1)
	assert.Equal(t, int64(2), brca2[0].Rank)

	none, err := s.SearchByGene("NOTEXIST")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWriteRunAndLatest(t *testing.T) {
	s := openInMemory(t)

	latest, err := s.LatestRun()
	require.NoError(t, err)
	assert.Empty(t, latest)

	summary := stats.Summary{Total: 3, Pass: 2, SNPs: 2, Transitions: 1, Transversions: 1}
	older, newer := uuid.New(), uuid.New()
	require.NoError(t, s.WriteRun(older, "a.vcf", summary, sampleRanked()))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.WriteRun(newer, "b.vcf", summary, sampleRanked()[:2]))

	latest, err = s.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, newer.String(), latest)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b.vcf", runs[0].Source)
	assert.Equal(t, int64(3), runs[1].Total)
	assert.Equal(t, int64(2), runs[1].Pass)

	require.NoError(t, s.DeleteRun(older.String()))
	rows, err := s.TopRanked(older.String(), 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	runs, err = s.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestWriteRunRemovesRunWhenVariantsFail(t *testing.T) {
	s := openInMemory(t)

	runID := uuid.New()
	// Rows already stored under this run make the append hit the primary key.
	require.NoError(t, s.WriteRanked(runID, sampleRanked()))

	err := s.WriteRun(runID, "a.vcf", stats.Summary{Total: 3}, sampleRanked())
	require.Error(t, err)

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
	latest, err := s.LatestRun()
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestOpenFileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	runID := uuid.New()
	require.NoError(t, s.WriteRanked(runID, sampleRanked()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.TopRanked(runID.String(), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

// --- Phenotype cache tests (gob) ---

func TestPhenotypeCacheWriteAndLoad(t *testing.T) {
	pc := NewPhenotypeCache(t.TempDir(), "genes_to_phenotype.txt")

	table := pheno.TermGeneTable{
		{Term: "HP:0001250", Gene: "SCN1A"},
		{Term: "HP:0001263", Gene: "MECP2"},
	}
	fp := FileFingerprint{Size: 1000, ModTime: time.Now()}
	require.NoError(t, pc.Write(table, fp))

	got, err := pc.Load()
	require.NoError(t, err)
	assert.Equal(t, table, got)
}

func TestPhenotypeCacheValidation(t *testing.T) {
	pc := NewPhenotypeCache(t.TempDir(), "map.tsv")

	now := time.Now()
	fp := FileFingerprint{Size: 1000, ModTime: now}
	assert.False(t, pc.Valid(fp))

	require.NoError(t, pc.Write(pheno.TermGeneTable{{Term: "HP:1", Gene: "A"}}, fp))
	assert.True(t, pc.Valid(fp))

	changed := fp
	changed.Size = 9999
	assert.False(t, pc.Valid(changed))

	changed = fp
	changed.ModTime = now.Add(time.Hour)
	assert.False(t, pc.Valid(changed))

	pc.Clear()
	assert.False(t, pc.Valid(fp))
}

func TestPhenotypeCacheLoadTermGeneTable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "map.tsv")
	require.NoError(t, os.WriteFile(src, []byte("hpo_id\tgene\nHP:1\tbrca1\n"), 0o644))

	pc := NewPhenotypeCache(filepath.Join(dir, "cache"), src)

	table, cached, err := pc.LoadTermGeneTable(src)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, pheno.TermGeneTable{{Term: "HP:1", Gene: "BRCA1"}}, table)

	table, cached, err = pc.LoadTermGeneTable(src)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, pheno.TermGeneTable{{Term: "HP:1", Gene: "BRCA1"}}, table)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fp.Size)
	assert.Equal(t, path, fp.Path)

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
