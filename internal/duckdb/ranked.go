package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/gatomis/vcf-pheno/internal/prioritize"
	"github.com/gatomis/vcf-pheno/internal/stats"
)

// RankedRow is one persisted, ranked variant. Pointer fields are nil when
// the value was absent in the input.
type RankedRow struct {
	RunID       string
	Rank        int64 // 1-based position in the ranked output
	Chrom       string
	Pos         int64
	ID          string
	Ref         string
	Alt         string
	Qual        *float64
	Filter      string
	Gene        string
	Consequence string
	Impact      string
	HGVSc       string
	HGVSp       string
	AF          *float64
	DP          *float64
	MQ          *float64
	GT          *string
	PhenoScore  int64
	PhenoMatch  bool
	PanelMatch  bool
	Priority    float64
}

// Run is the summary row stored for each analysis.
type Run struct {
	RunID     string
	Source    string
	CreatedAt time.Time
	Total     int64
	Pass      int64
	SNPs      int64
	Indels    int64
	Ti        int64
	Tv        int64
	Skipped   int64
}

// NewRankedRow flattens a scored record at the given rank.
func NewRankedRow(runID uuid.UUID, rank int, s *prioritize.Scored) RankedRow {
	v := s.Variant
	row := RankedRow{
		RunID:      runID.String(),
		Rank:       int64(rank),
		Chrom:      v.Chrom,
		Pos:        v.Pos,
		ID:         v.ID,
		Ref:        v.Ref,
		Alt:        v.Alt,
		Qual:       v.Qual,
		Filter:     v.Filter,
		AF:         v.AF,
		DP:         v.DP,
		MQ:         v.MQ,
		GT:         v.GT,
		PhenoScore: int64(s.PhenoScore),
		PhenoMatch: s.PhenoMatch,
		PanelMatch: s.PanelMatch,
		Priority:   s.Priority,
	}
	if a := s.Annotation; a != nil {
		row.Gene = a.Gene
		row.Consequence = a.Consequence
		row.Impact = a.Impact
		row.HGVSc = a.HGVSc
		row.HGVSp = a.HGVSp
	}
	return row
}

// WriteRun stores the run summary and its ranked variants. If the variants
// cannot be written the run is removed again, so a stored run always has
// its full ranking.
func (s *Store) WriteRun(runID uuid.UUID, source string, summary stats.Summary, ranked []*prioritize.Scored) error {
	_, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID.String(), source, time.Now().UTC(),
		summary.Total, summary.Pass, summary.SNPs, summary.Indels,
		summary.Transitions, summary.Transversions, summary.SkippedLines)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := s.WriteRanked(runID, ranked); err != nil {
		if derr := s.DeleteRun(runID.String()); derr != nil {
			return fmt.Errorf("%w (cleanup: %v)", err, derr)
		}
		return err
	}
	return nil
}

// WriteRanked batch-inserts ranked variants using the Appender API.
// Ranks are assigned from slice order starting at 1.
func (s *Store) WriteRanked(runID uuid.UUID, ranked []*prioritize.Scored) error {
	if len(ranked) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "ranked_variants")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, sc := range ranked {
		r := NewRankedRow(runID, i+1, sc)
		if err := appender.AppendRow(
			r.RunID, r.Rank, r.Chrom, r.Pos, r.ID, r.Ref, r.Alt,
			nullFloat(r.Qual), r.Filter,
			r.Gene, r.Consequence, r.Impact, r.HGVSc, r.HGVSp,
			nullFloat(r.AF), nullFloat(r.DP), nullFloat(r.MQ), nullString(r.GT),
			r.PhenoScore, r.PhenoMatch, r.PanelMatch, r.Priority,
		); err != nil {
			return fmt.Errorf("append ranked variant: %w", err)
		}
	}

	return appender.Flush()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

const rankedColumns = `run_id, rank, chrom, pos, id, ref, alt, qual, filter,
	gene, consequence, impact, hgvsc, hgvsp, af, dp, mq, gt,
	pheno_score, pheno_match, panel_match, priority`

// SearchByGene returns persisted rows for a gene across all runs.
func (s *Store) SearchByGene(gene string) ([]RankedRow, error) {
	rows, err := s.db.Query(`SELECT `+rankedColumns+`
		FROM ranked_variants
		WHERE upper(gene)=upper(?)
		ORDER BY run_id, rank`, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanRankedRows(rows)
}

// TopRanked returns the first n rows of a run. n <= 0 returns all rows.
func (s *Store) TopRanked(runID string, n int) ([]RankedRow, error) {
	query := `SELECT ` + rankedColumns + `
		FROM ranked_variants
		WHERE run_id=?
		ORDER BY rank`
	args := []any{runID}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top ranked: %w", err)
	}
	defer rows.Close()

	return scanRankedRows(rows)
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, source, created_at, n_total, n_pass,
		snps, indels, ti, tv, skipped_lines
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Source, &r.CreatedAt, &r.Total, &r.Pass,
			&r.SNPs, &r.Indels, &r.Ti, &r.Tv, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the ID of the most recently stored run, or "" if none.
func (s *Store) LatestRun() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return id, nil
}

// DeleteRun removes a run and its ranked variants.
func (s *Store) DeleteRun(runID string) error {
	if _, err := s.db.Exec("DELETE FROM ranked_variants WHERE run_id=?", runID); err != nil {
		return fmt.Errorf("delete ranked variants: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE run_id=?", runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// scanRankedRows scans rows into RankedRow slices.
func scanRankedRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]RankedRow, error) {
	var results []RankedRow
	for rows.Next() {
		var r RankedRow
		var qual, af, dp, mq sql.NullFloat64
		var gt sql.NullString

		if err := rows.Scan(
			&r.RunID, &r.Rank, &r.Chrom, &r.Pos, &r.ID, &r.Ref, &r.Alt, &qual, &r.Filter,
			&r.Gene, &r.Consequence, &r.Impact, &r.HGVSc, &r.HGVSp, &af, &dp, &mq, &gt,
			&r.PhenoScore, &r.PhenoMatch, &r.PanelMatch, &r.Priority,
		); err != nil {
			return nil, fmt.Errorf("scan ranked variant: %w", err)
		}

		r.Qual = floatPtr(qual)
		r.AF = floatPtr(af)
		r.DP = floatPtr(dp)
		r.MQ = floatPtr(mq)
		if gt.Valid {
			g := gt.String
			r.GT = &g
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked variants: %w", err)
	}
	return results, nil
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
