// Package analysis runs the full parse, annotate, score and rank pipeline
// over one variant stream.
package analysis

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gatomis/vcf-pheno/internal/annotate"
	"github.com/gatomis/vcf-pheno/internal/pheno"
	"github.com/gatomis/vcf-pheno/internal/prioritize"
	"github.com/gatomis/vcf-pheno/internal/stats"
	"github.com/gatomis/vcf-pheno/internal/vcf"
)

// Config holds per-run tuning. It is passed by value into every run.
type Config struct {
	Workers     int                `mapstructure:"workers" yaml:"workers"`
	MaxVariants int                `mapstructure:"max_variants" yaml:"max_variants"`
	Weights     prioritize.Weights `mapstructure:"weights" yaml:"weights"`
}

// DefaultConfig returns one worker per CPU, the standard variant cap and
// default weights.
func DefaultConfig() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		MaxVariants: vcf.DefaultMaxVariants,
		Weights:     prioritize.DefaultWeights(),
	}
}

// Request is one analysis invocation. A nil Scorer disables phenotype and
// panel matching.
type Request struct {
	Scorer *pheno.Scorer
	Config Config
}

// Result is the complete output of a successful run.
type Result struct {
	RunID        uuid.UUID
	Ranked       []*prioritize.Scored
	Stats        stats.Summary
	HeaderLines  []string
	Samples      []string
	Schema       vcf.Schema
	SkippedLines int
	Compression  vcf.Compression
}

// Analyzer runs analyses. It holds no per-run state and may be reused.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer that logs nothing.
func NewAnalyzer() *Analyzer {
	return &Analyzer{logger: zap.NewNop()}
}

// SetLogger sets the logger used for run diagnostics.
func (a *Analyzer) SetLogger(l *zap.Logger) {
	a.logger = l
}

// AnalyzeFile analyzes the VCF at path. A path of "-" reads stdin.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, req Request) (*Result, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return a.run(ctx, p, req)
}

// Analyze analyzes a VCF byte stream, which may be compressed.
// Structural input problems are returned as *vcf.FormatError. If ctx is
// cancelled the run stops and no partial result is returned.
func (a *Analyzer) Analyze(ctx context.Context, src io.Reader, req Request) (*Result, error) {
	p, err := vcf.NewParserFromReader(src)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return a.run(ctx, p, req)
}

func (a *Analyzer) run(ctx context.Context, p *vcf.Parser, req Request) (*Result, error) {
	cfg := req.Config
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p.SetLogger(a.logger)
	p.SetMaxVariants(cfg.MaxVariants)

	ext := annotate.NewExtractor(p.Schema())
	acc := stats.New()
	runID := uuid.New()
	log := a.logger.With(zap.String("run_id", runID.String()))

	log.Debug("starting analysis",
		zap.Int("workers", workers),
		zap.Int("samples", len(p.SampleNames())),
		zap.String("compression", p.Compression().String()),
		zap.Int("csq_fields", len(p.Schema())))

	g, gctx := errgroup.WithContext(ctx)
	items := make(chan annotate.WorkItem, 2*workers)

	// Stats are folded here, in input order, before records fan out.
	g.Go(func() error {
		defer close(items)
		for seq := 0; ; seq++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := p.Next()
			if err != nil {
				return err
			}
			if v == nil {
				return nil
			}
			acc.Add(v)

			select {
			case items <- annotate.WorkItem{Seq: seq, Variant: v}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	results := ext.ParallelExtract(items, workers)

	var records []*prioritize.Scored
	g.Go(func() error {
		return annotate.OrderedCollect(results, func(r annotate.WorkResult) error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var gene string
			if r.Best != nil {
				gene = r.Best.Gene
			}
			records = append(records, prioritize.NewScored(r.Variant, r.Best, req.Scorer.Score(gene)))
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	ranked := prioritize.Rank(records, cfg.Weights)

	summary := acc.Summary()
	summary.SkippedLines = p.SkippedLines()

	log.Info("analysis complete",
		zap.Int("variants", len(ranked)),
		zap.Int("pass", summary.Pass),
		zap.Int("skipped_lines", summary.SkippedLines))

	return &Result{
		RunID:        runID,
		Ranked:       ranked,
		Stats:        summary,
		HeaderLines:  p.Header().Lines,
		Samples:      p.SampleNames(),
		Schema:       p.Schema(),
		SkippedLines: summary.SkippedLines,
		Compression:  p.Compression(),
	}, nil
}

// Stats computes statistics only, skipping annotation and ranking.
func (a *Analyzer) Stats(ctx context.Context, path string, maxVariants int) (*stats.Accumulator, int, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, 0, err
	}
	defer p.Close()
	p.SetLogger(a.logger)
	p.SetMaxVariants(maxVariants)

	acc := stats.New()
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		v, err := p.Next()
		if err != nil {
			return nil, 0, fmt.Errorf("stats %s: %w", path, err)
		}
		if v == nil {
			break
		}
		acc.Add(v)
	}
	return acc, p.SkippedLines(), nil
}
