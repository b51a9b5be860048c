package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gatomis/vcf-pheno/internal/analysis"
	"github.com/gatomis/vcf-pheno/internal/duckdb"
	"github.com/gatomis/vcf-pheno/internal/output"
	"github.com/gatomis/vcf-pheno/internal/pheno"
	"github.com/gatomis/vcf-pheno/internal/prioritize"
	"github.com/gatomis/vcf-pheno/internal/vcf"
)

// Output formats for ranked variants.
const (
	formatTSV = "tsv"
	formatVCF = "vcf"
)

type analyzeOptions struct {
	hpoMap        string
	terms         string
	panel         string
	top           int
	db            string
	outputFile    string
	format        string
	summaryFormat string
	noCache       bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <input.vcf[.gz]|->",
		Short: "Annotate, score and rank the variants in a VCF",
		Long: `Parse a VCF, select the most severe ANN/CSQ annotation per record and rank
records by panel match, phenotype match and priority score:

  priority = 2.0*impact_rank + 1.5*phenotype_score + 1.0*(1 - AF)

where an absent AF counts as 0.5. Ranked rows go to stdout (or --output);
the statistics summary goes to stderr.`,
		Example: `  vcf-pheno analyze sample.vcf.gz
  vcf-pheno analyze sample.vcf --hpo-map genes_to_phenotype.txt --terms HP:0001250,HP:0001263
  vcf-pheno analyze sample.vcf --panel epilepsy.txt --top 50 --db results.duckdb
  cat sample.vcf | vcf-pheno analyze - --format vcf -o ranked.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.hpoMap, "hpo-map", "", "Term→gene table (CSV/TSV with HPO_ID and GeneSymbol columns)")
	f.StringVar(&opts.terms, "terms", "", "Comma-separated phenotype term IDs (e.g. HP:0001250,HP:0001263)")
	f.StringVar(&opts.panel, "panel", "", "Gene panel file (one symbol per line, or first column)")
	f.IntVar(&opts.top, "top", 0, "Only write the N highest-ranked variants (0 = all)")
	f.StringVar(&opts.db, "db", "", "Store ranked results in this DuckDB file")
	f.StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	f.StringVar(&opts.format, "format", formatTSV, "Output format: tsv or vcf")
	f.StringVar(&opts.summaryFormat, "summary-format", output.FormatText, "Summary format: text, yaml or json")
	f.BoolVar(&opts.noCache, "no-cache", false, "Re-parse the term→gene table even if a cached copy is valid")
	f.Int("workers", 0, "Annotation workers (0 = one per CPU)")
	f.Int("max-variants", vcf.DefaultMaxVariants, "Stop after N records (negative = unlimited)")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, map[string]string{
			"hpo_map":      "hpo-map",
			"panel":        "panel",
			"db":           "db",
			"workers":      "workers",
			"max_variants": "max-variants",
		})
	}

	return cmd
}

// recordLimit maps a --max-variants value to a parser cap: negative means
// unlimited (0) and an unset 0 falls back to vcf.DefaultMaxVariants.
func recordLimit(n int) int {
	switch {
	case n < 0:
		return 0
	case n == 0:
		return vcf.DefaultMaxVariants
	}
	return n
}

// analysisConfig assembles the per-run configuration from viper.
func analysisConfig() analysis.Config {
	cfg := analysis.DefaultConfig()
	if n := viper.GetInt("workers"); n > 0 {
		cfg.Workers = n
	}
	cfg.MaxVariants = recordLimit(viper.GetInt("max_variants"))

	w := prioritize.DefaultWeights()
	for key, dst := range map[string]*float64{
		"weights.impact":     &w.Impact,
		"weights.phenotype":  &w.Phenotype,
		"weights.rarity":     &w.Rarity,
		"weights.unknown_af": &w.UnknownAF,
	} {
		if viper.IsSet(key) {
			*dst = viper.GetFloat64(key)
		}
	}
	cfg.Weights = w
	return cfg
}

func runAnalyze(cmd *cobra.Command, input string, opts analyzeOptions) error {
	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scorer, err := buildScorer(viper.GetString("hpo_map"), opts.terms, viper.GetString("panel"), opts.noCache, logger)
	if err != nil {
		return err
	}

	a := analysis.NewAnalyzer()
	a.SetLogger(logger)

	req := analysis.Request{Scorer: scorer, Config: analysisConfig()}
	res, err := a.AnalyzeFile(ctx, input, req)
	if err != nil {
		return err
	}

	if err := writeRanked(cmd.OutOrStdout(), res, opts); err != nil {
		return err
	}

	if dbPath := viper.GetString("db"); dbPath != "" {
		if err := storeRun(dbPath, input, res); err != nil {
			return err
		}
		logger.Info("stored run", zap.String("db", dbPath), zap.String("run_id", res.RunID.String()))
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Run %s\n", res.RunID)
	return output.WriteSummary(cmd.ErrOrStderr(), res.Stats, opts.summaryFormat)
}

// buildScorer loads the optional phenotype table and panel.
func buildScorer(hpoMap, terms, panelPath string, noCache bool, logger *zap.Logger) (*pheno.Scorer, error) {
	var (
		phenotypes pheno.PhenotypeMap
		panel      pheno.Panel
	)

	termList := pheno.ParseTerms(terms)
	if hpoMap != "" && len(termList) > 0 {
		table, err := loadTermGenes(hpoMap, noCache, logger)
		if err != nil {
			return nil, err
		}
		phenotypes = pheno.BuildPhenotypeMap(table, termList)
		logger.Debug("phenotype map built",
			zap.Int("terms", len(termList)),
			zap.Int("rows", len(table)),
			zap.Int("genes", len(phenotypes)))
	} else if hpoMap != "" || len(termList) > 0 {
		logger.Warn("phenotype scoring needs both --hpo-map and --terms; skipping")
	}

	if panelPath != "" {
		p, err := pheno.LoadPanel(panelPath)
		if err != nil {
			return nil, err
		}
		panel = p
		logger.Debug("panel loaded", zap.Int("genes", len(panel)))
	}

	return pheno.NewScorer(phenotypes, panel), nil
}

// loadTermGenes reads the term→gene table through the gob cache.
func loadTermGenes(path string, noCache bool, logger *zap.Logger) (pheno.TermGeneTable, error) {
	dir := defaultDataDir()
	if noCache || dir == "" {
		return pheno.LoadTermGeneTable(path)
	}

	pc := duckdb.NewPhenotypeCache(filepath.Join(dir, "cache"), path)
	table, cached, err := pc.LoadTermGeneTable(path)
	if err != nil {
		if table != nil {
			logger.Warn("could not write phenotype cache", zap.Error(err))
			return table, nil
		}
		return nil, err
	}
	logger.Debug("term→gene table loaded", zap.String("path", path), zap.Bool("cached", cached))
	return table, nil
}

func writeRanked(stdout io.Writer, res *analysis.Result, opts analyzeOptions) error {
	out := stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	ranked := res.Ranked
	if opts.top > 0 && opts.top < len(ranked) {
		ranked = ranked[:opts.top]
	}

	switch strings.ToLower(opts.format) {
	case formatTSV:
		tw := output.NewTabWriter(out)
		if err := tw.WriteHeader(); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, s := range ranked {
			if err := tw.Write(s); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		}
		return tw.Flush()
	case formatVCF:
		vw := output.NewVCFWriter(out, res.HeaderLines)
		if err := vw.WriteHeader(); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, s := range ranked {
			if err := vw.Write(s); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		}
		return vw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (valid: %s, %s)", opts.format, formatTSV, formatVCF)
	}
}

func storeRun(dbPath, source string, res *analysis.Result) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.WriteRun(res.RunID, source, res.Stats, res.Ranked); err != nil {
		return fmt.Errorf("storing results: %w", err)
	}
	return nil
}
