package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gatomis/vcf-pheno/internal/analysis"
	"github.com/gatomis/vcf-pheno/internal/output"
	"github.com/gatomis/vcf-pheno/internal/stats"
	"github.com/gatomis/vcf-pheno/internal/vcf"
)

func newStatsCmd() *cobra.Command {
	var (
		format      string
		maxVariants int
		perFile     bool
	)

	cmd := &cobra.Command{
		Use:   "stats <input.vcf[.gz]>...",
		Short: "Summarize one or more VCFs without ranking",
		Long: `Count records, PASS records, SNPs, indels and transitions/transversions.
Several inputs are read concurrently and their counts merged into one summary.`,
		Example: `  vcf-pheno stats sample.vcf.gz
  vcf-pheno stats chr*.vcf.gz --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(viper.GetBool("verbose"))
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer logger.Sync()

			a := analysis.NewAnalyzer()
			a.SetLogger(logger)

			limit := recordLimit(maxVariants)
			accs := make([]*stats.Accumulator, len(args))
			skipped := make([]int, len(args))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(runtime.NumCPU())
			for i, path := range args {
				g.Go(func() error {
					acc, n, err := a.Stats(ctx, path, limit)
					if err != nil {
						return err
					}
					accs[i], skipped[i] = acc, n
					logger.Debug("file summarized", zap.String("path", path), zap.Int("variants", acc.Total))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total := stats.New()
			totalSkipped := 0
			for i, acc := range accs {
				if perFile && len(args) > 1 {
					s := acc.Summary()
					s.SkippedLines = skipped[i]
					fmt.Fprintf(out, "== %s\n", args[i])
					if err := output.WriteSummary(out, s, format); err != nil {
						return err
					}
				}
				total.Merge(acc)
				totalSkipped += skipped[i]
			}

			if perFile && len(args) > 1 {
				fmt.Fprintln(out, "== total")
			}
			summary := total.Summary()
			summary.SkippedLines = totalSkipped
			return output.WriteSummary(out, summary, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", output.FormatText, "Output format: text, yaml or json")
	cmd.Flags().IntVar(&maxVariants, "max-variants", vcf.DefaultMaxVariants, "Stop after N records per file (negative = unlimited)")
	cmd.Flags().BoolVar(&perFile, "per-file", false, "Also print a summary for each input")

	return cmd
}
