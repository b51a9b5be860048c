package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gatomis/vcf-pheno/internal/duckdb"
	"github.com/gatomis/vcf-pheno/internal/output"
)

type queryOptions struct {
	gene     string
	runID    string
	top      int
	listRuns bool
	deleteID string
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query ranked results stored with analyze --db",
		Example: `  vcf-pheno query --db results.duckdb --runs
  vcf-pheno query --db results.duckdb --top 20
  vcf-pheno query --db results.duckdb --gene SCN1A`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString("db")
			if dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			return runQuery(cmd.OutOrStdout(), dbPath, opts)
		},
	}

	f := cmd.Flags()
	f.String("db", "", "DuckDB file written by analyze --db")
	f.StringVar(&opts.gene, "gene", "", "Show stored variants in this gene across all runs")
	f.StringVar(&opts.runID, "run", "", "Run ID to show (default: most recent)")
	f.IntVar(&opts.top, "top", 20, "Number of ranked variants to show (0 = all)")
	f.BoolVar(&opts.listRuns, "runs", false, "List stored runs")
	f.StringVar(&opts.deleteID, "delete", "", "Delete a stored run")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, map[string]string{"db": "db"})
	}

	return cmd
}

func runQuery(out io.Writer, dbPath string, opts queryOptions) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case opts.deleteID != "":
		if err := store.DeleteRun(opts.deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s\n", opts.deleteID)
		return nil

	case opts.listRuns:
		runs, err := store.Runs()
		if err != nil {
			return err
		}
		return writeRuns(out, runs)

	case opts.gene != "":
		rows, err := store.SearchByGene(opts.gene)
		if err != nil {
			return err
		}
		return writeStoredRows(out, rows)
	}

	runID := opts.runID
	if runID == "" {
		runID, err = store.LatestRun()
		if err != nil {
			return err
		}
		if runID == "" {
			return fmt.Errorf("no runs stored in %s", dbPath)
		}
	}

	rows, err := store.TopRanked(runID, opts.top)
	if err != nil {
		return err
	}
	return writeStoredRows(out, rows)
}

func writeStoredRows(out io.Writer, rows []duckdb.RankedRow) error {
	tw := output.NewTabWriter(out)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		if err := tw.WriteStored(r); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return tw.Flush()
}

func writeRuns(out io.Writer, runs []duckdb.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN_ID\tCREATED\tSOURCE\tTOTAL\tPASS\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.RunID, r.CreatedAt.Format(time.DateTime), r.Source, r.Total, r.Pass, r.Skipped)
	}
	return w.Flush()
}
