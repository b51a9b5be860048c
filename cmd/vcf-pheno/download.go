package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/spf13/cobra"
)

// HPO gene annotation release files.
const (
	hpoReleaseURL   = "https://github.com/obophenotype/human-phenotype-ontology/releases/latest/download"
	hpoGenesToPheno = "genes_to_phenotype.txt"
)

// Retry limits for downloads.
const (
	downloadRetries  = 5
	downloadTimeout  = 30 * time.Minute
	retryInitialWait = 2 * time.Second
)

func newDownloadCmd() *cobra.Command {
	var (
		outputDir string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the HPO term→gene table",
		Long: `Download genes_to_phenotype.txt from the latest HPO release.
The file can be passed directly to analyze --hpo-map.`,
		Example: `  vcf-pheno download
  vcf-pheno download --output /data/hpo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				outputDir = defaultDataDir()
				if outputDir == "" {
					return fmt.Errorf("cannot determine home directory; pass --output")
				}
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
			}

			out := cmd.OutOrStdout()
			dest := filepath.Join(outputDir, hpoGenesToPheno)
			if force {
				os.Remove(dest)
			}

			fmt.Fprintf(out, "Downloading HPO gene annotations...\n")
			fmt.Fprintf(out, "Destination: %s\n\n", outputDir)

			d := newDownloader(out)
			if err := d.fetch(cmd.Context(), hpoReleaseURL+"/"+hpoGenesToPheno, dest); err != nil {
				return fmt.Errorf("downloading %s: %w", hpoGenesToPheno, err)
			}

			fmt.Fprintf(out, "\nDownload complete!\n")
			fmt.Fprintf(out, "To rank variants by phenotype, run:\n")
			fmt.Fprintf(out, "  vcf-pheno analyze input.vcf --hpo-map %s --terms HP:0001250\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: ~/.vcf-pheno/)")
	cmd.Flags().BoolVar(&force, "force", false, "Download again even if the file exists")

	return cmd
}

// downloader fetches files over HTTP, retrying transient failures with
// exponential backoff.
type downloader struct {
	client  *http.Client
	out     io.Writer
	backoff func() backoff.BackOff
}

func newDownloader(out io.Writer) *downloader {
	return &downloader{
		client: &http.Client{Timeout: downloadTimeout},
		out:    out,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = retryInitialWait
			return backoff.WithMaxRetries(b, downloadRetries)
		},
	}
}

// fetch downloads url to destPath, skipping files that already exist.
// The body is written to a .tmp file and renamed on success.
func (d *downloader) fetch(ctx context.Context, url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(d.out, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(d.out, "  Downloading %s...\n", filepath.Base(destPath))

	var downloaded int64
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			fmt.Fprintf(d.out, "    Retrying (attempt %d)...\n", attempt)
		}
		n, err := d.get(ctx, url, destPath)
		downloaded = n
		return err
	}

	// Retry unwraps backoff.Permanent errors itself.
	if err := backoff.Retry(op, backoff.WithContext(d.backoff(), ctx)); err != nil {
		return err
	}

	fmt.Fprintf(d.out, "    Done: %s\n", formatSize(downloaded))
	return nil
}

// get performs one download attempt. Client errors (4xx) are permanent.
func (d *downloader) get(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP error: %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("create file: %w", err))
	}

	var downloaded int64
	pw := &progressWriter{
		out:        d.out,
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, backoff.Permanent(fmt.Errorf("rename file: %w", err))
	}
	return downloaded, nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
