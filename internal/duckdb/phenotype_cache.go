package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gatomis/vcf-pheno/internal/pheno"
)

// PhenotypeCache manages a gob-serialized term→gene table on disk, stored
// next to a fingerprint of the source file it was parsed from:
//
//	~/.vcf-pheno/{name}.gob       (serialized table)
//	~/.vcf-pheno/{name}.gob.meta  (source fingerprint)
type PhenotypeCache struct {
	dir  string
	name string
}

// NewPhenotypeCache creates a cache for the source file name in dir.
func NewPhenotypeCache(dir, name string) *PhenotypeCache {
	return &PhenotypeCache{dir: dir, name: filepath.Base(name)}
}

func (pc *PhenotypeCache) gobPath() string {
	return filepath.Join(pc.dir, pc.name+".gob")
}

func (pc *PhenotypeCache) metaPath() string {
	return filepath.Join(pc.dir, pc.name+".gob.meta")
}

// Valid checks whether the cached table matches the source fingerprint.
func (pc *PhenotypeCache) Valid(src FileFingerprint) bool {
	meta, err := pc.readMeta()
	if err != nil {
		return false
	}

	if meta["source_size"] != strconv.FormatInt(src.Size, 10) ||
		meta["source_modtime"] != src.ModTime.UTC().Format(time.RFC3339Nano) {
		return false
	}

	if _, err := os.Stat(pc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the cached table.
func (pc *PhenotypeCache) Load() (pheno.TermGeneTable, error) {
	f, err := os.Open(pc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open phenotype cache: %w", err)
	}
	defer f.Close()

	var table pheno.TermGeneTable
	if err := gob.NewDecoder(f).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode phenotype cache: %w", err)
	}
	return table, nil
}

// Write serializes table and records the source fingerprint.
func (pc *PhenotypeCache) Write(table pheno.TermGeneTable, src FileFingerprint) error {
	if err := os.MkdirAll(pc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	f, err := os.Create(pc.gobPath())
	if err != nil {
		return fmt.Errorf("create phenotype cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(table); err != nil {
		f.Close()
		os.Remove(pc.gobPath())
		return fmt.Errorf("encode phenotype cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close phenotype cache: %w", err)
	}

	return pc.writeMeta(src, len(table))
}

// Clear removes the cached files.
func (pc *PhenotypeCache) Clear() {
	os.Remove(pc.gobPath())
	os.Remove(pc.metaPath())
}

// LoadTermGeneTable returns the table for path, parsing the source only when
// the cache is missing or stale.
func (pc *PhenotypeCache) LoadTermGeneTable(path string) (table pheno.TermGeneTable, cached bool, err error) {
	fp, err := StatFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat phenotype table: %w", err)
	}

	if pc.Valid(fp) {
		if table, err := pc.Load(); err == nil {
			return table, true, nil
		}
	}

	table, err = pheno.LoadTermGeneTable(path)
	if err != nil {
		return nil, false, err
	}
	if err := pc.Write(table, fp); err != nil {
		pc.Clear()
		return table, false, err
	}
	return table, false, nil
}

func (pc *PhenotypeCache) writeMeta(src FileFingerprint, rows int) error {
	lines := []string{
		"source_path=" + src.Path,
		"source_size=" + strconv.FormatInt(src.Size, 10),
		"source_modtime=" + src.ModTime.UTC().Format(time.RFC3339Nano),
		"rows=" + strconv.Itoa(rows),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(pc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (pc *PhenotypeCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(pc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
