// Package duckdb persists ranked analysis results in DuckDB and caches parsed
// phenotype tables as gob files.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding ranked variant runs.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		source VARCHAR,
		created_at TIMESTAMP,
		n_total BIGINT,
		n_pass BIGINT,
		snps BIGINT,
		indels BIGINT,
		ti BIGINT,
		tv BIGINT,
		skipped_lines BIGINT
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ranked_variants (
		run_id VARCHAR,
		rank BIGINT,
		chrom VARCHAR,
		pos BIGINT,
		id VARCHAR,
		ref VARCHAR,
		alt VARCHAR,
		qual DOUBLE,
		filter VARCHAR,
		gene VARCHAR,
		consequence VARCHAR,
		impact VARCHAR,
		hgvsc VARCHAR,
		hgvsp VARCHAR,
		af DOUBLE,
		dp DOUBLE,
		mq DOUBLE,
		gt VARCHAR,
		pheno_score BIGINT,
		pheno_match BOOLEAN,
		panel_match BOOLEAN,
		priority DOUBLE,
		PRIMARY KEY (run_id, rank)
	)`)
	return err
}
