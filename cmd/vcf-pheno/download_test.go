package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{50 * 1024 * 1024, "50.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.bytes))
	}
}

func testDownloader() *downloader {
	d := newDownloader(io.Discard)
	d.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	return d
}

func TestDownloader_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ncbi_gene_id\tgene_symbol\thpo_id\n")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), hpoGenesToPheno)
	require.NoError(t, testDownloader().fetch(context.Background(), srv.URL, dest))

	assert.Equal(t, int32(2), calls.Load())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ncbi_gene_id\tgene_symbol\thpo_id\n", string(data))
	assert.NoFileExists(t, dest+".tmp")
}

func TestDownloader_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), hpoGenesToPheno)
	err := testDownloader().fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
	assert.NoFileExists(t, dest)
}

func TestDownloader_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := testDownloader().fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x.txt"))
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestDownloader_SkipsExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), hpoGenesToPheno)
	require.NoError(t, os.WriteFile(dest, []byte("cached"), 0644))
	require.NoError(t, testDownloader().fetch(context.Background(), srv.URL, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))
}
