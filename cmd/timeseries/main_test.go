package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/fyerfyer/fund-info-parser/config"
	"github.com/fyerfyer/fund-info-parser/internal/timeseries"
	"github.com/fyerfyer/fund-info-parser/pkg/storage"
)

func newTestFetcher(t *testing.T) *timeseries.Fetcher {
	t.Helper()
	return newTestFetcherAt(t, t.TempDir())
}

// newTestFetcherAt 在 root 下写入映射和两条历史序列
func newTestFetcherAt(t *testing.T, root string) *timeseries.Fetcher {
	t.Helper()
	cfg, err := appconfig.Load("")
	require.NoError(t, err)
	cfg.Storage.Type = "local"
	cfg.Storage.Path = root

	ctx := context.Background()
	mapping, err := storage.Open(storage.Config{Type: "local", Path: cfg.Storage.Path}, cfg.Storage.MappingBucket)
	require.NoError(t, err)
	processed, err := storage.Open(storage.Config{Type: "local", Path: cfg.Storage.Path}, cfg.Storage.ProcessedBucket)
	require.NoError(t, err)

	_, err = mapping.Save(ctx, cfg.Storage.MappingBlob, strings.NewReader(`{"TQQQ":"FIGI1","SQQQ":"FIGI2"}`))
	require.NoError(t, err)
	_, err = processed.Save(ctx, "historical/FIGI1/PX_LAST.json",
		strings.NewReader(`{"data":{"2024-01-02":51.5,"2024-01-03":52.1}}`))
	require.NoError(t, err)
	_, err = processed.Save(ctx, "historical/FIGI2/PX_LAST.json",
		strings.NewReader(`{"data":{"2024-01-03":11.5,"2024-01-04":10}}`))
	require.NoError(t, err)

	fetcher, err := setupFetcher(cfg, nil)
	require.NoError(t, err)
	return fetcher
}

func TestRun(t *testing.T) {
	fetcher := newTestFetcher(t)
	ctx := context.Background()

	t.Run("single series", func(t *testing.T) {
		var buf bytes.Buffer
		err := run(ctx, fetcher, &options{Ticker: "TQQQ", DataType: "PX_LAST"}, &buf)
		require.NoError(t, err)
		assert.Equal(t, "date,Close Price (USD)\n2024-01-02,51.5\n2024-01-03,52.1\n", buf.String())
	})

	t.Run("compare aligns dates", func(t *testing.T) {
		var buf bytes.Buffer
		err := run(ctx, fetcher, &options{Ticker: "TQQQ", DataType: "PX_LAST", Compare: "SQQQ"}, &buf)
		require.NoError(t, err)
		assert.Equal(t, "date,TQQQ Close Price (USD),SQQQ Close Price (USD)\n2024-01-03,52.1,11.5\n", buf.String())
	})

	t.Run("unknown ticker", func(t *testing.T) {
		err := run(ctx, fetcher, &options{Ticker: "NOPE", DataType: "PX_LAST"}, io.Discard)
		assert.True(t, errors.Is(err, timeseries.ErrLookup))
	})
}

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-type", "PX_VOLUME", "TQQQ"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "TQQQ", opts.Ticker)
	assert.Equal(t, "PX_VOLUME", opts.DataType)

	_, err = parseArgs([]string{}, io.Discard)
	assert.Error(t, err)
}

func TestExecute(t *testing.T) {
	root := t.TempDir()
	newTestFetcherAt(t, root)
	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("STORAGE_PATH", root)

	t.Run("missing ticker", func(t *testing.T) {
		var stderr bytes.Buffer
		assert.Equal(t, 2, execute([]string{}, io.Discard, &stderr))
		assert.Contains(t, stderr.String(), "a ticker is required")
	})

	t.Run("help", func(t *testing.T) {
		assert.Equal(t, 0, execute([]string{"-h"}, io.Discard, io.Discard))
	})

	t.Run("writes csv to stdout", func(t *testing.T) {
		var stdout bytes.Buffer
		require.Equal(t, 0, execute([]string{"TQQQ"}, &stdout, io.Discard))
		assert.Equal(t, "date,Close Price (USD)\n2024-01-02,51.5\n2024-01-03,52.1\n", stdout.String())
	})

	t.Run("output file closed before exit", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "tqqq.csv")
		require.Equal(t, 0, execute([]string{"-out", out, "TQQQ"}, io.Discard, io.Discard))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "date,Close Price (USD)\n2024-01-02,51.5\n2024-01-03,52.1\n", string(data))
	})

	t.Run("unknown ticker", func(t *testing.T) {
		var stderr bytes.Buffer
		assert.Equal(t, 1, execute([]string{"NOPE"}, io.Discard, &stderr))
		assert.Contains(t, stderr.String(), "NOPE")
	})

	t.Run("unwritable output", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "missing", "tqqq.csv")
		assert.Equal(t, 1, execute([]string{"-out", out, "TQQQ"}, io.Discard, io.Discard))
	})
}
