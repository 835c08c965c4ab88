package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/services"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xlsx", "a.xlsx", "~$a.xlsx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	single := filepath.Join(t.TempDir(), "single.xlsx")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o644))

	paths, err := collect([]string{single, dir})

	require.NoError(t, err)
	assert.Equal(t, []string{single, filepath.Join(dir, "a.xlsx"), filepath.Join(dir, "b.xlsx")}, paths)
}

func TestCollect_MissingPath(t *testing.T) {
	_, err := collect([]string{filepath.Join(t.TempDir(), "missing.xlsx")})

	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	summary := &services.BatchSummary{
		RunID:       "run-1",
		Status:      "partial",
		FilesParsed: 1,
		ClientsOK:   1,
		Files: []*services.FileResult{
			{File: "34455_X_2026-01-10.xlsx", ClientID: "34455", Date: "2026-01-10", Holdings: 2, Total: 1000, Status: services.FileStatusOK},
			{File: "broken.xlsx", Status: services.FileStatusEmpty},
		},
	}

	var text bytes.Buffer
	require.NoError(t, printSummary(&text, summary, false))
	assert.Contains(t, text.String(), "34455_X_2026-01-10.xlsx")
	assert.Contains(t, text.String(), "1000.00")
	assert.Contains(t, text.String(), "run run-1: partial, 1/2 files parsed")

	var js bytes.Buffer
	require.NoError(t, printSummary(&js, summary, true))
	assert.Contains(t, js.String(), `"run_id": "run-1"`)
}
