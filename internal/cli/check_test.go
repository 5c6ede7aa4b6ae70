package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edix/internal/ir"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(content), 0o644))
	return dir
}

func TestCheck_Valid(t *testing.T) {
	out, err := execute("check", filepath.Join("testdata", "catalog"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid: 1 backend(s), 2 exchange type(s)")
}

func TestCheck_ValidJSON(t *testing.T) {
	out, err := execute("--format", "json", "check", filepath.Join("testdata", "catalog"))
	require.NoError(t, err)

	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	var result CheckResult
	resp.decode(t, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.Backends)
	assert.Equal(t, 2, result.ExchangeTypes)
}

func TestCheck_InvalidCatalog(t *testing.T) {
	dir := writeCatalog(t, `package catalog

backend: demo: {
	name: "Demo"
	type: "missing_type"
}
`)

	out, err := execute("check", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E202")
}

func TestCheck_InvalidCatalogJSON(t *testing.T) {
	dir := writeCatalog(t, `package catalog

backend: demo: {
	name: "Demo"
	type: "missing_type"
}
`)

	out, err := execute("--format", "json", "check", dir)
	require.Error(t, err)

	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E202", resp.Error.Code)
}

func TestCheck_LoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		dir      func(t *testing.T) string
		wantCode string
	}{
		{
			name:     "not found",
			dir:      func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			wantCode: ErrCodeNotFound,
		},
		{
			name:     "no cue files",
			dir:      func(t *testing.T) string { return t.TempDir() },
			wantCode: ErrCodeNoFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute("--format", "json", "check", tt.dir(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp jsonResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestCompile_JSON(t *testing.T) {
	out, err := execute("--format", "json", "compile", filepath.Join("testdata", "catalog"))
	require.NoError(t, err)

	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	var spec ir.CatalogSpec
	resp.decode(t, &spec)
	require.Len(t, spec.BackendTypes, 1)
	assert.Equal(t, "demo_type", spec.BackendTypes[0].Code)
	require.Len(t, spec.ExchangeTypes, 2)
}

func TestCompile_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	out, err := execute("compile", filepath.Join("testdata", "catalog"), "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 backend(s), 2 exchange type(s)")
	assert.Contains(t, out, "template.generate")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var spec ir.CatalogSpec
	require.NoError(t, json.Unmarshal(data, &spec))
	assert.Len(t, spec.Backends, 1)
}
