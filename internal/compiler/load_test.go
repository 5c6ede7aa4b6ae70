package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edix/internal/ir"
)

func TestLoadCatalogTestdata(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join("testdata", "demo"))
	require.NoError(t, err)

	_, ok := cat.BackendType("demo_type")
	assert.True(t, ok)

	types := cat.ExchangeTypes("demo")
	require.Len(t, types, 2)
	assert.Equal(t, "orders_in", types[0].Code)
	assert.Equal(t, ir.DirectionInbound, types[0].Direction)
	assert.Equal(t, "json.validate", types[0].Usage(ir.OpValidate))
	assert.Equal(t, "orders_out", types[1].Code)

	ws, ok := cat.Webservice("demo_ws")
	require.True(t, ok)
	assert.Equal(t, "application/json", ws.ContentType)
}

func TestLoadDirCountsFiles(t *testing.T) {
	_, n, err := LoadDir(filepath.Join("testdata", "demo"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLoadDirNotFound(t *testing.T) {
	_, _, err := LoadDir("/nonexistent/catalog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadDirNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.cue")
	require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0644))

	_, _, err := LoadDir(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestLoadDirEmpty(t *testing.T) {
	_, _, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files found")
}

func TestLoadCatalogInvalid(t *testing.T) {
	dir := t.TempDir()
	src := `
package catalog

backend: b: type: "undeclared"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(src), 0644))

	_, err := LoadCatalog(dir)
	require.Error(t, err)
	var ve *ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrUnknownBackendType, ve.Errors[0].Code)
}

func TestFindCUEFiles(t *testing.T) {
	files, err := FindCUEFiles(filepath.Join("testdata", "demo"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
