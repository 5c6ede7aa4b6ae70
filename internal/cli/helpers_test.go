package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is a config file plus the directories it points at.
type testEnv struct {
	Config  string
	Inbox   string
	Outbox  string
	Archive string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	catalogDir, err := filepath.Abs(filepath.Join("testdata", "catalog"))
	require.NoError(t, err)
	templatesDir, err := filepath.Abs(filepath.Join("testdata", "templates"))
	require.NoError(t, err)

	env := &testEnv{
		Config:  filepath.Join(dir, "edix.yaml"),
		Inbox:   filepath.Join(dir, "inbox"),
		Outbox:  filepath.Join(dir, "outbox"),
		Archive: filepath.Join(dir, "archive"),
	}
	require.NoError(t, os.MkdirAll(env.Inbox, 0o755))

	content := fmt.Sprintf(`database: %q
catalog_dir: %q
log:
  level: error
files:
  inbox: %q
  outbox: %q
  archive: %q
  templates: %q
validate:
  json_external_id_key: order_ref
`, filepath.Join(dir, "data", "edix.db"), catalogDir, env.Inbox, env.Outbox, env.Archive, templatesDir)
	require.NoError(t, os.WriteFile(env.Config, []byte(content), 0o644))
	return env
}

// run executes the root command with the env's config and returns stdout.
func (e *testEnv) run(args ...string) (string, error) {
	return execute(append([]string{"--config", e.Config}, args...)...)
}

// runJSON executes with --format json and decodes the response envelope.
func (e *testEnv) runJSON(t *testing.T, args ...string) (jsonResponse, error) {
	t.Helper()
	out, err := e.run(append([]string{"--format", "json"}, args...)...)
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func execute(args ...string) (string, error) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func (r jsonResponse) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

// createRecord creates a record and returns its view.
func (e *testEnv) createRecord(t *testing.T, args ...string) RecordView {
	t.Helper()
	resp, err := e.runJSON(t, append([]string{"create"}, args...)...)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)
	var v RecordView
	resp.decode(t, &v)
	require.NotEmpty(t, v.ID)
	return v
}

func (e *testEnv) showRecord(t *testing.T, id string) RecordView {
	t.Helper()
	resp, err := e.runJSON(t, "show", id, "--content")
	require.NoError(t, err)
	var v RecordView
	resp.decode(t, &v)
	return v
}
