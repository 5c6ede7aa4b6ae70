package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_Outbound(t *testing.T) {
	env := newTestEnv(t)

	v := env.createRecord(t, "orders_out", "--related", "sale.order:SO042")
	assert.Equal(t, "demo", v.Backend)
	assert.Equal(t, "orders_out", v.Type)
	assert.Equal(t, "outbound", v.Direction)
	assert.Equal(t, "new", v.State)
	assert.Equal(t, "sale.order:SO042", v.Related)
	assert.False(t, v.HasFile)
	assert.NotEmpty(t, v.Filename)
}

func TestCreate_Text(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("create", "orders_in", "--filename", "order.json", "--external-id", "EXT-1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created ")
	assert.Contains(t, out, "order.json")
	assert.Contains(t, out, "EXT-1")
}

func TestCreate_InboundWithFile(t *testing.T) {
	env := newTestEnv(t)
	payload := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(payload, []byte(`{"order_ref":"PO-7"}`), 0o644))

	v := env.createRecord(t, "orders_in", "--state", "input_received", "--file", payload)
	assert.Equal(t, "input_received", v.State)
	assert.True(t, v.HasFile)

	shown := env.showRecord(t, v.ID)
	require.NotNil(t, shown.Content)
	assert.Equal(t, `{"order_ref":"PO-7"}`, *shown.Content)
}

func TestCreate_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{"unknown type", []string{"create", "invoices"}, ErrCodeUnknownType, ExitCommandError},
		{"bad state", []string{"create", "orders_in", "--state", "bogus"}, ErrCodeGeneric, ExitCommandError},
		{"bad related", []string{"create", "orders_out", "--related", "SO042"}, ErrCodeGeneric, ExitCommandError},
		{"missing payload file", []string{"create", "orders_in", "--file", filepath.Join(t.TempDir(), "nope.json")}, ErrCodeNotFound, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.runJSON(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestCreate_FileAndContentExclusive(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("create", "orders_in", "--file", "a.json", "--content", "{}")
	require.Error(t, err)
}

func TestShow_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON(t, "show", "no-such-record")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRecordNotFound, resp.Error.Code)
}

func TestList_Filters(t *testing.T) {
	env := newTestEnv(t)

	out1 := env.createRecord(t, "orders_out", "--related", "sale.order:SO042")
	env.createRecord(t, "orders_out", "--related", "sale.order:SO043")
	in := env.createRecord(t, "orders_in", "--related", "sale.order:SO042")

	tests := []struct {
		name    string
		args    []string
		wantIDs []string
	}{
		{"related", []string{"--related", "sale.order:SO042"}, []string{out1.ID, in.ID}},
		{"direction", []string{"--direction", "inbound"}, []string{in.ID}},
		{"type and related", []string{"--type", "orders_out", "--related", "sale.order:SO042"}, []string{out1.ID}},
		{"state", []string{"--state", "input_received"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.runJSON(t, append([]string{"list"}, tt.args...)...)
			require.NoError(t, err)

			var result ListResult
			resp.decode(t, &result)
			assert.Equal(t, len(tt.wantIDs), result.Total)
			ids := make([]string, len(result.Records))
			for i, r := range result.Records {
				ids[i] = r.ID
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestList_Text(t *testing.T) {
	env := newTestEnv(t)
	env.createRecord(t, "orders_out")

	out, err := env.run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "orders_out")
	assert.Contains(t, out, "1 record(s)")
}

func TestList_InvalidDirection(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("list", "--direction", "sideways")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLog_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("log", "sale.order:SO042")
	require.NoError(t, err)
	assert.Contains(t, out, "Activity on sale.order:SO042")
	assert.Contains(t, out, "(none)")
}
