package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EDIX_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/edix/records.db
catalog_dir: /etc/edix/catalog
activity_kinds: [sale.order]
log:
  level: debug
  format: json
lock:
  backend: redis
  redis:
    addr: redis:6379
events:
  enabled: true
  topic: custom.topic
files:
  archive: /srv/edi/archive
validate:
  json_required_keys: [order_ref, lines]
  json_external_id_key: order_ref
batch:
  workers: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/edix/records.db", cfg.Database)
	assert.Equal(t, "/etc/edix/catalog", cfg.CatalogDir)
	assert.Equal(t, []string{"sale.order"}, cfg.ActivityKinds)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "redis", cfg.Lock.Backend)
	assert.Equal(t, "redis:6379", cfg.Lock.Redis.Addr)
	assert.Equal(t, "edix", cfg.Lock.Redis.Namespace)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, "127.0.0.1:4150", cfg.Events.NSQAddr)
	assert.Equal(t, "custom.topic", cfg.Events.Topic)
	assert.Equal(t, "/srv/edi/archive", cfg.Files.Archive)
	assert.Equal(t, "inbox", cfg.Files.Inbox)
	assert.Equal(t, []string{"order_ref", "lines"}, cfg.Validate.JSONRequiredKeys)
	assert.Equal(t, "order_ref", cfg.Validate.JSONExternalIDKey)
	assert.Equal(t, 8, cfg.Batch.Workers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "database: from-file.db\n")
	t.Setenv("EDIX_DATABASE", "from-env.db")
	t.Setenv("EDIX_LOCK_REDIS_NAMESPACE", "tenant-a")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database)
	assert.Equal(t, "tenant-a", cfg.Lock.Redis.Namespace)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"log level", "log:\n  level: loud\n", "invalid log.level"},
		{"log format", "log:\n  format: xml\n", "invalid log.format"},
		{"lock backend", "lock:\n  backend: etcd\n", "invalid lock.backend"},
		{"malformed", "database: [\n", "read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
