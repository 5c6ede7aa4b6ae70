// Package config loads edix runtime settings from YAML and EDIX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds runtime settings. The exchange catalog itself is CUE,
// loaded from CatalogDir by the compiler.
type Config struct {
	// Database is the SQLite file holding exchange records.
	Database string `mapstructure:"database"`

	// CatalogDir is the directory of CUE files declaring backends and exchange types.
	CatalogDir string `mapstructure:"catalog_dir"`

	// Backend is the backend code used when a command names none.
	// Empty means the catalog's only backend.
	Backend string `mapstructure:"backend"`

	// ActivityKinds lists the entity kinds with an activity log.
	// Empty logs activity for every kind.
	ActivityKinds []string `mapstructure:"activity_kinds"`

	Log      LogConfig      `mapstructure:"log"`
	Lock     LockConfig     `mapstructure:"lock"`
	Events   EventsConfig   `mapstructure:"events"`
	Files    FilesConfig    `mapstructure:"files"`
	Validate ValidateConfig `mapstructure:"validate"`
	Batch    BatchConfig    `mapstructure:"batch"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json

	// File, when set, receives logs instead of stderr.
	File     string         `mapstructure:"file"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures lumberjack rotation of LogConfig.File.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// LockConfig selects the per-record Locker.
type LockConfig struct {
	Backend string      `mapstructure:"backend"` // memory | redis
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig addresses the Redis server used for record locks.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Namespace  string `mapstructure:"namespace"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// EventsConfig enables publishing exchange events to NSQ.
type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	NSQAddr string `mapstructure:"nsq_addr"`
	Topic   string `mapstructure:"topic"`
}

// FilesConfig locates the directories used by the file strategies.
type FilesConfig struct {
	Inbox   string `mapstructure:"inbox"`
	Outbox  string `mapstructure:"outbox"`
	Archive string `mapstructure:"archive"`

	// Templates holds one <exchange type>.tmpl file per generated type.
	Templates string `mapstructure:"templates"`
}

// ValidateConfig configures the json.validate and xml.validate components.
type ValidateConfig struct {
	JSONRequiredKeys  []string `mapstructure:"json_required_keys"`
	JSONExternalIDKey string   `mapstructure:"json_external_id_key"`
	XMLRootTag        string   `mapstructure:"xml_root_tag"`
	XMLExternalIDPath string   `mapstructure:"xml_external_id_path"`
}

// BatchConfig bounds batch parallelism.
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database:   "edix.db",
		CatalogDir: "catalog",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Lock: LockConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:       "127.0.0.1:6379",
				Namespace:  "edix",
				TTLSeconds: 300,
			},
		},
		Events: EventsConfig{
			NSQAddr: "127.0.0.1:4150",
			Topic:   "edi.exchange.events",
		},
		Files: FilesConfig{
			Inbox:     "inbox",
			Outbox:    "outbox",
			Archive:   "archive",
			Templates: "templates",
		},
		Batch: BatchConfig{Workers: 4},
	}
}

// Load reads settings from path (or EDIX_CONFIG, or edix.yaml in the
// usual places) over the defaults. EDIX_* variables override both, with
// "." replaced by "_" (EDIX_LOCK_REDIS_ADDR). A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("EDIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("database", cfg.Database)
	v.SetDefault("catalog_dir", cfg.CatalogDir)
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("lock.backend", cfg.Lock.Backend)
	v.SetDefault("lock.redis.addr", cfg.Lock.Redis.Addr)
	v.SetDefault("lock.redis.password", cfg.Lock.Redis.Password)
	v.SetDefault("lock.redis.db", cfg.Lock.Redis.DB)
	v.SetDefault("lock.redis.namespace", cfg.Lock.Redis.Namespace)
	v.SetDefault("lock.redis.ttl_seconds", cfg.Lock.Redis.TTLSeconds)
	v.SetDefault("events.enabled", cfg.Events.Enabled)
	v.SetDefault("events.nsq_addr", cfg.Events.NSQAddr)
	v.SetDefault("events.topic", cfg.Events.Topic)
	v.SetDefault("files.inbox", cfg.Files.Inbox)
	v.SetDefault("files.outbox", cfg.Files.Outbox)
	v.SetDefault("files.archive", cfg.Files.Archive)
	v.SetDefault("files.templates", cfg.Files.Templates)
	v.SetDefault("validate.json_external_id_key", cfg.Validate.JSONExternalIDKey)
	v.SetDefault("validate.xml_root_tag", cfg.Validate.XMLRootTag)
	v.SetDefault("validate.xml_external_id_path", cfg.Validate.XMLExternalIDPath)
	v.SetDefault("batch.workers", cfg.Batch.Workers)

	if path == "" {
		if envPath := os.Getenv("EDIX_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("edix")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".edix"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format: %q (want text or json)", c.Log.Format)
	}

	switch c.Lock.Backend {
	case "memory":
	case "redis":
		if c.Lock.Redis.Addr == "" {
			return errors.New("lock.redis.addr is required when lock.backend is redis")
		}
	default:
		return fmt.Errorf("invalid lock.backend: %q (want memory or redis)", c.Lock.Backend)
	}

	if c.Events.Enabled && c.Events.NSQAddr == "" {
		return errors.New("events.nsq_addr is required when events are enabled")
	}

	if c.Database == "" {
		return errors.New("database is required")
	}
	if c.Batch.Workers < 1 {
		c.Batch.Workers = 1
	}
	return nil
}
