package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/edix/internal/component"
	"github.com/roach88/edix/internal/config"
	"github.com/roach88/edix/internal/engine"
	"github.com/roach88/edix/internal/ir"
	"github.com/roach88/edix/internal/lock"
	"github.com/roach88/edix/internal/logging"
	"github.com/roach88/edix/internal/notify"
	"github.com/roach88/edix/internal/store"
	"github.com/roach88/edix/internal/strategies"
	"github.com/roach88/edix/internal/webservice"
)

// App is the runtime a lifecycle command works with: settings, the
// compiled catalog, the record store and the Backend wired to them.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Catalog   *ir.Catalog
	Store     *store.Store
	Backend   *engine.Backend
	Exchanger *engine.Exchanger

	closers []func() error
}

// Close releases the store, the log file and any broker connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openApp builds the App for a command. Errors are reported through
// formatter and returned as *ExitError.
func openApp(opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	app := &App{Config: cfg}
	fail := func(code, message string) (*App, error) {
		_ = app.Close()
		return nil, formatter.Fail(ExitCommandError, code, message, nil)
	}

	logger, logCloser, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fail(ErrCodeConfig, err.Error())
	}
	app.Logger = logger
	app.closers = append(app.closers, logCloser.Close)

	loaded, err := LoadCatalogDir(cfg.CatalogDir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return fail(loadErr.Code, loadErr.Message)
		}
		return fail(ErrCodeGeneric, err.Error())
	}
	if len(loaded.Errors) > 0 {
		return fail(loaded.Errors[0].Code, fmt.Sprintf("invalid catalog: %s", loaded.Errors[0].Error()))
	}
	app.Catalog = loaded.Catalog

	backendCode, err := selectBackend(app.Catalog, opts.Backend, cfg.Backend)
	if err != nil {
		return fail(ErrCodeGeneric, err.Error())
	}

	if dir := filepath.Dir(cfg.Database); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail(ErrCodeStore, fmt.Sprintf("create database directory: %v", err))
		}
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return fail(ErrCodeStore, err.Error())
	}
	app.Store = st
	app.closers = append(app.closers, st.Close)

	reg, err := newRegistry(cfg, app.Catalog, logger)
	if err != nil {
		return fail(ErrCodeGeneric, err.Error())
	}

	sink, err := app.newSink()
	if err != nil {
		return fail(ErrCodeGeneric, err.Error())
	}

	locker, err := app.newLocker()
	if err != nil {
		return fail(ErrCodeGeneric, err.Error())
	}

	backend, err := engine.New(engine.Config{
		Backend:  backendCode,
		Catalog:  app.Catalog,
		Registry: reg,
		Store:    st,
		Notifier: notify.New(sink, notify.WithLogger(logger)),
		Locker:   locker,
		Logger:   logger,
	})
	if err != nil {
		return fail(ErrCodeGeneric, err.Error())
	}
	app.Backend = backend
	app.Exchanger = engine.NewExchanger(backend, cfg.Batch.Workers)

	formatter.VerboseLog("Backend %s, catalog %s, database %s", backendCode, cfg.CatalogDir, cfg.Database)
	return app, nil
}

// selectBackend picks the flag, then the configured backend, then the
// catalog's only backend.
func selectBackend(cat *ir.Catalog, flag, configured string) (string, error) {
	code := flag
	if code == "" {
		code = configured
	}
	if code != "" {
		if _, ok := cat.Backend(code); !ok {
			return "", fmt.Errorf("unknown backend %q", code)
		}
		return code, nil
	}

	backends := cat.Backends()
	if len(backends) != 1 {
		codes := make([]string, len(backends))
		for i, b := range backends {
			codes[i] = b.Code
		}
		return "", fmt.Errorf("catalog declares %d backends (%s), select one with --backend", len(backends), strings.Join(codes, ", "))
	}
	return backends[0].Code, nil
}

// newRegistry registers the webservice adapters and the built-in
// strategies configured in cfg, then freezes the registry.
func newRegistry(cfg *config.Config, cat *ir.Catalog, logger *slog.Logger) (*component.Registry, error) {
	reg := component.NewRegistry()
	adapter := webservice.NewHTTPAdapter(&http.Client{}, logger.With("component", "webservice"))
	if err := webservice.Register(reg, adapter); err != nil {
		return nil, err
	}

	templates, err := loadTemplates(cfg.Files.Templates)
	if err != nil {
		return nil, err
	}
	err = strategies.Register(reg, strategies.Options{
		Catalog: cat,
		Inbox:   cfg.Files.Inbox,
		Outbox:  cfg.Files.Outbox,
		Archive: cfg.Files.Archive,
		JSON: strategies.JSONOptions{
			RequiredKeys:  cfg.Validate.JSONRequiredKeys,
			ExternalIDKey: cfg.Validate.JSONExternalIDKey,
		},
		XML: strategies.XMLOptions{
			RootTag:        cfg.Validate.XMLRootTag,
			ExternalIDPath: cfg.Validate.XMLExternalIDPath,
		},
		Templates: templates,
		Logger:    logger.With("component", "strategies"),
	})
	if err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}

// loadTemplates reads <type>.tmpl files from dir. A missing dir yields none.
func loadTemplates(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("scan templates: %w", err)
	}
	templates := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read template: %w", err)
		}
		templates[strings.TrimSuffix(filepath.Base(p), ".tmpl")] = string(data)
	}
	return templates, nil
}

// newSink logs activity in the store, restricted to the configured
// kinds when any are listed, and publishes to NSQ when events are on.
func (a *App) newSink() (notify.Sink, error) {
	activity := notify.NewStoreActivityLog(a.Store)

	var sink notify.Sink = notify.SinkFunc(activity.LogActivity)
	if len(a.Config.ActivityKinds) > 0 {
		entities := notify.NewEntityRegistry()
		for _, kind := range a.Config.ActivityKinds {
			if err := entities.Register(kind, activity); err != nil {
				return nil, err
			}
		}
		sink = entities
	}

	ev := a.Config.Events
	if !ev.Enabled {
		return sink, nil
	}
	producer, err := notify.NewNSQProducer(ev.NSQAddr)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		producer.Stop()
		return nil
	})
	return notify.Multi{sink, notify.NewEventPublisher(producer, ev.Topic)}, nil
}

func (a *App) newLocker() (engine.Locker, error) {
	lc := a.Config.Lock
	if lc.Backend != "redis" {
		return engine.NewKeyedMutex(), nil
	}

	client := lock.NewRedisClient(lc.Redis.Addr, lc.Redis.Password, lc.Redis.DB)
	a.closers = append(a.closers, client.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis %s: %w", lc.Redis.Addr, err)
	}

	locker := lock.NewRedisLocker(client, lc.Redis.Namespace)
	if lc.Redis.TTLSeconds > 0 {
		locker.TTL = time.Duration(lc.Redis.TTLSeconds) * time.Second
	}
	return locker, nil
}
