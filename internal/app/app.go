// Package app implements the application layer for weave.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/weave/internal/adapters/cas"
	"go.trai.ch/weave/internal/adapters/dedup"
	"go.trai.ch/weave/internal/adapters/httpcache"
	"go.trai.ch/weave/internal/adapters/metrics"
	"go.trai.ch/weave/internal/adapters/minify"
	"go.trai.ch/weave/internal/adapters/plugin"
	"go.trai.ch/weave/internal/adapters/telemetry"
	"go.trai.ch/weave/internal/adapters/watcher"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/engine/builder"
	"go.trai.ch/weave/internal/engine/processor"
	"go.trai.ch/zerr"
)

// logControl is implemented by loggers that can change verbosity and tee to a file.
type logControl interface {
	SetVerbose(enable bool)
	SetDebugFile(path string) error
	DebugWriter() io.Writer
	Close() error
}

// WatcherFactory creates a file watcher coalescing events within window.
type WatcherFactory func(logger ports.Logger, window time.Duration) (ports.Watcher, error)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	hasher       ports.Hasher
	walker       ports.SourceWalker
	minifier     ports.Minifier
	tracer       ports.Tracer
	metrics      *metrics.Recorder
	newWatcher   WatcherFactory
	listener     net.Listener
	plugins      []ports.Plugin
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	hasher ports.Hasher,
	walker ports.SourceWalker,
	minifier ports.Minifier,
	tracer ports.Tracer,
	recorder *metrics.Recorder,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		hasher:       hasher,
		walker:       walker,
		minifier:     minifier,
		tracer:       tracer,
		metrics:      recorder,
		newWatcher: func(logger ports.Logger, window time.Duration) (ports.Watcher, error) {
			return watcher.NewWatcher(logger, window)
		},
	}
}

// WithListener makes the development server accept connections on ln instead of
// listening on the configured address. This is primarily used for testing.
func (a *App) WithListener(ln net.Listener) *App {
	a.listener = ln
	return a
}

// WithWatcherFactory replaces the file watcher constructor.
func (a *App) WithWatcherFactory(f WatcherFactory) *App {
	a.newWatcher = f
	return a
}

// WithPlugins registers extra plugins after the built-in ones.
func (a *App) WithPlugins(plugins ...ports.Plugin) *App {
	a.plugins = append(a.plugins, plugins...)
	return a
}

// Options are shared by every command.
type Options struct {
	// ConfigPath is the weave.yaml to load. Empty means weave.yaml in the working directory.
	ConfigPath string
	Verbose    bool
	// Trace exports build spans as JSON into the debug log.
	Trace bool
}

// Build runs a full build and returns its report.
func (a *App) Build(ctx context.Context, opts Options) (_ *builder.Report, err error) {
	cfg, hooks, err := a.load(opts)
	if err != nil {
		return nil, err
	}
	release := a.observe(ctx, cfg, opts)
	defer func() { err = errors.Join(err, release()) }()

	env, err := a.newEnv(cfg, hooks)
	if err != nil {
		return nil, err
	}

	report, err := builder.New(env).Build(ctx)
	if err != nil {
		return nil, zerr.Wrap(err, "build failed")
	}
	a.logger.Info(report.String())
	return report, nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Options
	// Cache also removes the persisted HTTP cache.
	Cache bool
}

// Clean removes build artifacts and, optionally, the cache.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	cfg, err := a.configLoader.Load(configPath(options.ConfigPath))
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	remove(cfg.OutDir, "output directory")

	if options.Cache {
		remove(filepath.Join(cfg.Root, domain.DefaultCachePath()), "cache")
		if !within(filepath.Join(cfg.Root, domain.DefaultCachePath()), cfg.Cache.Dir) {
			remove(cfg.Cache.Dir, "http cache")
		}
	}

	return errs
}

// load reads the configuration and lets plugins adjust it.
func (a *App) load(opts Options) (*domain.Config, *plugin.Pipeline, error) {
	cfg, err := a.configLoader.Load(configPath(opts.ConfigPath))
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load configuration")
	}

	hooks := plugin.NewPipeline(a.logger)
	if cfg.Plugins.GeneratorMeta {
		hooks.Register(plugin.NewGeneratorMeta())
	}
	for _, p := range a.plugins {
		hooks.Register(p)
	}
	hooks.PreConfig(cfg)
	a.logger.Debug(fmt.Sprintf("plugins: %v", hooks.Plugins()))

	return cfg, hooks, nil
}

// observe applies the logging options and returns the function that releases them.
func (a *App) observe(ctx context.Context, cfg *domain.Config, opts Options) func() error {
	noop := func() error { return nil }

	ctl, ok := a.logger.(logControl)
	if !ok {
		return noop
	}
	ctl.SetVerbose(opts.Verbose)
	if !opts.Verbose && !opts.Trace {
		return noop
	}

	if err := ctl.SetDebugFile(filepath.Join(cfg.Root, domain.DefaultDebugLogPath())); err != nil {
		a.logger.Warn(fmt.Sprintf("debug log disabled: %v", err))
		return noop
	}
	if !opts.Trace {
		return ctl.Close
	}

	shutdown, err := telemetry.Setup(ctl.DebugWriter())
	if err != nil {
		a.logger.Warn(fmt.Sprintf("tracing disabled: %v", err))
		return ctl.Close
	}
	return func() error {
		return errors.Join(shutdown(context.WithoutCancel(ctx)), ctl.Close())
	}
}

// newEnv builds the processor environment for cfg.
func (a *App) newEnv(cfg *domain.Config, hooks ports.Hooks) (*processor.Env, error) {
	caches, err := cas.NewCaches(cfg.Cache.Entries, a.metrics)
	if err != nil {
		return nil, err
	}

	fetchOpts := []httpcache.Option{httpcache.WithMetrics(a.metrics)}
	if !cfg.Cache.HTTP {
		fetchOpts = append(fetchOpts, httpcache.WithoutPersistence())
	}
	if cfg.Cache.RequestsPerSecond > 0 {
		fetchOpts = append(fetchOpts, httpcache.WithRateLimit(cfg.Cache.RequestsPerSecond))
	}

	return &processor.Env{
		Config:   cfg,
		Logger:   a.logger,
		Hooks:    hooks,
		Fetcher:  httpcache.New(cfg.Cache.Dir, fetchOpts...),
		Minifier: a.minifier,
		Purger:   minify.NewPurger(cfg.Purge.Safelist),
		Hasher:   a.hasher,
		Dedup:    dedup.NewDefault(),
		Walker:   a.walker,
		Metrics:  a.metrics,
		Tracer:   a.tracer,
		Caches:   processor.Caches{CSS: caches.CSS, JS: caches.JS, HTML: caches.HTML},
		Limiter:  processor.NewLimiter(cfg.Workers),
	}, nil
}

func configPath(path string) string {
	if path == "" {
		return domain.ConfigFileName
	}
	return path
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
