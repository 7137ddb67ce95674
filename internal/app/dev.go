package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/weave/internal/adapters/devserver"
	"go.trai.ch/weave/internal/adapters/plugin"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/engine/builder"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DevOptions configuration for the Dev method.
type DevOptions struct {
	Options
	// Addr overrides dev.addr from the configuration.
	Addr string
}

// Dev builds the site once, then serves the output and rebuilds on every source change,
// pushing live updates to connected browsers. It returns when ctx is cancelled.
func (a *App) Dev(ctx context.Context, opts DevOptions) (err error) {
	cfg, hooks, err := a.load(opts.Options)
	if err != nil {
		return err
	}
	release := a.observe(ctx, cfg, opts.Options)
	defer func() { err = errors.Join(err, release()) }()

	if opts.Addr != "" {
		cfg.Dev.Addr = opts.Addr
	}
	cfg.Purge.Enabled = cfg.Dev.Purge
	hooks.Register(plugin.LiveReload{})

	env, err := a.newEnv(cfg, hooks)
	if err != nil {
		return err
	}
	b := builder.New(env)

	report, err := b.Build(ctx)
	if err != nil {
		return zerr.Wrap(err, "initial build failed")
	}
	a.logger.Info(report.String())

	w, err := a.newWatcher(a.logger, cfg.Dev.Debounce)
	if err != nil {
		return err
	}
	watchCtx, stopWatching := context.WithCancel(ctx)
	defer stopWatching()
	if err := w.Start(watchCtx, cfg.SourceDir, cfg.OutDir, filepath.Join(cfg.Root, domain.WeaveDirName)); err != nil {
		_ = w.Stop()
		return err
	}
	defer func() { _ = w.Stop() }()

	hub := devserver.NewHub(a.logger)
	defer hub.Close()
	server := devserver.New(cfg.Dev.Addr, cfg.OutDir, hub, a.metrics.Handler())

	var g errgroup.Group
	g.Go(func() error {
		defer stopWatching()
		if a.listener != nil {
			return server.ServeListener(ctx, a.listener)
		}
		return server.Serve(ctx)
	})
	g.Go(func() error {
		// Batches ends once the watcher is stopped. A batch in flight still finishes so
		// the output is never left half written.
		for batch := range w.Batches() {
			a.applyBatch(context.WithoutCancel(ctx), b, hub, batch)
		}
		return nil
	})

	a.logger.Info(fmt.Sprintf("serving %s on http://%s", cfg.OutDir, displayAddr(a.listener, cfg.Dev.Addr)))
	return g.Wait()
}

// applyBatch runs one incremental build per event, in order, and notifies clients of
// what changed. Failures are logged and do not stop the loop.
func (a *App) applyBatch(ctx context.Context, b *builder.Builder, notifier ports.Notifier, batch []domain.FileEvent) {
	var changed []string
	for _, event := range batch {
		a.logger.Debug(fmt.Sprintf("%s %s", event.Kind, event.Path))
		urls, err := b.IncrementalBuild(ctx, event.Path, event.Kind)
		if err != nil {
			a.logger.Error(err)
			continue
		}
		changed = append(changed, urls...)
	}

	for _, msg := range liveMessages(b.Session(), changed) {
		notifier.Broadcast(msg)
	}
}

// liveMessages turns changed output URLs into live-update messages. Stylesheets are
// swapped in place, pages are pushed with their new markup, and anything else asks for
// one reload.
func liveMessages(session *builder.Session, urls []string) []domain.LiveMessage {
	var (
		msgs   []domain.LiveMessage
		seen   = make(map[string]struct{})
		reload bool
	)
	for _, url := range urls {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}

		switch ext := strings.ToLower(path.Ext(url)); {
		case ext == ".css":
			msgs = append(msgs, domain.LiveMessage{Type: domain.LiveCSSUpdate, Path: url})
		case ext == ".html" || ext == ".htm":
			page, ok := session.Page(url)
			if !ok {
				reload = true
				continue
			}
			msgs = append(msgs, domain.LiveMessage{Type: domain.LivePageUpdate, Path: url, Content: page.HTML})
		default:
			reload = true
		}
	}
	if reload {
		msgs = append(msgs, domain.LiveMessage{Type: domain.LiveReload})
	}
	return msgs
}

func displayAddr(ln net.Listener, addr string) string {
	if ln != nil {
		return ln.Addr().String()
	}
	return addr
}
