package builder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/cas"
	"go.trai.ch/weave/internal/adapters/dedup"
	"go.trai.ch/weave/internal/adapters/fs"
	"go.trai.ch/weave/internal/adapters/httpcache"
	"go.trai.ch/weave/internal/adapters/metrics"
	"go.trai.ch/weave/internal/adapters/minify"
	"go.trai.ch/weave/internal/adapters/plugin"
	"go.trai.ch/weave/internal/adapters/telemetry"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/core/ports/mocks"
	"go.trai.ch/weave/internal/engine/builder"
	"go.trai.ch/weave/internal/engine/processor"
	"go.uber.org/mock/gomock"
)

// planTracer records the page plan of a build.
type planTracer struct {
	telemetry.NoOpTracer

	mu   sync.Mutex
	plan []string
}

func (p *planTracer) EmitPlan(_ context.Context, pages []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plan = pages
}

type fixture struct {
	t       *testing.T
	cfg     *domain.Config
	env     *processor.Env
	logger  *mocks.MockLogger
	tracer  *planTracer
	builder *builder.Builder
}

func newFixture(t *testing.T, expect func(*mocks.MockLogger), configure ...func(*domain.Config)) *fixture {
	t.Helper()

	root := t.TempDir()
	cfg := domain.DefaultConfig(root)
	cfg.TemplatesDir = filepath.Join(cfg.SourceDir, "templates")
	cfg.Workers = 2
	cfg.Minify.HTML = false
	for _, fn := range configure {
		fn(cfg)
	}
	require.NoError(t, os.MkdirAll(cfg.TemplatesDir, domain.DirPerm))

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	if expect != nil {
		expect(logger)
	}
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	caches, err := cas.NewCaches(32, nil)
	require.NoError(t, err)

	tracer := &planTracer{}
	plugins := []ports.Plugin{&plugin.GeneratorMeta{Version: "test"}}
	env := &processor.Env{
		Config:   cfg,
		Logger:   logger,
		Hooks:    plugin.NewPipeline(logger, plugins...),
		Fetcher:  httpcache.New(filepath.Join(root, domain.DefaultHTTPCachePath()), httpcache.WithoutPersistence()),
		Minifier: minify.New(),
		Purger:   minify.NewPurger(nil),
		Hasher:   cas.NewHasher(),
		Dedup:    dedup.NewDefault(),
		Walker:   fs.NewWalker(),
		Metrics:  metrics.NewRecorder(prometheus.NewRegistry()),
		Tracer:   tracer,
		Caches:   processor.Caches{CSS: caches.CSS, JS: caches.JS, HTML: caches.HTML},
		Limiter:  processor.NewLimiter(cfg.Workers),
	}

	return &fixture{t: t, cfg: cfg, env: env, logger: logger, tracer: tracer, builder: builder.New(env)}
}

func (f *fixture) src(rel string) string {
	return filepath.Join(f.cfg.SourceDir, filepath.FromSlash(rel))
}

func (f *fixture) write(rel, content string) string {
	f.t.Helper()
	path := f.src(rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(f.t, os.WriteFile(path, []byte(content), domain.FilePerm))
	return path
}

func (f *fixture) remove(rel string) string {
	f.t.Helper()
	path := f.src(rel)
	require.NoError(f.t, os.Remove(path))
	return path
}

func (f *fixture) out(rel string) string {
	return filepath.Join(f.cfg.OutDir, filepath.FromSlash(rel))
}

func (f *fixture) read(rel string) string {
	f.t.Helper()
	data, err := os.ReadFile(f.out(rel))
	require.NoError(f.t, err)
	return string(data)
}

func (f *fixture) build() *builder.Report {
	f.t.Helper()
	report, err := f.builder.Build(f.t.Context())
	require.NoError(f.t, err)
	return report
}

func sharedServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeSite lays out a small site: two pages, nested templates, a stylesheet, a script
// and an image.
func (f *fixture) writeSite(sharedCSS string) {
	f.write("templates/layout.html", `<header><include-nav></include-nav></header><main>{{children}}</main>`)
	f.write("templates/nav.html", `<nav><a href="/">{{title}}</a></nav>`)
	f.write("css/site.css", ".lead { color: red; }\n.unused { color: blue; }\n")
	f.write("js/app.js", "console.log( 'hi' );\n")
	f.write("img/logo.png", "png")

	links := `<link rel="stylesheet" href="css/site.css">`
	if sharedCSS != "" {
		links += `<link rel="stylesheet" href="` + sharedCSS + `">`
	}
	f.write("index.html", `<!DOCTYPE html><html><head><title>Home</title>`+links+`</head><body>`+
		`<include-layout title="Home"><p class="lead">Hello</p><img src="img/logo.png"></include-layout>`+
		`<script src="js/app.js"></script></body></html>`)
	f.write("about.html", `<html><head></head><body><include-nav title="About"></include-nav></body></html>`)
}
