package processor_test

import (
	"os"
	"path/filepath"
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
	"go.trai.ch/weave/internal/engine/processor"
	"go.uber.org/mock/gomock"
)

type siteOptions struct {
	expect  func(*mocks.MockLogger)
	plugins []ports.Plugin
}

type siteOption func(*siteOptions)

func withPlugins(plugins ...ports.Plugin) siteOption {
	return func(o *siteOptions) { o.plugins = append(o.plugins, plugins...) }
}

func withLogger(expect func(*mocks.MockLogger)) siteOption {
	return func(o *siteOptions) { o.expect = expect }
}

// site is a throwaway source tree with a fully wired processor environment.
type site struct {
	t   *testing.T
	cfg *domain.Config
	env *processor.Env
}

func newSite(t *testing.T, opts ...siteOption) *site {
	t.Helper()

	var o siteOptions
	for _, opt := range opts {
		opt(&o)
	}

	root := t.TempDir()
	cfg := domain.DefaultConfig(root)
	cfg.TemplatesDir = filepath.Join(cfg.SourceDir, "templates")
	cfg.Workers = 2
	cfg.Minify = domain.MinifyConfig{}
	cfg.Purge.Enabled = false
	require.NoError(t, os.MkdirAll(cfg.TemplatesDir, domain.DirPerm))

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	if o.expect != nil {
		o.expect(logger)
	}
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	caches, err := cas.NewCaches(16, nil)
	require.NoError(t, err)

	return &site{
		t:   t,
		cfg: cfg,
		env: &processor.Env{
			Config:   cfg,
			Logger:   logger,
			Hooks:    plugin.NewPipeline(logger, o.plugins...),
			Fetcher:  httpcache.New(filepath.Join(root, domain.DefaultHTTPCachePath()), httpcache.WithoutPersistence()),
			Minifier: minify.New(),
			Purger:   minify.NewPurger(nil),
			Hasher:   cas.NewHasher(),
			Dedup:    dedup.NewDefault(),
			Walker:   fs.NewWalker(),
			Metrics:  metrics.NewRecorder(prometheus.NewRegistry()),
			Tracer:   telemetry.NewNoOpTracer(),
			Caches:   processor.Caches{CSS: caches.CSS, JS: caches.JS, HTML: caches.HTML},
			Limiter:  processor.NewLimiter(2),
		},
	}
}

// write creates a source file and returns its absolute path.
func (s *site) write(rel, content string) string {
	s.t.Helper()
	path := filepath.Join(s.cfg.SourceDir, filepath.FromSlash(rel))
	require.NoError(s.t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(s.t, os.WriteFile(path, []byte(content), domain.FilePerm))
	return path
}

func (s *site) remove(rel string) string {
	s.t.Helper()
	path := filepath.Join(s.cfg.SourceDir, filepath.FromSlash(rel))
	require.NoError(s.t, os.Remove(path))
	return path
}

func (s *site) output(rel string) string {
	s.t.Helper()
	data, err := os.ReadFile(filepath.Join(s.cfg.OutDir, filepath.FromSlash(rel)))
	require.NoError(s.t, err)
	return string(data)
}

type processors struct {
	tree      *processor.Tree
	templates *processor.TemplateProcessor
	pages     *processor.PageProcessor
	css       *processor.BundleProcessor
	js        *processor.BundleProcessor
	images    *processor.ImageProcessor
}

func (s *site) processors() *processors {
	p := &processors{
		templates: processor.NewTemplateProcessor(s.env),
		css:       processor.NewCSSProcessor(s.env),
		js:        processor.NewJSProcessor(s.env),
		images:    processor.NewImageProcessor(s.env),
	}
	p.pages = processor.NewPageProcessor(s.env, p.templates)
	p.tree = processor.NewTree(s.env, p.templates, p.pages, p.css, p.js, p.images)
	return p
}

// initTree runs discovery and returns the processors with their context.
func (s *site) initTree() (*processors, *processor.Context) {
	s.t.Helper()
	p := s.processors()
	require.NoError(s.t, p.tree.Init(s.t.Context()))
	pc, err := p.tree.Context()
	require.NoError(s.t, err)
	return p, pc
}
