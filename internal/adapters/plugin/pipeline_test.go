package plugin_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/plugin"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
	"golang.org/x/net/html"
)

type suffixPlugin struct {
	name   string
	suffix string
}

func (s suffixPlugin) Name() string { return s.name }

func (s suffixPlugin) OnPostBundle(_ context.Context, _ domain.NodeType, content string) (string, error) {
	return content + s.suffix, nil
}

type failingPlugin struct{}

func (failingPlugin) Name() string { return "failing" }

func (failingPlugin) OnPostBundle(context.Context, domain.NodeType, string) (string, error) {
	return "garbage", errors.New("boom")
}

type panickingPlugin struct{}

func (panickingPlugin) Name() string { return "panicking" }

func (panickingPlugin) OnPreHTMLMinify(context.Context, string, string) (string, error) {
	panic("plugin exploded")
}

type passivePlugin struct{}

func (passivePlugin) Name() string { return "passive" }

type configPlugin struct{}

func (configPlugin) Name() string { return "config" }

func (configPlugin) OnPreConfig(cfg *domain.Config) error {
	cfg.BundleName = "site"
	return nil
}

func TestPipeline_ChainsInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	p := plugin.NewPipeline(logger,
		suffixPlugin{name: "a", suffix: "-a"},
		passivePlugin{},
		suffixPlugin{name: "b", suffix: "-b"},
	)

	got := p.PostBundle(t.Context(), domain.NodeCSS, "css")
	assert.Equal(t, "css-a-b", got)
	assert.Equal(t, []string{"a", "passive", "b"}, p.Plugins())
}

func TestPipeline_FailureIsDiscarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.Contains(t, err.Error(), "plugin failing failed in postBundle")
	})

	p := plugin.NewPipeline(logger, suffixPlugin{name: "a", suffix: "-a"}, failingPlugin{})
	p.Register(suffixPlugin{name: "b", suffix: "-b"})

	assert.Equal(t, "js-a-b", p.PostBundle(t.Context(), domain.NodeJS, "js"))
}

func TestPipeline_PanicIsRecovered(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Error(gomock.Any()).Times(1)

	p := plugin.NewPipeline(logger, panickingPlugin{})

	assert.Equal(t, "<p>x</p>", p.PreHTMLMinify(t.Context(), "index.html", "<p>x</p>"))
}

func TestPipeline_NoPluginsIsIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := plugin.NewPipeline(mocks.NewMockLogger(ctrl))

	uris := []string{"a.css", "b.css"}
	assert.Equal(t, uris, p.Bundle(t.Context(), domain.NodeCSS, uris))
	assert.Equal(t, []byte("png"), p.Asset(t.Context(), domain.NodeImage, []byte("png"), "/out/a.png"))
	p.PreBuild(t.Context())
	p.PostBuild(t.Context())
}

func TestPipeline_PreConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := plugin.NewPipeline(mocks.NewMockLogger(ctrl), configPlugin{})

	cfg := domain.DefaultConfig(t.TempDir())
	p.PreConfig(cfg)
	assert.Equal(t, "/site.css", cfg.BundleURL(domain.NodeCSS))
}

func TestBuiltinPlugins_OnPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := plugin.NewPipeline(mocks.NewMockLogger(ctrl),
		&plugin.GeneratorMeta{Version: "1.2.3"},
		plugin.LiveReload{},
	)

	doc, err := html.Parse(strings.NewReader("<html><head></head><body><p>hi</p></body></html>"))
	require.NoError(t, err)

	out := p.Page(t.Context(), "index.html", doc)

	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, out))
	assert.Equal(t,
		`<html><head><meta name="generator" content="weave 1.2.3"/></head>`+
			`<body><p>hi</p><script src="/__weave/client.js"></script></body></html>`,
		buf.String())
}
