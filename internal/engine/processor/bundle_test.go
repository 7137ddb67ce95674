package processor_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/engine/processor"
)

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

func TestBundleProcessor_CSS(t *testing.T) {
	srv := sharedServer(t, map[string]string{"/shared.css": "h1 { margin: 0 }"})

	s := newSite(t)
	s.cfg.SharedDomain = srv.URL + "/"
	s.cfg.Minify.CSS = true
	s.cfg.Purge.Enabled = true
	s.write("css/a.css", ".used { color: red }")
	s.write("css/b.css", ".unused { color: blue }")

	p, pc := s.initTree()
	corpus := []string{`<html><body><h1 class="used">x</h1></body></html>`}
	urls, err := processor.Run(t.Context(), pc, domain.NodeCSS, p.css, []string{srv.URL + "/shared.css"}, corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"/bundle.css"}, urls)

	out := s.output("bundle.css")
	assert.Contains(t, out, "h1{margin:0}")
	assert.Contains(t, out, ".used{color:red}")
	assert.NotContains(t, out, "unused")
	assert.Less(t, strings.Index(out, "h1"), strings.Index(out, ".used"), "external sources come first")
}

func TestBundleProcessor_JS(t *testing.T) {
	s := newSite(t)
	s.cfg.Minify.JS = true
	s.write("js/app.js", "var answer = 42;\n")
	s.write("js/lib.mjs", "export const x = 1;\n")

	p, pc := s.initTree()
	urls, err := processor.Run(t.Context(), pc, domain.NodeJS, p.js, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/bundle.js"}, urls)
	assert.Contains(t, s.output("bundle.js"), "var answer=42")
}

type stubMinifier struct{}

func (stubMinifier) Minify(domain.NodeType, string) (string, error) { return "", nil }

func TestBundleProcessor_EmptyTransform(t *testing.T) {
	s := newSite(t)
	s.cfg.Minify.JS = true
	s.env.Minifier = stubMinifier{}
	s.write("js/app.js", "var answer = 42;")

	p, pc := s.initTree()
	_, err := processor.Run(t.Context(), pc, domain.NodeJS, p.js, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyTransform)
	assert.Contains(t, err.Error(), domain.ErrBundleFailed.Error())
}

func TestBundleProcessor_SharedNotFound(t *testing.T) {
	srv := sharedServer(t, nil)

	s := newSite(t)
	s.cfg.SharedDomain = srv.URL + "/"
	p, pc := s.initTree()

	_, err := processor.Run(t.Context(), pc, domain.NodeCSS, p.css, []string{srv.URL + "/gone.css"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnexpectedStatus)
}

type reversePlugin struct{}

func (reversePlugin) Name() string { return "reverse" }

func (reversePlugin) OnBundle(_ context.Context, _ domain.NodeType, uris []string) ([]string, error) {
	out := slices.Clone(uris)
	slices.Reverse(out)
	return out, nil
}

func (reversePlugin) OnPostBundle(_ context.Context, kind domain.NodeType, content string) (string, error) {
	return "/* " + string(kind) + " */\n" + content, nil
}

func TestBundleProcessor_Hooks(t *testing.T) {
	s := newSite(t, withPlugins(reversePlugin{}))
	s.write("js/a.js", "a();")
	s.write("js/b.js", "b();")

	p, pc := s.initTree()
	_, err := processor.Run(t.Context(), pc, domain.NodeJS, p.js, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/* js */\nb();\na();", s.output("bundle.js"))
}

func TestBundleProcessor_TransformCache(t *testing.T) {
	s := newSite(t)
	s.cfg.Minify.CSS = true
	s.write("css/a.css", "p { color: red }")

	p, pc := s.initTree()
	_, err := processor.Run(t.Context(), pc, domain.NodeCSS, p.css, nil, nil)
	require.NoError(t, err)

	s.env.Minifier = stubMinifier{}
	_, err = processor.Run(t.Context(), pc, domain.NodeCSS, p.css, nil, nil)
	require.NoError(t, err, "unchanged input is served from the cache")
	assert.Equal(t, "p{color:red}", s.output("bundle.css"))
}
