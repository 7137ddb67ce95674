// Package minify compacts bundles and pages and strips unused stylesheet rules.
package minify

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Minifier = (*Minifier)(nil)

const (
	mimeCSS  = "text/css"
	mimeJS   = "application/javascript"
	mimeHTML = "text/html"
)

var scriptTypes = regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`)

// Minifier implements ports.Minifier on top of tdewolff/minify.
type Minifier struct {
	m *minify.M
}

// New creates a Minifier for stylesheets, scripts and pages. Inline styles and scripts
// inside pages are minified as well.
func New() *Minifier {
	m := minify.New()
	m.AddFunc(mimeCSS, css.Minify)
	m.AddFuncRegexp(scriptTypes, js.Minify)
	m.Add(mimeHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return &Minifier{m: m}
}

// Minify compacts content according to kind. Kinds without a minifier pass through.
func (m *Minifier) Minify(kind domain.NodeType, content string) (string, error) {
	var mediatype string
	switch kind {
	case domain.NodeCSS:
		mediatype = mimeCSS
	case domain.NodeJS:
		mediatype = mimeJS
	case domain.NodePage:
		mediatype = mimeHTML
	default:
		return content, nil
	}

	out, err := m.m.String(mediatype, content)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrMinifyFailed.Error()), "kind", string(kind))
	}
	return out, nil
}
