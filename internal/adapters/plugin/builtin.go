package plugin

import (
	"context"

	"go.trai.ch/weave/internal/build"
	"go.trai.ch/weave/internal/core/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// GeneratorMeta adds <meta name="generator"> to every page head.
type GeneratorMeta struct {
	Version string
}

// NewGeneratorMeta creates the generator plugin for the running version.
func NewGeneratorMeta() *GeneratorMeta {
	return &GeneratorMeta{Version: build.Version}
}

// Name implements ports.Plugin.
func (g *GeneratorMeta) Name() string { return "generator-meta" }

// OnPage implements ports.PageHook.
func (g *GeneratorMeta) OnPage(_ context.Context, _ string, doc *html.Node) (*html.Node, error) {
	head := FindElement(doc, atom.Head)
	if head == nil {
		return doc, nil
	}
	meta := &html.Node{
		Type:     html.ElementNode,
		Data:     "meta",
		DataAtom: atom.Meta,
		Attr: []html.Attribute{
			{Key: "name", Val: "generator"},
			{Key: "content", Val: "weave " + g.Version},
		},
	}
	head.AppendChild(meta)
	return doc, nil
}

// LiveReload injects the live-update client script into every page body.
// It is only registered by the development server.
type LiveReload struct{}

// Name implements ports.Plugin.
func (LiveReload) Name() string { return "live-reload" }

// OnPage implements ports.PageHook.
func (LiveReload) OnPage(_ context.Context, _ string, doc *html.Node) (*html.Node, error) {
	body := FindElement(doc, atom.Body)
	if body == nil {
		return doc, nil
	}
	body.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "src", Val: domain.LiveClientPath}},
	})
	return doc, nil
}

// FindElement returns the first element with the given atom in document order.
func FindElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
