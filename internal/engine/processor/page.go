package processor

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PageResult is the outcome of building one page.
type PageResult struct {
	Node *domain.AssetNode
	// URL is the output URL, prefixed with "/".
	URL  string
	HTML string
	// Shared* list the shared-domain resources the page references, in document order.
	SharedCSS    []string
	SharedJS     []string
	SharedImages []string
}

// PageProcessor builds pages: it expands includes, rewrites asset references, swaps
// stylesheets and scripts for the shared bundles and writes the finished markup.
type PageProcessor struct {
	env       *Env
	templates *TemplateProcessor
}

var _ Processor = (*PageProcessor)(nil)

// NewPageProcessor creates a PageProcessor that takes template bodies from templates.
func NewPageProcessor(env *Env, templates *TemplateProcessor) *PageProcessor {
	return &PageProcessor{env: env, templates: templates}
}

// Type implements Processor.
func (p *PageProcessor) Type() domain.NodeType { return domain.NodePage }

// Claims implements Processor.
func (p *PageProcessor) Claims(absPath string, inTemplates bool) bool {
	return !inTemplates && hasExtension(absPath, htmlExtensions)
}

// Init implements Processor. Include references are indexed right away so the builder
// can order pages before any of them is built.
func (p *PageProcessor) Init(_ context.Context, pc *Context, paths []string) error {
	for _, path := range paths {
		if _, err := p.register(pc, path); err != nil {
			return err
		}
	}
	return nil
}

// PatchNode implements Processor. A deleted page is dropped from the graph together
// with its edges.
func (p *PageProcessor) PatchNode(
	_ context.Context, pc *Context, absPath string, kind domain.EventKind,
) (*domain.AssetNode, error) {
	if kind == domain.EventUnlink {
		name, err := relName(p.env.Config, absPath)
		if err != nil {
			return nil, err
		}
		node := pc.RemoveNode(domain.NodeID(domain.NodePage, name))
		if node == nil {
			node = domain.NewAssetNode(domain.NodePage, name, absPath)
		}
		return node, nil
	}
	return p.register(pc, absPath)
}

func (p *PageProcessor) register(pc *Context, absPath string) (*domain.AssetNode, error) {
	name, err := relName(p.env.Config, absPath)
	if err != nil {
		return nil, err
	}
	source, err := readSource(absPath)
	if err != nil {
		return nil, err
	}

	node := domain.NewAssetNode(domain.NodePage, name, absPath)
	pc.AddNode(node)
	pc.ClearDependencies(node.ID())
	for _, ref := range nestedTemplates(source) {
		pc.AddDependency(node.ID(), domain.NodeID(domain.NodeTemplate, ref))
	}
	return node, nil
}

// Build renders the page and writes it to the output directory.
func (p *PageProcessor) Build(ctx context.Context, pc *Context, node *domain.AssetNode) (_ *PageResult, err error) {
	ctx, span := p.env.Tracer.Start(ctx, "page:"+node.Name, ports.WithAttribute("page", node.Name))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	source, err := readSource(node.AbsPath)
	if err != nil {
		return nil, err
	}

	id := node.ID()
	pc.ClearDependencies(id)

	exp := newExpansion(p.templates.Rendered, false)
	markup := exp.expand(source)
	for _, name := range exp.Used() {
		pc.AddDependency(id, domain.NodeID(domain.NodeTemplate, name))
	}
	for _, name := range exp.Missing() {
		pc.AddDependency(id, domain.NodeID(domain.NodeTemplate, name))
		p.env.Logger.Warn(fmt.Sprintf("%s: template %q not found, include left unexpanded", node.Name, name))
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrPageBuildFailed.Error()), "page", node.Name)
	}

	res := &PageResult{Node: node, URL: "/" + node.Name}
	if err := p.rewrite(pc, node, doc, res); err != nil {
		return nil, err
	}

	doc = p.env.Hooks.Page(ctx, node.Name, doc)
	if !hasStructure(doc) {
		return nil, zerr.With(zerr.Wrap(domain.ErrPageStructure, "page hook broke the document"), "page", node.Name)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrPageBuildFailed.Error()), "page", node.Name)
	}
	out := p.env.Hooks.PreHTMLMinify(ctx, node.Name, buf.String())

	if p.env.Config.Minify.HTML {
		key := p.env.Hasher.Sum(string(domain.NodePage), out)
		out, err = p.env.transform(ctx, p.env.Caches.HTML, key, func() (string, error) {
			return p.env.minify(domain.NodePage, out)
		})
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrPageBuildFailed.Error()), "page", node.Name)
		}
	}

	if err := writeOutput(p.env.outputPath(node.Name), []byte(out)); err != nil {
		return nil, err
	}
	res.HTML = out
	p.env.Metrics.PageBuilt()
	return res, nil
}

// rewrite records asset edges, points images at their output paths and replaces
// consumed stylesheets and scripts with the shared bundles.
func (p *PageProcessor) rewrite(pc *Context, page *domain.AssetNode, doc *html.Node, res *PageResult) error {
	var consumed []*html.Node
	var strippedCSS, strippedJS bool

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Img:
				p.rewriteImage(pc, page, n, "src", res)
			case atom.Object:
				p.rewriteImage(pc, page, n, "data", res)
			case atom.Link:
				if isStylesheet(n) && p.consume(pc, page, domain.NodeCSS, attr(n, "href"), &res.SharedCSS) {
					consumed = append(consumed, n)
					strippedCSS = true
				}
			case atom.Script:
				if src := attr(n, "src"); src != "" && p.consume(pc, page, domain.NodeJS, src, &res.SharedJS) {
					consumed = append(consumed, n)
					strippedJS = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range consumed {
		n.Parent.RemoveChild(n)
	}

	head, body := findElement(doc, atom.Head), findElement(doc, atom.Body)
	if head == nil || body == nil {
		return zerr.With(zerr.Wrap(domain.ErrPageStructure, "cannot place bundle tags"), "page", page.Name)
	}
	if strippedCSS {
		head.AppendChild(element(atom.Link,
			html.Attribute{Key: "rel", Val: "stylesheet"},
			html.Attribute{Key: "href", Val: p.env.Config.BundleURL(domain.NodeCSS)},
		))
	}
	if strippedJS {
		body.AppendChild(element(atom.Script,
			html.Attribute{Key: "src", Val: p.env.Config.BundleURL(domain.NodeJS)},
		))
	}
	return nil
}

func (p *PageProcessor) rewriteImage(pc *Context, page *domain.AssetNode, n *html.Node, key string, res *PageResult) {
	ref := attr(n, key)
	if ref == "" {
		return
	}
	if p.env.Config.IsShared(ref) {
		setAttr(n, key, RemoteAssetURL(p.env.Config, p.env.Hasher, ref))
		pc.AddDependency(page.ID(), domain.NodeID(domain.NodeImage, ref))
		if !slices.Contains(res.SharedImages, ref) {
			res.SharedImages = append(res.SharedImages, ref)
		}
		return
	}
	if rel, ok := ResolveLocal(page.Name, ref); ok {
		setAttr(n, key, "/"+rel)
		pc.AddDependency(page.ID(), domain.NodeID(domain.NodeImage, rel))
	}
}

// consume reports whether the referenced stylesheet or script goes into the shared
// bundle. Remote references outside the shared domain stay in the page.
func (p *PageProcessor) consume(
	pc *Context, page *domain.AssetNode, t domain.NodeType, ref string, shared *[]string,
) bool {
	if ref == "" {
		return false
	}
	if p.env.Config.IsShared(ref) {
		pc.AddDependency(page.ID(), domain.NodeID(t, ref))
		if !slices.Contains(*shared, ref) {
			*shared = append(*shared, ref)
		}
		return true
	}
	rel, ok := ResolveLocal(page.Name, ref)
	if !ok {
		return false
	}
	pc.AddDependency(page.ID(), domain.NodeID(t, rel))
	return true
}

func isStylesheet(n *html.Node) bool {
	for _, rel := range strings.Fields(attr(n, "rel")) {
		if strings.EqualFold(rel, "stylesheet") {
			return true
		}
	}
	return false
}

func hasStructure(doc *html.Node) bool {
	return doc != nil &&
		findElement(doc, atom.Html) != nil &&
		findElement(doc, atom.Head) != nil &&
		findElement(doc, atom.Body) != nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a, Attr: attrs}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
