// Package builder orchestrates full and incremental builds over the processor tree.
package builder

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/engine/processor"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Build kinds used as metric labels.
const (
	KindFull        = "full"
	KindIncremental = "incremental"
)

// Report summarizes a full build.
type Report struct {
	// Pages are the output URLs of the built pages.
	Pages []string
	// Assets are the output URLs written by the bundle and image pipelines.
	Assets   []string
	Duration time.Duration
}

// String implements fmt.Stringer.
func (r *Report) String() string {
	return fmt.Sprintf("built %d pages and %d assets in %s",
		len(r.Pages), len(r.Assets), r.Duration.Round(time.Millisecond))
}

// Builder owns one processor tree and runs builds against it. Builds are serialized.
type Builder struct {
	env       *processor.Env
	tree      *processor.Tree
	templates *processor.TemplateProcessor
	pages     *processor.PageProcessor
	css       *processor.BundleProcessor
	js        *processor.BundleProcessor
	images    *processor.ImageProcessor
	session   *Session

	mu sync.Mutex
}

// New creates a Builder with the five processors.
func New(env *processor.Env) *Builder {
	b := &Builder{
		env:       env,
		templates: processor.NewTemplateProcessor(env),
		css:       processor.NewCSSProcessor(env),
		js:        processor.NewJSProcessor(env),
		images:    processor.NewImageProcessor(env),
		session:   NewSession(),
	}
	b.pages = processor.NewPageProcessor(env, b.templates)
	b.tree = processor.NewTree(env, b.templates, b.pages, b.css, b.js, b.images)
	return b
}

// Session returns the page results of the current build.
func (b *Builder) Session() *Session {
	return b.session
}

// Tree returns the processor tree.
func (b *Builder) Tree() *processor.Tree {
	return b.tree
}

// Build discovers the source tree, builds every page and then runs the CSS, JS and
// image pipelines on what the pages referenced.
func (b *Builder) Build(ctx context.Context) (_ *Report, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	ctx, span := b.env.Tracer.Start(ctx, "build")
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	b.env.Hooks.PreBuild(ctx)

	if err := b.tree.Init(ctx); err != nil {
		return nil, zerr.Wrap(err, "source discovery failed")
	}
	pc, err := b.tree.Context()
	if err != nil {
		return nil, err
	}

	plan, err := b.plan()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(plan))
	for i, page := range plan {
		names[i] = page.Name
	}
	b.env.Tracer.EmitPlan(ctx, names)
	span.SetAttribute("pages", len(plan))

	b.session.Reset()
	if err := b.buildPages(ctx, pc, plan); err != nil {
		return nil, err
	}

	assets, err := b.runPipelines(ctx, pc, domain.NodeCSS, domain.NodeJS, domain.NodeImage)
	if err != nil {
		return nil, err
	}

	b.env.Hooks.PostBuild(ctx)

	report := &Report{Pages: b.session.URLs(), Assets: assets, Duration: time.Since(start)}
	b.env.Metrics.ObserveBuild(KindFull, report.Duration)
	return report, nil
}

// IncrementalBuild applies one file event and rebuilds only what it affects. It returns
// the output URLs that changed, each prefixed with "/".
func (b *Builder) IncrementalBuild(ctx context.Context, absPath string, kind domain.EventKind) (_ []string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	ctx, span := b.env.Tracer.Start(ctx, "incremental",
		ports.WithAttribute("path", absPath),
		ports.WithAttribute("event", string(kind)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		b.env.Metrics.ObserveBuild(KindIncremental, time.Since(start))
	}()

	pc, err := b.tree.Context()
	if err != nil {
		return nil, err
	}

	if kind == domain.EventAddDir {
		nodes, err := b.tree.AddDir(ctx, absPath)
		if err := b.applyCyclePolicy(err); err != nil {
			return nil, err
		}
		return b.rebuild(ctx, pc, nodes, kind, nil)
	}

	// Pages that depended on a template before the event still need a rebuild when the
	// template is deleted or stops including something.
	var stale []*domain.AssetNode
	if b.env.Config.InTemplates(absPath) {
		id := domain.NodeID(domain.NodeTemplate, domain.TemplateName(absPath))
		if stale, err = b.tree.StaleNodes(id, domain.NodePage); err != nil {
			return nil, err
		}
	}

	node, err := b.tree.PatchNode(ctx, absPath, kind)
	if err := b.applyCyclePolicy(err); err != nil {
		return nil, err
	}
	if node == nil {
		if b.tree.Claims(absPath) {
			b.env.Logger.Debug(fmt.Sprintf("nothing to rebuild for %s", absPath))
		} else {
			b.env.Logger.Warn(fmt.Sprintf("ignoring %s: no processor claims it", absPath))
		}
		return nil, nil
	}
	return b.rebuild(ctx, pc, []*domain.AssetNode{node}, kind, stale)
}

//nolint:cyclop // one branch per node type
func (b *Builder) rebuild(
	ctx context.Context,
	pc *processor.Context,
	nodes []*domain.AssetNode,
	kind domain.EventKind,
	stale []*domain.AssetNode,
) ([]string, error) {
	var (
		pipelines []domain.NodeType
		pages     = make(map[string]*domain.AssetNode)
		urls      []string
	)

	for _, node := range nodes {
		switch node.Type {
		case domain.NodeCSS, domain.NodeJS:
			if !slices.Contains(pipelines, node.Type) {
				pipelines = append(pipelines, node.Type)
			}
		case domain.NodeImage:
			if kind == domain.EventUnlink {
				b.removeOutput(node.Name)
				continue
			}
			if !slices.Contains(pipelines, node.Type) {
				pipelines = append(pipelines, node.Type)
			}
			urls = append(urls, "/"+node.Name)
		case domain.NodePage:
			if kind == domain.EventUnlink {
				b.removeOutput(node.Name)
				b.session.Remove("/" + node.Name)
				continue
			}
			pages[node.ID()] = node
		case domain.NodeTemplate:
			after, err := b.tree.StaleNodes(node.ID(), domain.NodePage)
			if err != nil {
				return nil, err
			}
			for _, page := range slices.Concat(stale, after) {
				if registered, ok := pc.NodeByID(page.ID()); ok {
					pages[page.ID()] = registered
				}
			}
		}
	}

	built, err := b.rebuildPages(ctx, pc, pages)
	if err != nil {
		return nil, err
	}
	urls = append(urls, built...)

	for _, t := range pipelines {
		written, err := b.runPipelines(ctx, pc, t)
		if err != nil {
			return nil, err
		}
		// Images are reported per changed file, not per pipeline run.
		if t != domain.NodeImage {
			urls = append(urls, written...)
		}
	}

	slices.Sort(urls)
	return slices.Compact(urls), nil
}

func (b *Builder) rebuildPages(ctx context.Context, pc *processor.Context, pages map[string]*domain.AssetNode) ([]string, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	ordered := make([]*domain.AssetNode, 0, len(pages))
	for _, page := range pages {
		ordered = append(ordered, page)
	}
	slices.SortFunc(ordered, func(a, b *domain.AssetNode) int {
		return strings.Compare(a.Name, b.Name)
	})

	if err := b.buildPages(ctx, pc, ordered); err != nil {
		return nil, err
	}
	urls := make([]string, len(ordered))
	for i, page := range ordered {
		urls[i] = "/" + page.Name
	}
	return urls, nil
}

// plan orders pages by the size of their dependency subtree, smallest first.
func (b *Builder) plan() ([]*domain.AssetNode, error) {
	pages, err := b.tree.AllPages()
	if err != nil {
		return nil, err
	}

	sizes := make(map[string]int, len(pages))
	for _, page := range pages {
		size, err := b.tree.SubtreeSize(page.ID())
		if err != nil {
			return nil, err
		}
		sizes[page.ID()] = size
	}

	slices.SortStableFunc(pages, func(x, y *domain.AssetNode) int {
		return cmp.Compare(sizes[x.ID()], sizes[y.ID()])
	})
	return pages, nil
}

func (b *Builder) buildPages(ctx context.Context, pc *processor.Context, pages []*domain.AssetNode) error {
	w := newWave(ctx, pages, b.env.Config.Workers)
	return w.run(func(ctx context.Context, page *domain.AssetNode) error {
		res, err := b.pages.Build(ctx, pc, page)
		if err != nil {
			return err
		}
		b.session.Put(res)
		return nil
	})
}

// runPipelines runs the given shared-artifact pipelines concurrently and returns the
// written URLs, sorted. The dedup filter starts empty for every run.
func (b *Builder) runPipelines(ctx context.Context, pc *processor.Context, kinds ...domain.NodeType) ([]string, error) {
	b.env.Dedup.Reset()
	corpus := b.session.Corpus()

	var (
		mu   sync.Mutex
		urls []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			written, err := b.runPipeline(gctx, pc, kind, corpus)
			if err != nil {
				return err
			}
			mu.Lock()
			urls = append(urls, written...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(urls)
	return urls, nil
}

func (b *Builder) runPipeline(ctx context.Context, pc *processor.Context, kind domain.NodeType, corpus []string) ([]string, error) {
	shared := b.session.Shared(kind)
	switch kind {
	case domain.NodeCSS:
		return processor.Run(ctx, pc, kind, b.css, shared, corpus)
	case domain.NodeJS:
		return processor.Run(ctx, pc, kind, b.js, shared, corpus)
	case domain.NodeImage:
		return processor.Run(ctx, pc, kind, b.images, shared, corpus)
	}
	return nil, nil
}

// applyCyclePolicy downgrades template cycles to a warning under the warn policy.
func (b *Builder) applyCyclePolicy(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrTemplateCycle) && b.env.Config.Cycles == domain.CycleWarn {
		b.env.Logger.Warn(err.Error())
		return nil
	}
	return err
}

func (b *Builder) removeOutput(name string) {
	path := filepath.Join(b.env.Config.OutDir, filepath.FromSlash(name))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.env.Logger.Warn(fmt.Sprintf("could not remove %s: %v", path, err))
	}
}
