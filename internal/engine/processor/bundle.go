package processor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// BundleProcessor concatenates every stylesheet or script into one shared bundle.
type BundleProcessor struct {
	leaf
	cache ports.TransformCache
}

var (
	_ Processor        = (*BundleProcessor)(nil)
	_ Pipeline[string] = (*BundleProcessor)(nil)
)

// NewCSSProcessor creates the stylesheet bundler. Its transform purges unused
// selectors before minifying.
func NewCSSProcessor(env *Env) *BundleProcessor {
	return &BundleProcessor{
		leaf:  leaf{env: env, kind: domain.NodeCSS, exts: cssExtensions},
		cache: env.Caches.CSS,
	}
}

// NewJSProcessor creates the script bundler.
func NewJSProcessor(env *Env) *BundleProcessor {
	return &BundleProcessor{
		leaf:  leaf{env: env, kind: domain.NodeJS, exts: jsExtensions},
		cache: env.Caches.JS,
	}
}

// Gather implements Pipeline. External sources are fetched in the given order, local
// sources are read in name order after the bundle hook had its say.
func (b *BundleProcessor) Gather(ctx context.Context, pc *Context, kind GatherKind, shared []string) (string, error) {
	if kind == GatherExternal {
		parts := make([]string, 0, len(shared))
		for _, uri := range shared {
			body, err := fetchRemote(ctx, b.env.Fetcher, uri)
			if err != nil {
				return "", err
			}
			parts = append(parts, string(body))
		}
		return strings.Join(parts, "\n"), nil
	}

	nodes := pc.NodesOfType(b.kind)
	paths := make([]string, 0, len(nodes))
	for _, node := range nodes {
		paths = append(paths, node.AbsPath)
	}
	paths = b.env.Hooks.Bundle(ctx, b.kind, paths)

	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		source, err := readSource(path)
		if err != nil {
			return "", err
		}
		parts = append(parts, source)
	}
	return strings.Join(parts, "\n"), nil
}

// Merge implements Pipeline.
func (b *BundleProcessor) Merge(external, local string) string {
	switch {
	case external == "":
		return local
	case local == "":
		return external
	}
	return external + "\n" + local
}

// Transform implements Pipeline. The result is cached by a fingerprint of the input and,
// when purging, of the corpus.
func (b *BundleProcessor) Transform(ctx context.Context, in string, corpus []string) (string, error) {
	purge := b.kind == domain.NodeCSS && b.env.Config.Purge.Enabled
	minify := b.minifyEnabled()
	if strings.TrimSpace(in) == "" || (!purge && !minify) {
		return in, nil
	}

	parts := []string{string(b.kind), in}
	if purge {
		parts = append(parts, b.env.Hasher.Sum(corpus...))
	}

	return b.env.transform(ctx, b.cache, b.env.Hasher.Sum(parts...), func() (string, error) {
		out := in
		if purge {
			var err error
			if out, err = b.env.Purger.Purge(out, corpus); err != nil {
				return "", err
			}
			if strings.TrimSpace(out) == "" {
				return "", nil
			}
		}
		if minify {
			return b.env.minify(b.kind, out)
		}
		return out, nil
	})
}

// Write implements Pipeline.
func (b *BundleProcessor) Write(ctx context.Context, _ *Context, out string) ([]string, error) {
	out = b.env.Hooks.PostBundle(ctx, b.kind, out)
	url := b.env.Config.BundleURL(b.kind)
	if err := writeOutput(b.env.outputPath(url), []byte(out)); err != nil {
		return nil, err
	}
	return []string{url}, nil
}

func (b *BundleProcessor) minifyEnabled() bool {
	if b.kind == domain.NodeCSS {
		return b.env.Config.Minify.CSS
	}
	return b.env.Config.Minify.JS
}

// Run drives a pipeline through external gathering, local gathering, transform and
// write, and returns the written URLs.
func Run[T any](
	ctx context.Context, pc *Context, kind domain.NodeType, p Pipeline[T], shared, corpus []string,
) (urls []string, err error) {
	start := time.Now()
	ctx, span := pc.Env.Tracer.Start(ctx, "bundle:"+string(kind), ports.WithAttribute("shared", len(shared)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			err = zerr.With(zerr.Wrap(err, domain.ErrBundleFailed.Error()), "type", string(kind))
		}
		span.End()
		pc.Env.Metrics.ObserveBundle(kind, time.Since(start))
	}()

	external, err := p.Gather(ctx, pc, GatherExternal, shared)
	if err != nil {
		return nil, err
	}
	local, err := p.Gather(ctx, pc, GatherLocal, nil)
	if err != nil {
		return nil, err
	}
	out, err := p.Transform(ctx, p.Merge(external, local), corpus)
	if err != nil {
		return nil, err
	}
	return p.Write(ctx, pc, out)
}

// fetchRemote fetches uri and treats client errors as failures.
func fetchRemote(ctx context.Context, fetcher ports.Fetcher, uri string) ([]byte, error) {
	res, err := fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		err := zerr.Wrap(domain.ErrUnexpectedStatus, fmt.Sprintf("%s responded %d", uri, res.StatusCode))
		return nil, zerr.With(err, "url", uri)
	}
	return res.Body, nil
}
