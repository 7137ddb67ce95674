package processor

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ImageProcessor copies local images and fetches shared ones. Images are not bundled;
// its pipeline works on a list of URIs.
type ImageProcessor struct {
	leaf
}

var (
	_ Processor          = (*ImageProcessor)(nil)
	_ Pipeline[[]string] = (*ImageProcessor)(nil)
)

// NewImageProcessor creates an ImageProcessor.
func NewImageProcessor(env *Env) *ImageProcessor {
	return &ImageProcessor{leaf: leaf{env: env, kind: domain.NodeImage, exts: imageExtensions}}
}

// Gather implements Pipeline.
func (p *ImageProcessor) Gather(_ context.Context, pc *Context, kind GatherKind, shared []string) ([]string, error) {
	if kind == GatherExternal {
		return slices.Clone(shared), nil
	}
	var names []string
	for _, node := range pc.NodesOfType(domain.NodeImage) {
		names = append(names, node.Name)
	}
	return names, nil
}

// Merge implements Pipeline.
func (p *ImageProcessor) Merge(external, local []string) []string {
	return append(external, local...)
}

// Transform implements Pipeline. Images are copied verbatim.
func (p *ImageProcessor) Transform(_ context.Context, in []string, _ []string) ([]string, error) {
	return in, nil
}

// Write implements Pipeline. URIs already seen by the dedup filter are skipped.
func (p *ImageProcessor) Write(ctx context.Context, _ *Context, uris []string) ([]string, error) {
	var (
		mu   sync.Mutex
		urls []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.env.Config.Workers, 1))
	for _, uri := range uris {
		if p.env.Dedup.Seen(uri) {
			continue
		}
		g.Go(func() error {
			url, err := p.copy(gctx, uri)
			if err != nil {
				return err
			}
			mu.Lock()
			urls = append(urls, url)
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

func (p *ImageProcessor) copy(ctx context.Context, uri string) (string, error) {
	var (
		data []byte
		url  string
		err  error
	)
	if IsRemote(uri) {
		url = RemoteAssetURL(p.env.Config, p.env.Hasher, uri)
		data, err = fetchRemote(ctx, p.env.Fetcher, uri)
	} else {
		url = "/" + uri
		// #nosec G304 -- uri is a registered source-relative path
		data, err = os.ReadFile(filepath.Join(p.env.Config.SourceDir, filepath.FromSlash(uri)))
		if err != nil {
			err = zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "image", uri)
		}
	}
	if err != nil {
		return "", err
	}

	dest := p.env.outputPath(url)
	data = p.env.Hooks.Asset(ctx, domain.NodeImage, data, dest)
	if err := writeOutput(dest, data); err != nil {
		return "", err
	}
	return url, nil
}
