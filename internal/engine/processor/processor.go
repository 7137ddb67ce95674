// Package processor discovers source resources, tracks their dependencies and turns
// them into build outputs.
package processor

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
)

// Processor owns one node type: it claims source files, registers nodes at discovery
// time and keeps them current when files change.
type Processor interface {
	Type() domain.NodeType
	// Claims reports whether the file at absPath belongs to this processor.
	Claims(absPath string, inTemplates bool) bool
	// Init registers the nodes for the discovered paths.
	Init(ctx context.Context, pc *Context, paths []string) error
	// PatchNode applies a file event and returns the affected node, or nil when the
	// event changes nothing.
	PatchNode(ctx context.Context, pc *Context, absPath string, kind domain.EventKind) (*domain.AssetNode, error)
}

// GatherKind selects where a pipeline gathers its input from.
type GatherKind int

const (
	// GatherExternal gathers resources referenced on the shared domain.
	GatherExternal GatherKind = iota
	// GatherLocal gathers every registered source of the pipeline's type.
	GatherLocal
)

// Pipeline is the gather, transform, write contract of shared-artifact processors.
type Pipeline[T any] interface {
	Gather(ctx context.Context, pc *Context, kind GatherKind, shared []string) (T, error)
	Merge(external, local T) T
	Transform(ctx context.Context, in T, corpus []string) (T, error)
	Write(ctx context.Context, pc *Context, out T) ([]string, error)
}

// Caches are the per-kind transform result caches.
type Caches struct {
	CSS  ports.TransformCache
	JS   ports.TransformCache
	HTML ports.TransformCache
}

// Env is the shared collaborators of every processor.
type Env struct {
	Config   *domain.Config
	Logger   ports.Logger
	Hooks    ports.Hooks
	Fetcher  ports.Fetcher
	Minifier ports.Minifier
	Purger   ports.Purger
	Hasher   ports.Hasher
	Dedup    ports.DedupFilter
	Walker   ports.SourceWalker
	Metrics  ports.Metrics
	Tracer   ports.Tracer
	Caches   Caches
	Limiter  *Limiter
}

var (
	cssExtensions   = []string{".css"}
	jsExtensions    = []string{".js", ".mjs"}
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif", ".ico"}
	htmlExtensions  = []string{".html", ".htm"}
)

func hasExtension(absPath string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(absPath)))
}

// IsRemote reports whether uri points at another origin or carries a scheme.
func IsRemote(uri string) bool {
	if strings.HasPrefix(uri, "//") {
		return true
	}
	u, err := url.Parse(uri)
	return err == nil && u.Scheme != ""
}

// RemoteExt returns the file extension of a remote URI's path.
func RemoteExt(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// RemoteAssetURL returns the output URL of a fetched remote asset.
func RemoteAssetURL(cfg *domain.Config, hasher ports.Hasher, uri string) string {
	return "/" + cfg.AssetsDir + "/" + hasher.Sum(uri) + RemoteExt(uri)
}

// ResolveLocal maps a reference found in the page at pageRel to a source-relative path.
// Absolute references are rooted at the source directory.
func ResolveLocal(pageRel, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "#") || IsRemote(ref) {
		return "", false
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}

	var rel string
	if strings.HasPrefix(ref, "/") {
		rel = path.Clean(strings.TrimPrefix(ref, "/"))
	} else {
		rel = path.Join(path.Dir(pageRel), ref)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
