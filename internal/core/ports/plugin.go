package ports

import (
	"context"

	"go.trai.ch/weave/internal/core/domain"
	"golang.org/x/net/html"
)

// Plugin is an extension that implements any subset of the hook interfaces below.
type Plugin interface {
	Name() string
}

// PreConfigHook may adjust the configuration right after it is loaded.
type PreConfigHook interface {
	OnPreConfig(cfg *domain.Config) error
}

// PreBuildHook runs before a full build starts.
type PreBuildHook interface {
	OnPreBuild(ctx context.Context) error
}

// AssetHook may rewrite an asset before it is written to dest.
type AssetHook interface {
	OnAsset(ctx context.Context, kind domain.NodeType, data []byte, dest string) ([]byte, error)
}

// BundleHook may rewrite the list of local files gathered into a bundle.
type BundleHook interface {
	OnBundle(ctx context.Context, kind domain.NodeType, uris []string) ([]string, error)
}

// PostBundleHook may rewrite a transformed bundle before it is written.
type PostBundleHook interface {
	OnPostBundle(ctx context.Context, kind domain.NodeType, content string) (string, error)
}

// PageHook may rewrite a parsed page document.
type PageHook interface {
	OnPage(ctx context.Context, path string, doc *html.Node) (*html.Node, error)
}

// PreHTMLMinifyHook may rewrite serialized page markup before minification.
type PreHTMLMinifyHook interface {
	OnPreHTMLMinify(ctx context.Context, path, markup string) (string, error)
}

// PostBuildHook runs after a full build finished successfully.
type PostBuildHook interface {
	OnPostBuild(ctx context.Context) error
}

// Hooks is the typed hook pipeline the build engine calls into. Every stage returns its
// input unchanged when no plugin handles it. Plugin failures never surface as errors.
type Hooks interface {
	PreConfig(cfg *domain.Config)
	PreBuild(ctx context.Context)
	Asset(ctx context.Context, kind domain.NodeType, data []byte, dest string) []byte
	Bundle(ctx context.Context, kind domain.NodeType, uris []string) []string
	PostBundle(ctx context.Context, kind domain.NodeType, content string) string
	Page(ctx context.Context, path string, doc *html.Node) *html.Node
	PreHTMLMinify(ctx context.Context, path, markup string) string
	PostBuild(ctx context.Context)
}
