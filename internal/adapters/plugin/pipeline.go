// Package plugin runs user and built-in plugins at the build's hook points.
package plugin

import (
	"context"
	"fmt"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/net/html"
)

var _ ports.Hooks = (*Pipeline)(nil)

// Pipeline calls every registered plugin that implements a hook, in registration order.
// The output of one plugin is the input of the next. A failing or panicking plugin is
// logged and its result is discarded for that invocation.
type Pipeline struct {
	logger  ports.Logger
	plugins []ports.Plugin
}

// NewPipeline creates a Pipeline running plugins in the given order.
func NewPipeline(logger ports.Logger, plugins ...ports.Plugin) *Pipeline {
	return &Pipeline{logger: logger, plugins: plugins}
}

// Register appends a plugin. It must not be called while a build is running.
func (p *Pipeline) Register(plugin ports.Plugin) {
	p.plugins = append(p.plugins, plugin)
}

// Plugins returns the registered plugin names in order.
func (p *Pipeline) Plugins() []string {
	names := make([]string, 0, len(p.plugins))
	for _, plugin := range p.plugins {
		names = append(names, plugin.Name())
	}
	return names
}

// PreConfig lets plugins adjust the loaded configuration.
func (p *Pipeline) PreConfig(cfg *domain.Config) {
	chain(p, "preConfig", cfg, func(h ports.PreConfigHook, in *domain.Config) (*domain.Config, error) {
		return in, h.OnPreConfig(in)
	})
}

// PreBuild runs before a full build.
func (p *Pipeline) PreBuild(ctx context.Context) {
	chain(p, "preBuild", struct{}{}, func(h ports.PreBuildHook, in struct{}) (struct{}, error) {
		return in, h.OnPreBuild(ctx)
	})
}

// Asset lets plugins rewrite an asset before it is written to dest.
func (p *Pipeline) Asset(ctx context.Context, kind domain.NodeType, data []byte, dest string) []byte {
	return chain(p, "asset", data, func(h ports.AssetHook, in []byte) ([]byte, error) {
		return h.OnAsset(ctx, kind, in, dest)
	})
}

// Bundle lets plugins rewrite the local files gathered into a bundle.
func (p *Pipeline) Bundle(ctx context.Context, kind domain.NodeType, uris []string) []string {
	return chain(p, "bundle", uris, func(h ports.BundleHook, in []string) ([]string, error) {
		return h.OnBundle(ctx, kind, in)
	})
}

// PostBundle lets plugins rewrite a transformed bundle.
func (p *Pipeline) PostBundle(ctx context.Context, kind domain.NodeType, content string) string {
	return chain(p, "postBundle", content, func(h ports.PostBundleHook, in string) (string, error) {
		return h.OnPostBundle(ctx, kind, in)
	})
}

// Page lets plugins rewrite a parsed page document.
func (p *Pipeline) Page(ctx context.Context, path string, doc *html.Node) *html.Node {
	return chain(p, "page", doc, func(h ports.PageHook, in *html.Node) (*html.Node, error) {
		out, err := h.OnPage(ctx, path, in)
		if err == nil && out == nil {
			return in, nil
		}
		return out, err
	})
}

// PreHTMLMinify lets plugins rewrite serialized page markup.
func (p *Pipeline) PreHTMLMinify(ctx context.Context, path, markup string) string {
	return chain(p, "preHTMLMinify", markup, func(h ports.PreHTMLMinifyHook, in string) (string, error) {
		return h.OnPreHTMLMinify(ctx, path, in)
	})
}

// PostBuild runs after a successful full build.
func (p *Pipeline) PostBuild(ctx context.Context) {
	chain(p, "postBuild", struct{}{}, func(h ports.PostBuildHook, in struct{}) (struct{}, error) {
		return in, h.OnPostBuild(ctx)
	})
}

func chain[H any, T any](p *Pipeline, stage string, in T, call func(H, T) (T, error)) T {
	out := in
	for _, plugin := range p.plugins {
		hook, ok := plugin.(H)
		if !ok {
			continue
		}

		next, err := invoke(func() (T, error) { return call(hook, out) })
		if err != nil {
			wrapped := zerr.Wrap(err, fmt.Sprintf("plugin %s failed in %s", plugin.Name(), stage))
			p.logger.Error(zerr.With(wrapped, "plugin", plugin.Name()))
			continue
		}
		out = next
	}
	return out
}

func invoke[T any](fn func() (T, error)) (result T, err error) {
	defer zerr.Defer(func(recovered error) {
		var zero T
		result, err = zero, recovered
	})
	return fn()
}
