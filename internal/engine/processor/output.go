package processor

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// transform returns the cached result for key or computes it under the limiter.
func (e *Env) transform(
	ctx context.Context, cache ports.TransformCache, key string, fn func() (string, error),
) (string, error) {
	if out, ok := cache.Get(key); ok {
		return out, nil
	}

	var out string
	err := e.Limiter.Do(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		return "", err
	}
	cache.Add(key, out)
	return out, nil
}

// minify runs the minifier and rejects empty output for non-empty input.
func (e *Env) minify(kind domain.NodeType, content string) (string, error) {
	out, err := e.Minifier.Minify(kind, content)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" && strings.TrimSpace(content) != "" {
		return "", zerr.With(zerr.Wrap(domain.ErrEmptyTransform, "minifier dropped all content"), "type", string(kind))
	}
	return out, nil
}

// outputPath maps a slash-separated output-relative path into the output directory.
func (e *Env) outputPath(rel string) string {
	return filepath.Join(e.Config.OutDir, filepath.FromSlash(rel))
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", path)
	}
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", path)
	}
	return nil
}

// relName returns the registry name of a source file.
func relName(cfg *domain.Config, absPath string) (string, error) {
	rel, ok := cfg.RelPath(absPath)
	if !ok {
		return "", zerr.With(zerr.Wrap(domain.ErrPathOutsideSource, "cannot register node"), "path", absPath)
	}
	return rel, nil
}
