// Package fs provides file system adapters for discovering source files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"

	"go.trai.ch/weave/internal/core/ports"
)

var _ ports.SourceWalker = (*Walker)(nil)

// alwaysSkipped are directory names that never contain sources.
var alwaysSkipped = []string{".git", ".jj", ".weave", "node_modules"}

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every file below root in lexical order. Directories whose name matches
// one of the ignore patterns, or whose absolute path equals one of them, are skipped.
func (w *Walker) WalkFiles(root string, ignores ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				//nolint:nilerr // unreadable entries are skipped
				return nil
			}

			if d.IsDir() {
				if path != root && w.shouldSkipDir(path, d.Name(), ignores) {
					return filepath.SkipDir
				}
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Walker) shouldSkipDir(path, name string, ignores []string) bool {
	if slices.Contains(alwaysSkipped, name) {
		return true
	}

	for _, ignore := range ignores {
		if filepath.IsAbs(ignore) {
			if filepath.Clean(ignore) == path {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}
