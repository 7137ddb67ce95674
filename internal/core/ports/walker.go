package ports

import "iter"

// SourceWalker enumerates source files.
type SourceWalker interface {
	// WalkFiles yields every file below root in lexical order, skipping directories that
	// match one of the ignore patterns or absolute paths.
	WalkFiles(root string, ignores ...string) iter.Seq[string]
}
