package ports

import "go.trai.ch/weave/internal/core/domain"

// Minifier compacts CSS, JS and page markup.
type Minifier interface {
	// Minify transforms content according to the node type (css, js or page).
	Minify(kind domain.NodeType, content string) (string, error)
}

// Purger removes stylesheet rules whose selectors match nothing in the corpus.
type Purger interface {
	Purge(css string, corpus []string) (string, error)
}

// TransformCache stores transform results keyed by content fingerprint.
type TransformCache interface {
	Get(fingerprint string) (string, bool)
	Add(fingerprint, content string)
}

// Hasher computes fast, non-cryptographic content fingerprints.
type Hasher interface {
	Sum(parts ...string) string
}

// DedupFilter remembers keys already processed within a build.
type DedupFilter interface {
	// Seen reports whether key was seen before and records it.
	Seen(key string) bool
	// Reset forgets every key.
	Reset()
}
