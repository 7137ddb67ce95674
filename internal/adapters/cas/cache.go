package cas

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TransformCache = (*TransformCache)(nil)

// Cache names used as metric labels.
const (
	CacheCSS  = "css"
	CacheJS   = "js"
	CacheHTML = "html"
)

// TransformCache is a bounded LRU of transform results keyed by fingerprint.
type TransformCache struct {
	name    string
	entries *lru.Cache[string, string]
	metrics ports.Metrics
}

// NewTransformCache creates a cache holding at most size entries. metrics may be nil.
func NewTransformCache(name string, size int, metrics ports.Metrics) (*TransformCache, error) {
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create transform cache"), "cache", name)
	}
	return &TransformCache{name: name, entries: entries, metrics: metrics}, nil
}

// Get returns the cached transform result for fingerprint.
func (c *TransformCache) Get(fingerprint string) (string, bool) {
	content, ok := c.entries.Get(fingerprint)
	if c.metrics != nil {
		c.metrics.TransformCache(c.name, ok)
	}
	return content, ok
}

// Add stores a transform result.
func (c *TransformCache) Add(fingerprint, content string) {
	c.entries.Add(fingerprint, content)
}

// Len returns the number of cached entries.
func (c *TransformCache) Len() int {
	return c.entries.Len()
}

// Caches groups the per-kind transform caches.
type Caches struct {
	CSS  *TransformCache
	JS   *TransformCache
	HTML *TransformCache
}

// NewCaches creates one transform cache per artifact kind.
func NewCaches(size int, metrics ports.Metrics) (*Caches, error) {
	css, err := NewTransformCache(CacheCSS, size, metrics)
	if err != nil {
		return nil, err
	}
	js, err := NewTransformCache(CacheJS, size, metrics)
	if err != nil {
		return nil, err
	}
	html, err := NewTransformCache(CacheHTML, size, metrics)
	if err != nil {
		return nil, err
	}
	return &Caches{CSS: css, JS: js, HTML: html}, nil
}
