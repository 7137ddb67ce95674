// Package httpcache implements a conditional-GET response cache persisted on disk.
package httpcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/time/rate"
)

var _ ports.Fetcher = (*Cache)(nil)

// Fetch results reported to metrics.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultBypass = "bypass"
)

const (
	metaSuffix     = ".meta.json"
	defaultTimeout = 30 * time.Second
)

// entryMeta is the validator information persisted next to a cached body.
type entryMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"lastModified,omitempty"`
	StoredAt     time.Time `json:"storedAt"`
}

// Cache fetches remote resources and revalidates persisted copies with
// If-None-Match and If-Modified-Since.
type Cache struct {
	dir     string
	persist bool
	client  *http.Client
	limiter *rate.Limiter
	metrics ports.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(c *Cache) {
		c.client = client
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less means unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *Cache) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMetrics reports fetch outcomes.
func WithMetrics(m ports.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithoutPersistence turns the cache into a plain fetcher.
func WithoutPersistence() Option {
	return func(c *Cache) {
		c.persist = false
	}
}

// New creates a Cache storing entries in dir.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{
		dir:     dir,
		persist: true,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// response is a completed request together with the validators it carried.
type response struct {
	status       int
	body         []byte
	etag         string
	lastModified string
}

// Fetch performs a GET for rawURL. A persisted copy is revalidated and returned on 304.
func (c *Cache) Fetch(ctx context.Context, rawURL string) (*ports.Fetched, error) {
	if !c.persist {
		res, err := c.get(ctx, rawURL, nil)
		if err != nil {
			return nil, err
		}
		c.report(ResultBypass)
		return &ports.Fetched{StatusCode: res.status, Body: res.body}, nil
	}

	meta, err := c.readMeta(rawURL)
	if err != nil {
		return nil, err
	}
	res, err := c.get(ctx, rawURL, meta)
	if err != nil {
		return nil, err
	}

	if res.status == http.StatusNotModified {
		body, readErr := os.ReadFile(c.bodyPath(rawURL))
		if readErr == nil {
			c.report(ResultHit)
			return &ports.Fetched{StatusCode: http.StatusOK, Body: body, FromCache: true}, nil
		}
		// Validators survived without a body, start over.
		if res, err = c.get(ctx, rawURL, nil); err != nil {
			return nil, err
		}
	}

	if res.status >= http.StatusBadRequest {
		c.report(ResultBypass)
		return &ports.Fetched{StatusCode: res.status, Body: res.body}, nil
	}

	c.report(ResultMiss)
	if res.status == http.StatusOK {
		if err := c.write(rawURL, res); err != nil {
			return nil, err
		}
	}
	return &ports.Fetched{StatusCode: res.status, Body: res.body}, nil
}

func (c *Cache) get(ctx context.Context, rawURL string, meta *entryMeta) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "url", rawURL)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "url", rawURL)
	}
	if meta != nil {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "url", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		err := zerr.Wrap(domain.ErrUnexpectedStatus, fmt.Sprintf("server responded %d", resp.StatusCode))
		err = zerr.Wrap(err, domain.ErrFetchFailed.Error())
		return nil, zerr.With(err, "url", rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "url", rawURL)
	}

	return &response{
		status:       resp.StatusCode,
		body:         body,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func (c *Cache) report(result string) {
	if c.metrics != nil {
		c.metrics.HTTPFetch(result)
	}
}

// Key returns the file name an URL is stored under.
func Key(rawURL string) string {
	return url.QueryEscape(rawURL)
}

func (c *Cache) bodyPath(rawURL string) string {
	return filepath.Join(c.dir, Key(rawURL))
}

func (c *Cache) metaPath(rawURL string) string {
	return c.bodyPath(rawURL) + metaSuffix
}

// readMeta returns nil without error when nothing is persisted for rawURL.
func (c *Cache) readMeta(rawURL string) (*entryMeta, error) {
	data, err := os.ReadFile(c.metaPath(rawURL))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "url", rawURL)
	}

	var meta entryMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		// A corrupt entry is treated as absent.
		return nil, nil //nolint:nilerr // refetch unconditionally
	}
	return &meta, nil
}

func (c *Cache) write(rawURL string, res *response) error {
	if err := os.MkdirAll(c.dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "dir", c.dir)
	}

	meta, err := json.Marshal(entryMeta{
		URL:          rawURL,
		ETag:         res.etag,
		LastModified: res.lastModified,
		StoredAt:     time.Now().UTC(),
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "url", rawURL)
	}

	if err := writeAtomic(c.bodyPath(rawURL), res.body); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "url", rawURL)
	}
	if err := writeAtomic(c.metaPath(rawURL), meta); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "url", rawURL)
	}
	return nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
