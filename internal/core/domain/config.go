package domain

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// CyclePolicy decides what happens when template inclusion forms a cycle.
type CyclePolicy string

const (
	// CycleFail aborts the build.
	CycleFail CyclePolicy = "fail"
	// CycleWarn logs the cycle and leaves the affected include tags unexpanded.
	CycleWarn CyclePolicy = "warn"
)

// Config is the resolved build configuration. All directories are absolute.
type Config struct {
	Root              string
	SourceDir         string
	OutDir            string
	TemplatesDir      string
	SharedDomain      string
	BundleName        string
	AssetsDir         string
	TemplateEndpoints []string
	Workers           int
	Cycles            CyclePolicy
	Minify            MinifyConfig
	Purge             PurgeConfig
	Cache             CacheConfig
	Plugins           PluginConfig
	Dev               DevConfig
}

// MinifyConfig toggles minification per output kind.
type MinifyConfig struct {
	HTML bool
	CSS  bool
	JS   bool
}

// PurgeConfig controls unused-selector removal for the CSS bundle.
type PurgeConfig struct {
	Enabled  bool
	Safelist []string
}

// CacheConfig controls the HTTP and transform caches.
type CacheConfig struct {
	HTTP              bool
	Dir               string
	Entries           int
	RequestsPerSecond float64
}

// PluginConfig toggles the built-in plugins.
type PluginConfig struct {
	GeneratorMeta bool
}

// DevConfig holds development server settings.
type DevConfig struct {
	Addr     string
	Debounce time.Duration
	Purge    bool
}

const (
	// DefaultSourceDir is the default source root.
	DefaultSourceDir = "src"
	// DefaultOutDir is the default output root.
	DefaultOutDir = "dist"
	// DefaultBundleName is the base name of the shared bundles.
	DefaultBundleName = "bundle"
	// DefaultAssetsDir is where fetched remote assets are written.
	DefaultAssetsDir = "assets"
	// DefaultCacheEntries is the capacity of each transform cache.
	DefaultCacheEntries = 512
	// DefaultDevAddr is the development server listen address.
	DefaultDevAddr = "127.0.0.1:8080"
	// DefaultDebounce is the file event coalescing window.
	DefaultDebounce = 100 * time.Millisecond
)

// DefaultConfig returns a configuration rooted at root with all defaults applied.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:       root,
		SourceDir:  filepath.Join(root, DefaultSourceDir),
		OutDir:     filepath.Join(root, DefaultOutDir),
		BundleName: DefaultBundleName,
		AssetsDir:  DefaultAssetsDir,
		Workers:    runtime.NumCPU(),
		Cycles:     CycleFail,
		Minify:     MinifyConfig{HTML: true, CSS: true, JS: true},
		Purge:      PurgeConfig{Enabled: true},
		Cache: CacheConfig{
			HTTP:    true,
			Dir:     filepath.Join(root, DefaultHTTPCachePath()),
			Entries: DefaultCacheEntries,
		},
		Plugins: PluginConfig{GeneratorMeta: true},
		Dev: DevConfig{
			Addr:     DefaultDevAddr,
			Debounce: DefaultDebounce,
		},
	}
}

// BundleURL returns the output URL of the shared bundle for the node type.
func (c *Config) BundleURL(t NodeType) string {
	return "/" + c.BundleName + "." + string(t)
}

// IsShared reports whether uri points at the configured shared domain.
func (c *Config) IsShared(uri string) bool {
	return c.SharedDomain != "" && strings.HasPrefix(uri, c.SharedDomain)
}

// InTemplates reports whether the absolute path lies inside the templates directory.
func (c *Config) InTemplates(absPath string) bool {
	return c.TemplatesDir != "" && within(c.TemplatesDir, absPath)
}

// InSource reports whether the absolute path lies inside the source directory.
func (c *Config) InSource(absPath string) bool {
	return within(c.SourceDir, absPath)
}

// RelPath returns the slash-separated path of absPath relative to the source directory.
func (c *Config) RelPath(absPath string) (string, bool) {
	if !c.InSource(absPath) {
		return "", false
	}
	rel, err := filepath.Rel(c.SourceDir, absPath)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
