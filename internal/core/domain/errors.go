package domain

import "go.trai.ch/zerr"

var (
	// ErrTreeNotInitialized is returned when the processor tree is queried before Init.
	ErrTreeNotInitialized = zerr.New("processor tree used before initialization")

	// ErrPageStructure is returned when a page lacks an html, head or body element.
	ErrPageStructure = zerr.New("page is missing html, head or body")

	// ErrTemplateCycle is returned when nested template inclusion forms a cycle.
	ErrTemplateCycle = zerr.New("template inclusion cycle detected")

	// ErrEmptyTransform is returned when a minifier produced no output for non-empty input.
	ErrEmptyTransform = zerr.New("transform returned no output")

	// ErrBundleFailed is returned when a shared bundle pipeline fails.
	ErrBundleFailed = zerr.New("bundle pipeline failed")

	// ErrPageBuildFailed is returned when a page cannot be built.
	ErrPageBuildFailed = zerr.New("page build failed")

	// ErrFetchFailed is returned when a remote resource cannot be fetched.
	ErrFetchFailed = zerr.New("failed to fetch remote resource")

	// ErrUnexpectedStatus is returned when a remote resource answers with an error status.
	ErrUnexpectedStatus = zerr.New("unexpected HTTP status")

	// ErrTemplateListingFailed is returned when a remote template listing cannot be decoded.
	ErrTemplateListingFailed = zerr.New("failed to decode template listing")

	// ErrCacheReadFailed is returned when a cache entry cannot be read.
	ErrCacheReadFailed = zerr.New("failed to read cache entry")

	// ErrCacheWriteFailed is returned when a cache entry cannot be written.
	ErrCacheWriteFailed = zerr.New("failed to write cache entry")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidCyclePolicy is returned when the cycle policy is not 'fail' or 'warn'.
	ErrInvalidCyclePolicy = zerr.New("invalid cycle policy, expected 'fail' or 'warn'")

	// ErrSourceDirMissing is returned when the configured source directory does not exist.
	ErrSourceDirMissing = zerr.New("source directory does not exist")

	// ErrTemplatesDirMissing is returned when the configured templates directory does not exist.
	ErrTemplatesDirMissing = zerr.New("templates directory does not exist")

	// ErrFileReadFailed is returned when a source file cannot be read.
	ErrFileReadFailed = zerr.New("failed to read file")

	// ErrFileWriteFailed is returned when an output file cannot be written.
	ErrFileWriteFailed = zerr.New("failed to write file")

	// ErrPathOutsideSource is returned when a path does not belong to the source tree.
	ErrPathOutsideSource = zerr.New("path is outside the source directory")

	// ErrMinifyFailed is returned when the minifier rejects its input.
	ErrMinifyFailed = zerr.New("failed to minify content")

	// ErrPurgeFailed is returned when unused selectors cannot be purged.
	ErrPurgeFailed = zerr.New("failed to purge stylesheet")

	// ErrServerFailed is returned when the development server stops unexpectedly.
	ErrServerFailed = zerr.New("development server failed")

	// ErrWatcherFailed is returned when the file watcher cannot be started.
	ErrWatcherFailed = zerr.New("failed to start file watcher")
)
