package domain

import "path/filepath"

const (
	// WeaveDirName is the name of the internal workspace directory.
	WeaveDirName = ".weave"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// HTTPCacheDirName is the name of the HTTP response cache directory.
	HTTPCacheDirName = "http"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "weave.yaml"

	// DebugLogFile is the name of the debug log file.
	DebugLogFile = "debug.log"

	// LiveUpdatePath is the URL path of the live-update WebSocket.
	LiveUpdatePath = "/__weave/ws"

	// LiveClientPath is the URL path of the live-update client script.
	LiveClientPath = "/__weave/client.js"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultWeavePath returns the default root directory for weave metadata.
func DefaultWeavePath() string {
	return WeaveDirName
}

// DefaultCachePath returns the default path for all caches.
// It joins .weave and cache.
func DefaultCachePath() string {
	return filepath.Join(WeaveDirName, CacheDirName)
}

// DefaultHTTPCachePath returns the default path for the HTTP response cache.
// It joins .weave, cache, and http.
func DefaultHTTPCachePath() string {
	return filepath.Join(WeaveDirName, CacheDirName, HTTPCacheDirName)
}

// DefaultDebugLogPath returns the default path for the debug log.
func DefaultDebugLogPath() string {
	return filepath.Join(WeaveDirName, DebugLogFile)
}
