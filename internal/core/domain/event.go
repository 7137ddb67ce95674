package domain

// EventKind is the kind of file-system change fed into an incremental build.
type EventKind string

const (
	// EventAdd signals a new file.
	EventAdd EventKind = "add"
	// EventChange signals modified file contents.
	EventChange EventKind = "change"
	// EventUnlink signals a deleted file.
	EventUnlink EventKind = "unlink"
	// EventAddDir signals a new directory whose contents should be discovered.
	EventAddDir EventKind = "addDir"
)

// FileEvent is a debounced change of a single path.
type FileEvent struct {
	Path string
	Kind EventKind
}

// LiveMessageType is the type tag of a live-update message.
type LiveMessageType string

const (
	// LiveConnected is sent once per client after the WebSocket upgrade.
	LiveConnected LiveMessageType = "connected"
	// LiveCSSUpdate asks clients to hot-swap a stylesheet.
	LiveCSSUpdate LiveMessageType = "css-update"
	// LiveReload asks clients to reload the page.
	LiveReload LiveMessageType = "reload"
	// LivePageUpdate carries freshly rebuilt page markup.
	LivePageUpdate LiveMessageType = "page-update"
)

// LiveMessage is a live-update protocol message.
type LiveMessage struct {
	Type    LiveMessageType `json:"type"`
	Path    string          `json:"path,omitempty"`
	Content string          `json:"content,omitempty"`
}
