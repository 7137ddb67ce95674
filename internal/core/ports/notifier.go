package ports

import "go.trai.ch/weave/internal/core/domain"

// Notifier pushes live-update messages to connected clients.
type Notifier interface {
	Broadcast(msg domain.LiveMessage)
}
