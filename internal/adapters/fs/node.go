package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/weave/internal/core/ports"
)

// WalkerNodeID is the unique identifier for the walker Graft node.
const WalkerNodeID graft.ID = "adapter.fs.walker"

func init() {
	graft.Register(graft.Node[ports.SourceWalker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.SourceWalker, error) {
			return NewWalker(), nil
		},
	})
}
