package processor

import (
	"context"

	"go.trai.ch/weave/internal/core/domain"
)

// leaf registers resources that have no dependencies of their own: stylesheets,
// scripts and images.
type leaf struct {
	env  *Env
	kind domain.NodeType
	exts []string
}

// Type implements Processor.
func (l *leaf) Type() domain.NodeType { return l.kind }

// Claims implements Processor.
func (l *leaf) Claims(absPath string, _ bool) bool {
	return hasExtension(absPath, l.exts)
}

// Init implements Processor.
func (l *leaf) Init(_ context.Context, pc *Context, paths []string) error {
	for _, path := range paths {
		name, err := relName(l.env.Config, path)
		if err != nil {
			return err
		}
		pc.AddNode(domain.NewAssetNode(l.kind, name, path))
	}
	return nil
}

// PatchNode implements Processor.
func (l *leaf) PatchNode(
	_ context.Context, pc *Context, absPath string, kind domain.EventKind,
) (*domain.AssetNode, error) {
	name, err := relName(l.env.Config, absPath)
	if err != nil {
		return nil, err
	}
	if kind == domain.EventUnlink {
		node := pc.RemoveNode(domain.NodeID(l.kind, name))
		if node == nil {
			node = domain.NewAssetNode(l.kind, name, absPath)
		}
		return node, nil
	}
	node := domain.NewAssetNode(l.kind, name, absPath)
	pc.AddNode(node)
	return node, nil
}
