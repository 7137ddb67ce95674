package processor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"go.trai.ch/weave/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// Tree routes source files to the processor that owns them and answers graph queries
// for the builder.
type Tree struct {
	env        *Env
	processors []Processor

	mu sync.RWMutex
	pc *Context
}

// NewTree creates a Tree. A file is claimed by the first processor that accepts it.
func NewTree(env *Env, processors ...Processor) *Tree {
	return &Tree{env: env, processors: processors}
}

// Init discovers the source tree and runs every processor's discovery concurrently.
// It replaces any previous registry and graph.
func (t *Tree) Init(ctx context.Context) error {
	pc := NewContext(t.env)

	claimed := make(map[domain.NodeType][]string)
	for path := range t.env.Walker.WalkFiles(t.env.Config.SourceDir, t.ignores()...) {
		if p := t.claim(path); p != nil {
			claimed[p.Type()] = append(claimed[p.Type()], path)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range t.processors {
		g.Go(func() error {
			return p.Init(gctx, pc, claimed[p.Type()])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	t.mu.Lock()
	t.pc = pc
	t.mu.Unlock()
	return nil
}

// Context returns the registry and graph of the last Init.
func (t *Tree) Context() (*Context, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pc == nil {
		return nil, domain.ErrTreeNotInitialized
	}
	return t.pc, nil
}

// AllPages returns every registered page sorted by name.
func (t *Tree) AllPages() ([]*domain.AssetNode, error) {
	pc, err := t.Context()
	if err != nil {
		return nil, err
	}
	return pc.NodesOfType(domain.NodePage), nil
}

// StaleNodes returns the registered nodes of type filter that transitively depend on id.
func (t *Tree) StaleNodes(id string, filter domain.NodeType) ([]*domain.AssetNode, error) {
	pc, err := t.Context()
	if err != nil {
		return nil, err
	}

	var nodes []*domain.AssetNode
	for _, affected := range pc.Graph().AffectedNodes(id) {
		if typ, _, ok := domain.ParseNodeID(affected); !ok || typ != filter {
			continue
		}
		if node, ok := pc.NodeByID(affected); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// SubtreeSize counts the resources id depends on, directly or transitively.
func (t *Tree) SubtreeSize(id string) (int, error) {
	pc, err := t.Context()
	if err != nil {
		return 0, err
	}
	return pc.Graph().SubtreeSize(id, nil), nil
}

// Claims reports whether any processor owns absPath.
func (t *Tree) Claims(absPath string) bool {
	return t.claim(absPath) != nil
}

// PatchNode hands a file event to the owning processor. It returns nil when no
// processor claims the path or the owner ignores the event. Directory additions go through AddDir.
func (t *Tree) PatchNode(ctx context.Context, absPath string, kind domain.EventKind) (*domain.AssetNode, error) {
	pc, err := t.Context()
	if err != nil {
		return nil, err
	}
	p := t.claim(absPath)
	if p == nil {
		return nil, nil
	}
	return p.PatchNode(ctx, pc, absPath, kind)
}

// AddDir registers every claimed file below dir as added. A template cycle does not stop
// the walk; it is returned together with the registered nodes.
func (t *Tree) AddDir(ctx context.Context, dir string) ([]*domain.AssetNode, error) {
	if _, err := t.Context(); err != nil {
		return nil, err
	}

	var (
		nodes    []*domain.AssetNode
		cycleErr error
	)
	for path := range t.env.Walker.WalkFiles(dir, t.ignores()...) {
		node, err := t.PatchNode(ctx, path, domain.EventAdd)
		switch {
		case errors.Is(err, domain.ErrTemplateCycle):
			cycleErr = err
		case err != nil:
			return nodes, err
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, cycleErr
}

func (t *Tree) claim(absPath string) Processor {
	inTemplates := t.env.Config.InTemplates(absPath)
	for _, p := range t.processors {
		if p.Claims(absPath, inTemplates) {
			return p
		}
	}
	return nil
}

func (t *Tree) ignores() []string {
	return []string{t.env.Config.OutDir, filepath.Join(t.env.Config.Root, domain.WeaveDirName)}
}
