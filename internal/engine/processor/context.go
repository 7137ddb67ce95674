package processor

import (
	"slices"
	"strings"
	"sync"

	"go.trai.ch/weave/internal/core/domain"
)

// Context is the node registry and dependency graph shared by all processors.
// All methods are safe for concurrent use.
type Context struct {
	Env *Env

	mu     sync.RWMutex
	byPath map[string]*domain.AssetNode
	byID   map[string]*domain.AssetNode
	graph  *domain.DependencyGraph
}

// NewContext creates an empty Context.
func NewContext(env *Env) *Context {
	return &Context{
		Env:    env,
		byPath: make(map[string]*domain.AssetNode),
		byID:   make(map[string]*domain.AssetNode),
		graph:  domain.NewDependencyGraph(),
	}
}

// AddNode registers node, replacing a node with the same identity.
func (c *Context) AddNode(node *domain.AssetNode) {
	c.mu.Lock()
	if old, ok := c.byID[node.ID()]; ok {
		delete(c.byPath, old.AbsPath)
	}
	c.byID[node.ID()] = node
	c.byPath[node.AbsPath] = node
	c.mu.Unlock()

	c.graph.AddNode(node.ID())
}

// Unregister removes the node from the registry and keeps its graph edges.
func (c *Context) Unregister(id string) *domain.AssetNode {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.byID[id]
	if !ok {
		return nil
	}
	delete(c.byID, id)
	if c.byPath[node.AbsPath] == node {
		delete(c.byPath, node.AbsPath)
	}
	return node
}

// RemoveNode removes the node from the registry and the graph.
func (c *Context) RemoveNode(id string) *domain.AssetNode {
	node := c.Unregister(id)
	c.graph.RemoveNode(id)
	return node
}

// NodeByID returns the registered node with the given identity.
func (c *Context) NodeByID(id string) (*domain.AssetNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	node, ok := c.byID[id]
	return node, ok
}

// NodeByName returns the registered node of type t called name.
func (c *Context) NodeByName(t domain.NodeType, name string) (*domain.AssetNode, bool) {
	return c.NodeByID(domain.NodeID(t, name))
}

// NodeByAbsPath returns the node registered for the absolute path or remote URL.
func (c *Context) NodeByAbsPath(absPath string) (*domain.AssetNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	node, ok := c.byPath[absPath]
	return node, ok
}

// NodesOfType returns every registered node of type t sorted by name.
func (c *Context) NodesOfType(t domain.NodeType) []*domain.AssetNode {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var nodes []*domain.AssetNode
	for _, node := range c.byID {
		if node.Type == t {
			nodes = append(nodes, node)
		}
	}
	slices.SortFunc(nodes, func(a, b *domain.AssetNode) int {
		return strings.Compare(a.Name, b.Name)
	})
	return nodes
}

// AddDependency records that consumer depends on resource.
func (c *Context) AddDependency(consumer, resource string) {
	c.graph.AddDependency(consumer, resource)
}

// RemoveDependency deletes the edge between consumer and resource.
func (c *Context) RemoveDependency(consumer, resource string) {
	c.graph.RemoveDependency(consumer, resource)
}

// ClearDependencies removes every outgoing edge of the node.
func (c *Context) ClearDependencies(id string) {
	c.graph.ClearDependencies(id)
}

// Dependencies returns the direct resources of the node.
func (c *Context) Dependencies(id string) []string {
	return c.graph.Dependencies(id)
}

// Dependents returns the direct consumers of the node.
func (c *Context) Dependents(id string) []string {
	return c.graph.Dependents(id)
}

// Graph returns the underlying dependency graph.
func (c *Context) Graph() *domain.DependencyGraph {
	return c.graph
}
