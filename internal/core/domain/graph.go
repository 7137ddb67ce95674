package domain

import (
	"slices"
	"sync"
)

type set map[string]struct{}

// DependencyGraph records "consumer depends on resource" edges in both directions.
// All methods are safe for concurrent use.
type DependencyGraph struct {
	mu           sync.RWMutex
	dependencies map[string]set
	dependents   map[string]set
}

// NewDependencyGraph creates an empty DependencyGraph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dependencies: make(map[string]set),
		dependents:   make(map[string]set),
	}
}

// AddNode ensures the node exists without adding edges.
func (g *DependencyGraph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensure(id)
}

func (g *DependencyGraph) ensure(id string) {
	if _, ok := g.dependencies[id]; !ok {
		g.dependencies[id] = make(set)
	}
	if _, ok := g.dependents[id]; !ok {
		g.dependents[id] = make(set)
	}
}

// HasNode reports whether the node is known to the graph.
func (g *DependencyGraph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.dependencies[id]
	return ok
}

// AddDependency records that consumer depends on resource. It is idempotent.
func (g *DependencyGraph) AddDependency(consumer, resource string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ensure(consumer)
	g.ensure(resource)
	g.dependencies[consumer][resource] = struct{}{}
	g.dependents[resource][consumer] = struct{}{}
}

// RemoveDependency deletes the edge between consumer and resource if present.
func (g *DependencyGraph) RemoveDependency(consumer, resource string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if deps, ok := g.dependencies[consumer]; ok {
		delete(deps, resource)
	}
	if deps, ok := g.dependents[resource]; ok {
		delete(deps, consumer)
	}
}

// ClearDependencies removes every outgoing edge of the node and keeps the node itself.
func (g *DependencyGraph) ClearDependencies(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dep := range g.dependencies[id] {
		delete(g.dependents[dep], id)
	}
	if _, ok := g.dependencies[id]; ok {
		g.dependencies[id] = make(set)
	}
}

// RemoveNode deletes the node together with all incident edges.
func (g *DependencyGraph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dep := range g.dependencies[id] {
		delete(g.dependents[dep], id)
	}
	for consumer := range g.dependents[id] {
		delete(g.dependencies[consumer], id)
	}
	delete(g.dependencies, id)
	delete(g.dependents, id)
}

// Dependencies returns the direct forward edges of the node, sorted.
func (g *DependencyGraph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependencies[id])
}

// Dependents returns the direct reverse edges of the node, sorted.
func (g *DependencyGraph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[id])
}

// AffectedNodes returns every node that transitively depends on the changed node.
// The changed node itself is only part of the result if it sits on a cycle.
func (g *DependencyGraph) AffectedNodes(changed string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(set)
	queue := sortedKeys(g.dependents[changed])
	for _, id := range queue {
		visited[id] = struct{}{}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for consumer := range g.dependents[current] {
			if _, seen := visited[consumer]; seen {
				continue
			}
			visited[consumer] = struct{}{}
			queue = append(queue, consumer)
		}
	}

	return sortedKeys(visited)
}

// SubtreeSize counts the nodes reachable from id through forward edges. Nodes already in
// seen are not counted again, so a shared seen set counts each node once across calls.
func (g *DependencyGraph) SubtreeSize(id string, seen map[string]struct{}) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if seen == nil {
		seen = make(map[string]struct{})
	}

	count := 0
	stack := []string{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for dep := range g.dependencies[current] {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			count++
			stack = append(stack, dep)
		}
	}
	return count
}

// Nodes returns all known node identities, sorted.
func (g *DependencyGraph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependencies)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
