// Package graph holds the declared dependency graph between container keys.
//
// Nodes are bound keys. Edges come from what a binding declares it will
// resolve, so factories that call the container directly contribute nodes
// without edges. Edges to keys without a node are kept: required ones are
// reported by Missing, and every one of them is ignored by the traversals.
package graph

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Edge is a declared dependency on Key. Optional edges may point at keys that
// are never bound.
type Edge struct {
	Key      string
	Required bool
}

// Node represents a bound key in the dependency graph
type Node struct {
	Key   string
	Label string

	Dependencies []Edge   // keys this node resolves
	Dependents   []string // keys that resolve this node

	// Depth is the length of the longest chain of known dependencies below
	// the node. It is -1 for nodes on or above a cycle.
	Depth int
}

// DependencyGraph manages the dependency relationships between keys.
// It provides cycle detection, topological sorting, and missing-key analysis.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// CycleError reports a cycle. Path starts and ends with the same key.
type CycleError struct {
	Path []string
}

func (e CycleError) Error() string {
	return "circular dependency: " + strings.Join(e.Path, " -> ")
}

// MissingEdge is a required dependency on a key with no node.
type MissingEdge struct {
	From string
	To   string
}

func (m MissingEdge) String() string {
	return fmt.Sprintf("%s -> %s", m.From, m.To)
}

// New creates an empty dependency graph
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*Node),
	}
}

// AddNode adds key, replacing any edges it had.
func (g *DependencyGraph) AddNode(key, label string, deps ...Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes[key] = &Node{
		Key:          key,
		Label:        label,
		Dependencies: slices.Clone(deps),
	}

	g.updateDependents()
}

// updateDependents recalculates the reverse edges for all nodes
func (g *DependencyGraph) updateDependents() {
	for _, node := range g.nodes {
		node.Dependents = node.Dependents[:0]
	}

	for _, from := range g.sortedKeys() {
		for _, edge := range g.nodes[from].Dependencies {
			if to, ok := g.nodes[edge.Key]; ok && !slices.Contains(to.Dependents, from) {
				to.Dependents = append(to.Dependents, from)
			}
		}
	}
}

func (g *DependencyGraph) sortedKeys() []string {
	keys := make([]string, 0, len(g.nodes))
	for key := range g.nodes {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// known returns the dependencies of key that have nodes, without duplicates.
func (g *DependencyGraph) known(key string) []string {
	var deps []string
	for _, edge := range g.nodes[key].Dependencies {
		if _, ok := g.nodes[edge.Key]; ok && !slices.Contains(deps, edge.Key) {
			deps = append(deps, edge.Key)
		}
	}
	return deps
}

// Node returns the node for key, or nil.
func (g *DependencyGraph) Node(key string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.nodes[key]
}

// HasNode checks if a node exists in the graph
func (g *DependencyGraph) HasNode(key string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.nodes[key]
	return ok
}

// Size returns the number of nodes in the graph
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// Keys returns every node key, sorted.
func (g *DependencyGraph) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.sortedKeys()
}

// Missing returns the required edges whose target has no node, sorted.
func (g *DependencyGraph) Missing() []MissingEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []MissingEdge
	for _, from := range g.sortedKeys() {
		for _, edge := range g.nodes[from].Dependencies {
			if _, ok := g.nodes[edge.Key]; !ok && edge.Required {
				missing = append(missing, MissingEdge{From: from, To: edge.Key})
			}
		}
	}

	return missing
}

// DetectCycles returns a CycleError for the first cycle found, visiting keys
// in sorted order and dependencies in declaration order.
func (g *DependencyGraph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(key string) error
	visit = func(key string) error {
		switch state[key] {
		case visited:
			return nil
		case visiting:
			start := slices.Index(path, key)
			cycle := append(slices.Clone(path[start:]), key)
			return CycleError{Path: cycle}
		}

		state[key] = visiting
		path = append(path, key)

		for _, dep := range g.known(key) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[key] = visited
		return nil
	}

	for _, key := range g.sortedKeys() {
		if err := visit(key); err != nil {
			return err
		}
	}

	return nil
}

// IsAcyclic returns true if the graph has no cycles
func (g *DependencyGraph) IsAcyclic() bool {
	return g.DetectCycles() == nil
}

// TopologicalSort returns nodes in dependency order (dependencies first) and
// assigns depths. Ties are broken by key.
func (g *DependencyGraph) TopologicalSort() ([]*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Kahn's algorithm over known edges
	remaining := make(map[string]int, len(g.nodes))
	for key, node := range g.nodes {
		remaining[key] = len(g.known(key))
		node.Depth = -1
	}

	var queue []string
	for _, key := range g.sortedKeys() {
		if remaining[key] == 0 {
			g.nodes[key].Depth = 0
			queue = append(queue, key)
		}
	}

	result := make([]*Node, 0, len(g.nodes))
	for len(queue) > 0 {
		current := g.nodes[queue[0]]
		queue = queue[1:]
		result = append(result, current)

		var ready []string
		for _, dependent := range current.Dependents {
			node := g.nodes[dependent]
			node.Depth = max(node.Depth, current.Depth+1)

			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		slices.Sort(ready)
		queue = append(queue, ready...)
	}

	for key, node := range g.nodes {
		if remaining[key] != 0 {
			node.Depth = -1
		}
	}

	if len(result) != len(g.nodes) {
		return result, fmt.Errorf("circular dependency detected: graph contains %d nodes but only %d could be sorted",
			len(g.nodes), len(result))
	}

	return result, nil
}

// TransitiveDependencies returns every known key reachable from key, in
// depth-first order.
func (g *DependencyGraph) TransitiveDependencies(key string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[key]; !ok {
		return nil
	}

	seen := map[string]bool{key: true}
	var result []string

	var collect func(current string)
	collect = func(current string) {
		for _, dep := range g.known(current) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			result = append(result, dep)
			collect(dep)
		}
	}

	collect(key)
	return result
}

// Roots returns the nodes nothing depends on, sorted by key.
func (g *DependencyGraph) Roots() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var roots []*Node
	for _, key := range g.sortedKeys() {
		if len(g.nodes[key].Dependents) == 0 {
			roots = append(roots, g.nodes[key])
		}
	}

	return roots
}

// Leaves returns the nodes without known dependencies, sorted by key.
func (g *DependencyGraph) Leaves() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var leaves []*Node
	for _, key := range g.sortedKeys() {
		if len(g.known(key)) == 0 {
			leaves = append(leaves, g.nodes[key])
		}
	}

	return leaves
}

// String returns a string representation of the node
func (n *Node) String() string {
	return fmt.Sprintf("Node{%s, deps:%d, dependents:%d, depth:%d}",
		n.Key, len(n.Dependencies), len(n.Dependents), n.Depth)
}
