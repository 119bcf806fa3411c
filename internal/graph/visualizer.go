package graph

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// Visualizer provides methods to visualize the dependency graph
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format. Optional edges are
// dashed; keys that are depended on but not bound are drawn gray.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	v.graph.mu.RLock()
	defer v.graph.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled];\n")

	var unbound []string
	for _, key := range v.graph.sortedKeys() {
		node := v.graph.nodes[key]
		fmt.Fprintf(&b, "  %q [label=%q, fillcolor=%q];\n", key, v.formatNodeLabel(node), nodeColor(node.Label))

		for _, edge := range node.Dependencies {
			if _, ok := v.graph.nodes[edge.Key]; !ok && !slices.Contains(unbound, edge.Key) {
				unbound = append(unbound, edge.Key)
			}
		}
	}

	slices.Sort(unbound)
	for _, key := range unbound {
		fmt.Fprintf(&b, "  %q [label=%q, fillcolor=\"lightgray\", style=\"filled,dashed\"];\n", key, key)
	}

	for _, key := range v.graph.sortedKeys() {
		for _, edge := range v.graph.nodes[key].Dependencies {
			if edge.Required {
				fmt.Fprintf(&b, "  %q -> %q;\n", key, edge.Key)
			} else {
				fmt.Fprintf(&b, "  %q -> %q [style=dashed];\n", key, edge.Key)
			}
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes the nodes grouped by depth, followed by statistics.
func (v *Visualizer) WriteText(w io.Writer) error {
	sorted, sortErr := v.graph.TopologicalSort()

	var b strings.Builder
	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	if sortErr != nil {
		fmt.Fprintf(&b, "Warning: %v\n\n", sortErr)
	}

	// Group nodes by depth
	levels := make(map[int][]*Node)
	maxDepth := -1
	for _, node := range sorted {
		levels[node.Depth] = append(levels[node.Depth], node)
		maxDepth = max(maxDepth, node.Depth)
	}

	for depth := 0; depth <= maxDepth; depth++ {
		nodes, ok := levels[depth]
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "Level %d:\n", depth)
		b.WriteString("--------\n")
		for _, node := range nodes {
			writeNodeDetails(&b, node, "  ")
		}
		b.WriteString("\n")
	}

	if sortErr != nil {
		b.WriteString("Nodes in Cycles:\n")
		b.WriteString("----------------\n")
		for _, key := range v.graph.Keys() {
			if node := v.graph.Node(key); node.Depth < 0 {
				writeNodeDetails(&b, node, "  ")
			}
		}
		b.WriteString("\n")
	}

	v.writeStatistics(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

// formatNodeLabel creates a label for a node
func (v *Visualizer) formatNodeLabel(node *Node) string {
	if node.Label == "" {
		return node.Key
	}
	return node.Key + "\n" + node.Label
}

// nodeColor determines the color for a node based on its lifetime label
func nodeColor(label string) string {
	switch label {
	case "Singleton":
		return "lightblue"
	case "Transient":
		return "lightgreen"
	case "Unique":
		return "lightyellow"
	default:
		return "white"
	}
}

// writeNodeDetails writes detailed information about a node
func writeNodeDetails(b *strings.Builder, node *Node, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, node.Key)

	if node.Label != "" {
		fmt.Fprintf(b, "%s  Lifetime: %s\n", indent, node.Label)
	}

	if len(node.Dependencies) > 0 {
		deps := make([]string, len(node.Dependencies))
		for i, dep := range node.Dependencies {
			deps[i] = dep.Key
			if !dep.Required {
				deps[i] += "?"
			}
		}
		fmt.Fprintf(b, "%s  Dependencies: [%s]\n", indent, strings.Join(deps, ", "))
	}

	if len(node.Dependents) > 0 {
		fmt.Fprintf(b, "%s  Dependents: [%s]\n", indent, strings.Join(node.Dependents, ", "))
	}
}

// writeStatistics writes graph statistics
func (v *Visualizer) writeStatistics(b *strings.Builder) {
	b.WriteString("Statistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(b, "  Total nodes: %d\n", v.graph.Size())
	fmt.Fprintf(b, "  Total edges: %d\n", v.countEdges())
	fmt.Fprintf(b, "  Root nodes (no dependents): %d\n", len(v.graph.Roots()))
	fmt.Fprintf(b, "  Leaf nodes (no dependencies): %d\n", len(v.graph.Leaves()))
	fmt.Fprintf(b, "  Missing dependencies: %d\n", len(v.graph.Missing()))

	if v.graph.IsAcyclic() {
		b.WriteString("  Cycles: None (graph is acyclic)\n")
	} else {
		b.WriteString("  Cycles: DETECTED (graph contains circular dependencies)\n")
	}
}

// countEdges counts the total number of declared edges in the graph
func (v *Visualizer) countEdges() int {
	v.graph.mu.RLock()
	defer v.graph.mu.RUnlock()

	count := 0
	for _, node := range v.graph.nodes {
		count += len(node.Dependencies)
	}
	return count
}
