package containr

import (
	"errors"
	"io"

	"github.com/junioryono/containr/internal/graph"
)

// Validate checks the dependencies that auto-resolved constructors declare
// through md and parameter-object tags. Every required key must be bound and
// no declared chain may lead back to its own key. Factories are opaque: they
// contribute their key but no edges. A nil md reads DefaultMetadata().
//
// Validate reports a cycle as a CircularDependencyError. Missing keys are
// reported as ResolutionErrors wrapping MissingServiceError, joined.
func (s *ServiceCollection) Validate(md *Metadata) error {
	if err := s.Err(); err != nil {
		return err
	}

	g := s.graph(md)

	if err := g.DetectCycles(); err != nil {
		var cycle graph.CycleError
		if errors.As(err, &cycle) {
			return CircularDependencyError{Key: cycle.Path[0], Path: cycle.Path}
		}
		return err
	}

	var errs []error
	for _, missing := range g.Missing() {
		errs = append(errs, ResolutionError{
			Key:   missing.From,
			Cause: MissingServiceError{Key: missing.To},
		})
	}

	return errors.Join(errs...)
}

// WriteGraph writes the declared dependency graph in Graphviz DOT format.
// Optional edges are dashed and unbound keys are drawn gray.
func (s *ServiceCollection) WriteGraph(w io.Writer, md *Metadata) error {
	return graph.NewVisualizer(s.graph(md)).WriteDOT(w)
}

// DescribeGraph writes the declared dependency graph as text, grouped by depth.
func (s *ServiceCollection) DescribeGraph(w io.Writer, md *Metadata) error {
	return graph.NewVisualizer(s.graph(md)).WriteText(w)
}

func (s *ServiceCollection) graph(md *Metadata) *graph.DependencyGraph {
	if md == nil {
		md = DefaultMetadata()
	}

	g := graph.New()
	for key, scope := range s.values {
		var edges []graph.Edge
		for _, ctor := range s.constructors[key] {
			edges = append(edges, declaredEdges(ctor, md)...)
		}
		g.AddNode(key, scope.Lifetime().String(), edges...)
	}

	return g
}

// declaredEdges mirrors what autoResolve will ask the container for. A
// descriptor whose chain carries interceptors may recover from a missing key,
// so only bare container reads are required.
func declaredEdges(ctor *Constructor, md *Metadata) []graph.Edge {
	descriptors := md.Descriptors(ctor)

	if len(descriptors) == 0 && ctor.info.IsParamObject {
		edges := make([]graph.Edge, 0, len(ctor.info.Fields))
		for _, field := range ctor.info.Fields {
			edges = append(edges, graph.Edge{
				Key:      field.Key,
				Required: !field.Optional && !field.Array,
			})
		}
		return edges
	}

	edges := make([]graph.Edge, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Key == ContainerKey {
			continue
		}

		required := true
		if d.Chain != nil {
			required = d.Chain.resolveFromContainer && d.Chain.Len() == 0
		}

		edges = append(edges, graph.Edge{Key: d.Key, Required: required})
	}

	return edges
}
