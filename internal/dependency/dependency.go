// Package dependency models Requires= relationships between the quadlets of a connection.
package dependency

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/trly/quadlet-sync/internal/quadlet"
)

// ErrCycle is returned when no start order exists.
var ErrCycle = errors.New("dependency graph contains a cycle")

// UnitGraph models dependencies between units.
// Edge direction: dependency -> dependent (B -> A means A requires B).
type UnitGraph struct {
	mu       sync.RWMutex
	g        graph.Graph[string, string]
	external map[string]struct{} // units required but not backed by a quadlet
}

// NewUnitGraph creates a new, empty dependency graph.
func NewUnitGraph() *UnitGraph {
	return &UnitGraph{
		g:        graph.New(graph.StringHash, graph.Directed()),
		external: make(map[string]struct{}),
	}
}

// AddUnit ensures a unit exists in the graph.
func (ug *UnitGraph) AddUnit(name string) error {
	if name == "" {
		return fmt.Errorf("unit name cannot be empty")
	}
	ug.mu.Lock()
	defer ug.mu.Unlock()

	delete(ug.external, name)
	return ug.addVertex(name)
}

func (ug *UnitGraph) addVertex(name string) error {
	if err := ug.g.AddVertex(name); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

// AddDependency records that dependent requires dependency. Unknown
// dependencies are added and flagged as external until AddUnit claims them.
func (ug *UnitGraph) AddDependency(dependent, dependency string) error {
	if dependent == "" || dependency == "" {
		return fmt.Errorf("dependent and dependency must be non-empty")
	}
	if dependent == dependency {
		return fmt.Errorf("self-dependency is not allowed: %s", dependent)
	}

	ug.mu.Lock()
	defer ug.mu.Unlock()

	if err := ug.addVertex(dependent); err != nil {
		return err
	}
	if _, err := ug.g.Vertex(dependency); errors.Is(err, graph.ErrVertexNotFound) {
		ug.external[dependency] = struct{}{}
	}
	if err := ug.addVertex(dependency); err != nil {
		return err
	}
	if err := ug.g.AddEdge(dependency, dependent); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return err
	}
	return nil
}

// Dependencies returns the units the given unit requires.
func (ug *UnitGraph) Dependencies(name string) ([]string, error) {
	ug.mu.RLock()
	defer ug.mu.RUnlock()

	preds, err := ug.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return neighbours(preds, name)
}

// Dependents returns the units that require the given unit.
func (ug *UnitGraph) Dependents(name string) ([]string, error) {
	ug.mu.RLock()
	defer ug.mu.RUnlock()

	succs, err := ug.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return neighbours(succs, name)
}

func neighbours(m map[string]map[string]graph.Edge[string], name string) ([]string, error) {
	edges, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("unknown unit: %s", name)
	}
	out := make([]string, 0, len(edges))
	for n := range edges {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// StartOrder returns units with dependencies first, ties broken lexically.
func (ug *UnitGraph) StartOrder() ([]string, error) {
	ug.mu.RLock()
	defer ug.mu.RUnlock()

	order, err := graph.StableTopologicalSort(ug.g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}
	return order, nil
}

// HasCycles checks if the dependency graph contains cycles.
func (ug *UnitGraph) HasCycles() bool {
	_, err := ug.StartOrder()
	return err != nil
}

// External reports whether name was only seen as a requirement.
func (ug *UnitGraph) External(name string) bool {
	ug.mu.RLock()
	defer ug.mu.RUnlock()
	_, ok := ug.external[name]
	return ok
}

// Units returns all units, sorted.
func (ug *UnitGraph) Units() []string {
	ug.mu.RLock()
	defer ug.mu.RUnlock()

	adj, err := ug.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(adj))
	for n := range adj {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NodeName is the graph node for q: its service, or the source file name
// when no service was generated.
func NodeName(q quadlet.Quadlet) string {
	if q.HasService() {
		return q.Service
	}
	return q.Name()
}

// BuildUnitGraph builds the Requires= graph for a snapshot of quadlets.
func BuildUnitGraph(quadlets []quadlet.Quadlet) (*UnitGraph, error) {
	ug := NewUnitGraph()

	for _, q := range quadlets {
		if err := ug.AddUnit(NodeName(q)); err != nil {
			return nil, fmt.Errorf("failed to add unit %s: %w", q.Path, err)
		}
	}

	for _, q := range quadlets {
		name := NodeName(q)
		for _, req := range q.Requires {
			if req == name {
				continue
			}
			if err := ug.AddDependency(name, req); err != nil {
				return nil, fmt.Errorf("failed to add dependency %s -> %s: %w", name, req, err)
			}
		}
	}

	return ug, nil
}
