package bean

import (
	"sort"

	"github.com/toyz/synapse/internal/errors"
)

// graph records "depends on" edges between bean names
type graph struct {
	edges map[string][]string
}

func newGraph() *graph {
	return &graph{edges: make(map[string][]string)}
}

func (g *graph) addNode(id string) {
	if _, ok := g.edges[id]; !ok {
		g.edges[id] = nil
	}
}

// addEdge records that from depends on to
func (g *graph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.edges[from] = append(g.edges[from], to)
}

// detectCycles runs a depth-first search with temporary and permanent marks
// and returns a CycleError naming the first cycle found, in sorted node order.
func (g *graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), id)
			return errors.NewCycleError(path)
		}

		temporary[id] = true
		stack = append(stack, id)
		deps := append([]string{}, g.edges[id]...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	ids := make([]string, 0, len(g.edges))
	for id := range g.edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}
