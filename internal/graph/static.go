package graph

import (
	"context"
	"sort"
)

// Static is an in-memory dependency graph built from manifest-declared
// downstream lists. If a declares b as downstream, a is upstream of b.
type Static struct {
	upstream map[string][]string
}

// NewStatic builds a graph from a map of service -> declared downstream
// services.
func NewStatic(downstream map[string][]string) *Static {
	up := make(map[string][]string)
	for svc, deps := range downstream {
		for _, dep := range deps {
			up[dep] = append(up[dep], svc)
		}
	}
	for _, services := range up {
		sort.Strings(services)
	}
	return &Static{upstream: up}
}

// Upstream returns the direct upstreams of service.
func (g *Static) Upstream(_ context.Context, service string) ([]string, error) {
	return g.upstream[service], nil
}

// TransitiveUpstream walks the graph breadth-first and returns every
// reachable upstream with its depth.
func (g *Static) TransitiveUpstream(_ context.Context, service string) ([]Edge, error) {
	var edges []Edge
	seen := map[string]bool{service: true}
	frontier := []string{service}
	depth := 0

	for len(frontier) > 0 {
		depth++
		var next []string
		for _, svc := range frontier {
			for _, up := range g.upstream[svc] {
				if seen[up] {
					continue
				}
				seen[up] = true
				edges = append(edges, Edge{Service: up, Depth: depth})
				next = append(next, up)
			}
		}
		frontier = next
	}

	return edges, nil
}
