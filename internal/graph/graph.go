// Package graph resolves service dependency relationships for blast
// radius and correlation scoring.
package graph

import "context"

// Edge is one hop in the dependency graph. Depth 1 is a direct edge.
type Edge struct {
	Service string
	Depth   int
}

// DependencyGraph answers upstream queries for a service. An upstream
// of s is a service s depends on.
type DependencyGraph interface {
	Upstream(ctx context.Context, service string) ([]string, error)
	TransitiveUpstream(ctx context.Context, service string) ([]Edge, error)
}
