package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j resolves dependencies from a service catalog graph where
// (a:Service)-[:DEPENDS_ON]->(b:Service) means a depends on b.
type Neo4j struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j connects to a Neo4j-backed service catalog.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionLifetime = 5 * time.Minute
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = 10 * time.Second
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Neo4j{driver: driver}, nil
}

// Upstream returns services that service directly depends on.
func (g *Neo4j) Upstream(ctx context.Context, service string) ([]string, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	services, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]string, error) {
		res, err := tx.Run(ctx,
			`MATCH (s:Service {name: $name})-[:DEPENDS_ON]->(up:Service) RETURN up.name AS name`,
			map[string]any{"name": service})
		if err != nil {
			return nil, err
		}
		var names []string
		for res.Next(ctx) {
			if name, ok := res.Record().Get("name"); ok {
				if s, ok := name.(string); ok {
					names = append(names, s)
				}
			}
		}
		return names, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query upstream of %s: %w", service, err)
	}
	return services, nil
}

// TransitiveUpstream returns every reachable upstream with its hop depth.
func (g *Neo4j) TransitiveUpstream(ctx context.Context, service string) ([]Edge, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	edges, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]Edge, error) {
		res, err := tx.Run(ctx,
			`MATCH path = (s:Service {name: $name})-[:DEPENDS_ON*1..5]->(up:Service)
			 RETURN up.name AS name, length(path) AS depth`,
			map[string]any{"name": service})
		if err != nil {
			return nil, err
		}
		var edges []Edge
		for res.Next(ctx) {
			record := res.Record()
			name, _ := record.Get("name")
			depth, _ := record.Get("depth")
			svc, okName := name.(string)
			d, okDepth := depth.(int64)
			if okName && okDepth {
				edges = append(edges, Edge{Service: svc, Depth: int(d)})
			}
		}
		return edges, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query transitive upstream of %s: %w", service, err)
	}
	return edges, nil
}

// Close releases the underlying driver.
func (g *Neo4j) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
