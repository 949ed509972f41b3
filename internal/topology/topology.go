package topology

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neighbor is an entity connected to the affected component in the topology
// graph, with its hop distance from the root.
type Neighbor struct {
	Name     string
	Distance int
}

// Lookup resolves the blast radius of a component from the topology graph.
type Lookup interface {
	Neighbors(ctx context.Context, entity string) ([]Neighbor, error)
}

// Neo4jLookup runs a bounded-depth traversal from the affected entity. The
// neighbor list seeds the knowledge-base query for the enrichment stage so
// retrieval covers dependencies, not just the alerting component.
type Neo4jLookup struct {
	driver neo4j.DriverWithContext
	log    *zap.SugaredLogger
}

func NewNeo4jLookup(driver neo4j.DriverWithContext, log *zap.SugaredLogger) *Neo4jLookup {
	return &Neo4jLookup{driver: driver, log: log}
}

const neighborQuery = `
MATCH (root)
WHERE root.name = $rootName OR root.id = $rootName
MATCH p = (root)-[*1..4]-(neighbor)
WITH neighbor, length(p) as distance
RETURN neighbor.name as neighbor_name, min(distance) as distance
LIMIT 200
`

func (l *Neo4jLookup) Neighbors(ctx context.Context, entity string) ([]Neighbor, error) {
	session := l.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: "neo4j"})
	defer session.Close(ctx)

	res, err := session.Run(ctx, neighborQuery, map[string]any{"rootName": entity})
	if err != nil {
		return nil, err
	}

	var neighbors []Neighbor
	for res.Next(ctx) {
		rec := res.Record()
		name, ok := rec.Get("neighbor_name")
		if !ok {
			continue
		}
		nameStr, ok := name.(string)
		if !ok || nameStr == "" {
			continue
		}
		distance := 0
		if d, ok := rec.Get("distance"); ok {
			if dv, ok := d.(int64); ok {
				distance = int(dv)
			}
		}
		neighbors = append(neighbors, Neighbor{Name: nameStr, Distance: distance})
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return neighbors, nil
}

// NoopLookup is used when no topology graph is configured.
type NoopLookup struct{}

func (NoopLookup) Neighbors(ctx context.Context, entity string) ([]Neighbor, error) {
	return nil, nil
}
