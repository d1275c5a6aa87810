// Package catalog stores product records in Neo4j. Products and their
// features form a small graph: (Product)-[:HAS_FEATURE]->(Feature). The
// retrieval core reads it for the degraded search path and appends chunk
// ids to a product's vector-id list after ingestion.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Store provides product catalog operations.
type Store struct {
	driver     neo4j.DriverWithContext
	newSession func(ctx context.Context) runner // for testing
}

// New creates a catalog Store on an established driver.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (s *Store) session(ctx context.Context) runner {
	if s.newSession != nil {
		return s.newSession(ctx)
	}
	return &sessionAdapter{sess: s.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// SaveProduct creates or updates a product node and its feature nodes.
func (s *Store) SaveProduct(ctx context.Context, p domain.Product) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	feats := make([]map[string]any, len(p.Features))
	for i, f := range p.Features {
		feats[i] = map[string]any{"name": f.Name, "description": f.Description}
	}

	cypher := `MERGE (p:Product {id: $id})
SET p += $props
WITH p
UNWIND $features AS feat
MERGE (p)-[:HAS_FEATURE]->(f:Feature {product_id: $id, name: feat.name})
SET f.description = feat.description`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id": p.ID,
		"props": map[string]any{
			"name":               p.Name,
			"description":        p.Description,
			"documentation_urls": p.DocumentationURLs,
			"created_by":         p.CreatedBy,
			"updated_at":         time.Now().UTC(),
		},
		"features": feats,
	})
	if err != nil {
		return fmt.Errorf("catalog: save product %s: %w", p.ID, err)
	}
	return nil
}

// GetProduct returns a product with its features.
func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var zero domain.Product
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (p:Product {id: $id})
OPTIONAL MATCH (p)-[:HAS_FEATURE]->(f:Feature)
RETURN p, collect(f) AS features`
	res, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return zero, fmt.Errorf("catalog: get product %s: %w", id, err)
	}
	if !res.Next(ctx) {
		return zero, fmt.Errorf("catalog: product %s not found", id)
	}
	return productFromRecord(res.Record())
}

// AppendVectorIDs grows the product's vector-id list with the chunk ids of
// a completed ingestion. The list only ever grows; chunk deletion happens
// in the vector store, not here.
func (s *Store) AppendVectorIDs(ctx context.Context, id string, vectorIDs []string) error {
	if len(vectorIDs) == 0 {
		return nil
	}
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (p:Product {id: $id})
SET p.vector_ids = coalesce(p.vector_ids, []) + $vector_ids,
    p.updated_at = $now
RETURN p.id`
	res, err := sess.Run(ctx, cypher, map[string]any{
		"id":         id,
		"vector_ids": vectorIDs,
		"now":        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("catalog: append vector ids to %s: %w", id, err)
	}
	if !res.Next(ctx) {
		return fmt.Errorf("catalog: product %s not found", id)
	}
	return nil
}

// DeleteProduct removes a product and its feature nodes. The caller is
// responsible for also deleting the product's chunks from the vector store.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (p:Product {id: $id})
OPTIONAL MATCH (p)-[:HAS_FEATURE]->(f:Feature)
DETACH DELETE p, f`
	if _, err := sess.Run(ctx, cypher, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("catalog: delete product %s: %w", id, err)
	}
	return nil
}

func productFromRecord(rec *neo4j.Record) (domain.Product, error) {
	var zero domain.Product
	nodeVal, ok := rec.Get("p")
	if !ok {
		return zero, fmt.Errorf("catalog: record missing product node")
	}
	node, ok := nodeVal.(dbtype.Node)
	if !ok {
		return zero, fmt.Errorf("catalog: unexpected product value %T", nodeVal)
	}

	p := domain.Product{
		ID:                stringProp(node.Props, "id"),
		Name:              stringProp(node.Props, "name"),
		Description:       stringProp(node.Props, "description"),
		DocumentationURLs: stringSliceProp(node.Props, "documentation_urls"),
		VectorIDs:         stringSliceProp(node.Props, "vector_ids"),
		CreatedBy:         stringProp(node.Props, "created_by"),
	}
	if ts, ok := node.Props["updated_at"].(time.Time); ok {
		p.UpdatedAt = ts
	}

	if featsVal, ok := rec.Get("features"); ok {
		feats, _ := featsVal.([]any)
		for _, fv := range feats {
			fnode, ok := fv.(dbtype.Node)
			if !ok {
				continue
			}
			p.Features = append(p.Features, domain.Feature{
				Name:        stringProp(fnode.Props, "name"),
				Description: stringProp(fnode.Props, "description"),
			})
		}
	}
	return p, nil
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func stringSliceProp(props map[string]any, key string) []string {
	raw, _ := props[key].([]any)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
