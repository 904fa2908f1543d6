package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"hybridrag/internal/model"
)

// pgGraph persists model.Triple directly (subject/relation/object plus
// the chunk ids it was extracted from) in a single schemaless
// graph_triples table, rather than modeling a generic labeled-property
// graph. This backend also serves the `neo4j` graph-backend selection:
// Neo4j's property-graph model maps onto the same schemaless table, and no
// Neo4j Go driver is wired in (see DESIGN.md).
type pgGraph struct{ pool *pgxpool.Pool }

func NewPostgresGraph(pool *pgxpool.Pool) GraphStore {
	return &pgGraph{pool: pool}
}

func (g *pgGraph) EnsureSchema(ctx context.Context, _ model.Schema) error {
	_, err := g.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS graph_triples (
  id BIGSERIAL PRIMARY KEY,
  subject TEXT NOT NULL,
  subject_label TEXT NOT NULL DEFAULT '',
  relation TEXT NOT NULL,
  object TEXT NOT NULL,
  object_label TEXT NOT NULL DEFAULT '',
  chunk_ids JSONB NOT NULL DEFAULT '[]'::jsonb
);`)
	if err != nil {
		return fmt.Errorf("create graph_triples table: %w", err)
	}
	_, err = g.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS graph_triples_subject ON graph_triples(subject)`)
	return err
}

func (g *pgGraph) UpsertTriple(ctx context.Context, t model.Triple) error {
	chunkIDs, err := json.Marshal(t.ChunkIDs)
	if err != nil {
		return err
	}
	_, err = g.pool.Exec(ctx, `
INSERT INTO graph_triples(subject, subject_label, relation, object, object_label, chunk_ids)
VALUES ($1,$2,$3,$4,$5,$6)
`, t.Subject, t.SubjectLabel, t.Relation, t.Object, t.ObjectLabel, chunkIDs)
	return err
}

func (g *pgGraph) Search(ctx context.Context, query string, k int) ([]GraphResult, error) {
	if k <= 0 {
		k = 5
	}
	rows, err := g.pool.Query(ctx, `
SELECT subject, relation, object, chunk_ids
FROM graph_triples
WHERE subject ILIKE '%' || $1 || '%' OR object ILIKE '%' || $1 || '%' OR relation ILIKE '%' || $1 || '%'
LIMIT $2
`, query, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]GraphResult, 0, k)
	for rows.Next() {
		var subject, relation, object string
		var chunkIDsRaw []byte
		if err := rows.Scan(&subject, &relation, &object, &chunkIDsRaw); err != nil {
			return nil, err
		}
		var chunkIDs []string
		_ = json.Unmarshal(chunkIDsRaw, &chunkIDs)
		out = append(out, GraphResult{
			ChunkIDs: chunkIDs,
			Text:     fmt.Sprintf("%s -> %s -> %s", subject, relation, object),
			Score:    1,
		})
	}
	return out, rows.Err()
}

func (g *pgGraph) Close() error {
	g.pool.Close()
	return nil
}
