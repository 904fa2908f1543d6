package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"hybridrag/internal/model"
)

// pgVector stores vectors in a pgvector column with cosine/l2/ip
// distance operators, alongside chunk text so a vector hit doesn't need
// a second round trip.
type pgVector struct {
	pool   *pgxpool.Pool
	dim    int
	metric string
}

func NewPostgresVector(pool *pgxpool.Pool, metric string) VectorStore {
	return &pgVector{pool: pool, metric: strings.ToLower(strings.TrimSpace(metric))}
}

func (p *pgVector) EnsureDimension(ctx context.Context, dim int) error {
	if _, err := p.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	vecType := "vector"
	if dim > 0 {
		vecType = fmt.Sprintf("vector(%d)", dim)
	}
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS chunk_embeddings (
  chunk_id TEXT PRIMARY KEY,
  vec %s,
  text TEXT NOT NULL,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);`, vecType))
	if err != nil {
		return fmt.Errorf("create chunk_embeddings table: %w", err)
	}
	p.dim = dim
	return nil
}

func (p *pgVector) Upsert(ctx context.Context, chunk model.Chunk) error {
	md, err := json.Marshal(chunkMetadata(chunk))
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO chunk_embeddings(chunk_id, vec, text, metadata) VALUES($1, $2::vector, $3, $4)
ON CONFLICT (chunk_id) DO UPDATE SET vec=EXCLUDED.vec, text=EXCLUDED.text, metadata=EXCLUDED.metadata
`, chunk.ID, toVectorLiteral(chunk.Embedding), chunk.Text, md)
	return err
}

func (p *pgVector) Delete(ctx context.Context, chunkID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM chunk_embeddings WHERE chunk_id=$1`, chunkID)
	return err
}

func (p *pgVector) Search(ctx context.Context, embedding []float32, k int) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	vecLit := toVectorLiteral(embedding)
	op, scoreExpr := "<=>", "1 - (vec <=> $1::vector)"
	switch p.metric {
	case "l2", "euclidean":
		op, scoreExpr = "<->", "-(vec <-> $1::vector)"
	case "ip", "dot":
		op, scoreExpr = "<#>", "-(vec <#> $1::vector)"
	}
	query := fmt.Sprintf(`SELECT chunk_id, %s AS score, text, metadata FROM chunk_embeddings ORDER BY vec %s $1::vector LIMIT $2`, scoreExpr, op)
	rows, err := p.pool.Query(ctx, query, vecLit, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]VectorResult, 0, k)
	for rows.Next() {
		var r VectorResult
		var md map[string]string
		if err := rows.Scan(&r.ChunkID, &r.Score, &r.Text, &md); err != nil {
			return nil, err
		}
		r.Metadata = md
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *pgVector) Close() error {
	p.pool.Close()
	return nil
}

func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
