package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"hybridrag/internal/model"
)

// pgSearch is a Postgres full-text backend using a tsvector-backed table
// to index model.Chunk.
type pgSearch struct{ pool *pgxpool.Pool }

func NewPostgresSearch(pool *pgxpool.Pool) FullTextStore {
	return &pgSearch{pool: pool}
}

func (p *pgSearch) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chunk_documents (
  chunk_id TEXT PRIMARY KEY,
  text TEXT NOT NULL,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  ts tsvector GENERATED ALWAYS AS (to_tsvector('simple', coalesce(text,''))) STORED
);`)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunk_documents_ts_idx ON chunk_documents USING GIN (ts)`)
	return err
}

func (p *pgSearch) Index(ctx context.Context, chunk model.Chunk) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	md, err := json.Marshal(chunkMetadata(chunk))
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO chunk_documents(chunk_id, text, metadata) VALUES($1,$2,$3)
ON CONFLICT (chunk_id) DO UPDATE SET text=EXCLUDED.text, metadata=EXCLUDED.metadata
`, chunk.ID, chunk.Text, md)
	return err
}

func (p *pgSearch) Remove(ctx context.Context, chunkID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM chunk_documents WHERE chunk_id=$1`, chunkID)
	return err
}

func (p *pgSearch) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	rows, err := p.pool.Query(ctx, `
SELECT chunk_id, ts_rank(ts, plainto_tsquery('simple',$1)) AS score, text, metadata
FROM chunk_documents
WHERE ts @@ plainto_tsquery('simple',$1)
ORDER BY score DESC
LIMIT $2
`, q, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SearchResult, 0, k)
	for rows.Next() {
		var r SearchResult
		var md map[string]string
		if err := rows.Scan(&r.ChunkID, &r.Score, &r.Text, &md); err != nil {
			return nil, err
		}
		r.Metadata = md
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *pgSearch) Close() error {
	p.pool.Close()
	return nil
}
