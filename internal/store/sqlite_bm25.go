package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"hybridrag/internal/model"
)

// sqliteBM25 is the built-in full-text writer requiring no external
// store: it is itself the shared docstore of chunks. An embedded SQLite
// FTS5 virtual table gives real BM25 ranking (via FTS5's bm25()
// auxiliary function) without standing up a separate search service, and
// persists to the configured directory.
type sqliteBM25 struct {
	db *sql.DB
}

// NewSQLiteBM25 opens (or creates) the docstore at path. An empty path uses
// an in-memory database, for configurations with no bm25_persist_dir set.
func NewSQLiteBM25(path string) (FullTextStore, error) {
	dsn := ":memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create bm25 persist directory: %w", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=30000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open bm25 docstore: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping bm25 docstore: %w", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS chunk_docs (
  chunk_id TEXT PRIMARY KEY,
  text TEXT NOT NULL,
  metadata TEXT NOT NULL DEFAULT '{}'
)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_docs_fts USING fts5(
  text,
  content='chunk_docs',
  content_rowid='rowid',
  tokenize='porter unicode61'
)`,
		`CREATE TRIGGER IF NOT EXISTS chunk_docs_ai AFTER INSERT ON chunk_docs BEGIN
  INSERT INTO chunk_docs_fts(rowid, text) VALUES (new.rowid, new.text);
END`,
		`CREATE TRIGGER IF NOT EXISTS chunk_docs_ad AFTER DELETE ON chunk_docs BEGIN
  INSERT INTO chunk_docs_fts(chunk_docs_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
END`,
		`CREATE TRIGGER IF NOT EXISTS chunk_docs_au AFTER UPDATE ON chunk_docs BEGIN
  INSERT INTO chunk_docs_fts(chunk_docs_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
  INSERT INTO chunk_docs_fts(rowid, text) VALUES (new.rowid, new.text);
END`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create bm25 schema: %w", err)
		}
	}
	return &sqliteBM25{db: db}, nil
}

func (s *sqliteBM25) Index(ctx context.Context, chunk model.Chunk) error {
	md, err := json.Marshal(chunkMetadata(chunk))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO chunk_docs(chunk_id, text, metadata) VALUES (?, ?, ?)
ON CONFLICT(chunk_id) DO UPDATE SET text=excluded.text, metadata=excluded.metadata
`, chunk.ID, chunk.Text, string(md))
	return err
}

func (s *sqliteBM25) Remove(ctx context.Context, chunkID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunk_docs WHERE chunk_id = ?`, chunkID)
	return err
}

func (s *sqliteBM25) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT d.chunk_id, bm25(f) AS rank, d.text, d.metadata
FROM chunk_docs_fts f
JOIN chunk_docs d ON d.rowid = f.rowid
WHERE chunk_docs_fts MATCH ?
ORDER BY rank
LIMIT ?
`, query, k)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	defer rows.Close()

	out := make([]SearchResult, 0, k)
	for rows.Next() {
		var r SearchResult
		var rank float64
		var mdRaw string
		if err := rows.Scan(&r.ChunkID, &rank, &r.Text, &mdRaw); err != nil {
			return nil, err
		}
		// FTS5's bm25() returns a negative value where lower is better;
		// flip the sign so higher is better, consistent with the other
		// backends' score convention.
		r.Score = -rank
		var md map[string]string
		_ = json.Unmarshal([]byte(mdRaw), &md)
		r.Metadata = md
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteBM25) Close() error {
	return s.db.Close()
}
