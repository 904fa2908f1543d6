package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"hybridrag/internal/model"
)

// sqliteGraph is the embedded "kuzu-like" typed-table graph backend:
// fixed Chunk/Entity tables plus one table per relation in the active
// validation schema, materialized before first write with a soft
// delete-and-recreate reset. It uses database/sql with
// mattn/go-sqlite3, generalized from two fixed tables to one table per
// schema relation.
//
// Search is served from a flat triples table kept alongside the typed
// tables (mirroring the typed tables' contents) so substring/keyword
// lookups don't require dynamically unioning an unbounded number of
// per-relation tables.
type sqliteGraph struct {
	mu        sync.Mutex
	db        *sql.DB
	relTables map[string]bool
}

var relTableNameRe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// NewSQLiteGraph opens (or creates) the embedded graph database at path.
// A soft reset (delete-and-recreate) between runs is acceptable during
// development.
func NewSQLiteGraph(path string) (GraphStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create graph db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite graph db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite graph db: %w", err)
	}
	return &sqliteGraph{db: db, relTables: make(map[string]bool)}, nil
}

func relTableName(relation string) string {
	name := relTableNameRe.ReplaceAllString(strings.ToLower(relation), "_")
	if name == "" {
		name = "other"
	}
	return "rel_" + name
}

func (g *sqliteGraph) EnsureSchema(ctx context.Context, schema model.Schema) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS entities`,
		`DROP TABLE IF EXISTS chunks`,
		`DROP TABLE IF EXISTS triples`,
	} {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("soft reset: %w", err)
		}
	}
	for table := range g.relTables {
		if _, err := g.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return fmt.Errorf("soft reset %s: %w", table, err)
		}
	}
	g.relTables = make(map[string]bool)

	for _, stmt := range []string{
		`CREATE TABLE chunks (id TEXT PRIMARY KEY)`,
		`CREATE TABLE entities (id TEXT PRIMARY KEY, label TEXT NOT NULL, name TEXT NOT NULL)`,
		`CREATE TABLE triples (id INTEGER PRIMARY KEY AUTOINCREMENT, subject TEXT NOT NULL, relation TEXT NOT NULL, object TEXT NOT NULL, chunk_ids TEXT NOT NULL DEFAULT '')`,
		`CREATE INDEX idx_triples_subject ON triples(subject)`,
		`CREATE INDEX idx_triples_object ON triples(object)`,
	} {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	for _, relation := range schema.RelationLabels {
		if err := g.ensureRelationTableLocked(ctx, relation); err != nil {
			return err
		}
	}
	return nil
}

func (g *sqliteGraph) ensureRelationTableLocked(ctx context.Context, relation string) error {
	table := relTableName(relation)
	if g.relTables[table] {
		return nil
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  source_id TEXT NOT NULL,
  target_id TEXT NOT NULL,
  chunk_ids TEXT NOT NULL DEFAULT ''
)`, table)
	if _, err := g.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create relation table %s: %w", table, err)
	}
	g.relTables[table] = true
	return nil
}

func (g *sqliteGraph) UpsertTriple(ctx context.Context, t model.Triple) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureRelationTableLocked(ctx, t.Relation); err != nil {
		return err
	}
	chunkIDs := strings.Join(t.ChunkIDs, ",")

	if _, err := g.db.ExecContext(ctx, `INSERT OR IGNORE INTO entities(id, label, name) VALUES (?, ?, ?)`,
		t.Subject, t.SubjectLabel, t.Subject); err != nil {
		return fmt.Errorf("upsert subject entity: %w", err)
	}
	if _, err := g.db.ExecContext(ctx, `INSERT OR IGNORE INTO entities(id, label, name) VALUES (?, ?, ?)`,
		t.Object, t.ObjectLabel, t.Object); err != nil {
		return fmt.Errorf("upsert object entity: %w", err)
	}

	table := relTableName(t.Relation)
	if _, err := g.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s(source_id, target_id, chunk_ids) VALUES (?, ?, ?)`, table),
		t.Subject, t.Object, chunkIDs); err != nil {
		return fmt.Errorf("insert relation row: %w", err)
	}
	if _, err := g.db.ExecContext(ctx, `INSERT INTO triples(subject, relation, object, chunk_ids) VALUES (?, ?, ?, ?)`,
		t.Subject, t.Relation, t.Object, chunkIDs); err != nil {
		return fmt.Errorf("insert flat triple: %w", err)
	}
	return nil
}

// searchTerms splits query into the distinct lowercase words Search matches
// per-term against, since a whole-query LIKE almost never substring-matches
// a short subject/relation/object triple.
func searchTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]bool, len(fields))
	var terms []string
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
		if len(terms) == 8 {
			break
		}
	}
	return terms
}

func (g *sqliteGraph) Search(ctx context.Context, query string, k int) ([]GraphResult, error) {
	if k <= 0 {
		k = 5
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var scoreClauses, whereClauses []string
	var scoreArgs, whereArgs []any
	for _, t := range terms {
		like := "%" + t + "%"
		scoreClauses = append(scoreClauses, "(CASE WHEN subject LIKE ? OR object LIKE ? OR relation LIKE ? THEN 1 ELSE 0 END)")
		scoreArgs = append(scoreArgs, like, like, like)
		whereClauses = append(whereClauses, "(subject LIKE ? OR object LIKE ? OR relation LIKE ?)")
		whereArgs = append(whereArgs, like, like, like)
	}

	sqlText := fmt.Sprintf(`
SELECT subject, relation, object, chunk_ids, (%s) AS match_count FROM triples
WHERE %s
ORDER BY match_count DESC
LIMIT ?`, strings.Join(scoreClauses, " + "), strings.Join(whereClauses, " OR "))

	args := make([]any, 0, len(scoreArgs)+len(whereArgs)+1)
	args = append(args, scoreArgs...)
	args = append(args, whereArgs...)
	args = append(args, k)

	rows, err := g.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("search triples: %w", err)
	}
	defer rows.Close()

	out := make([]GraphResult, 0, k)
	for rows.Next() {
		var subject, relation, object, chunkIDsRaw string
		var matchCount int
		if err := rows.Scan(&subject, &relation, &object, &chunkIDsRaw, &matchCount); err != nil {
			return nil, err
		}
		var chunkIDs []string
		if chunkIDsRaw != "" {
			chunkIDs = strings.Split(chunkIDsRaw, ",")
		}
		out = append(out, GraphResult{
			ChunkIDs: chunkIDs,
			Text:     fmt.Sprintf("%s -> %s -> %s", subject, relation, object),
			Score:    float64(matchCount) / float64(len(terms)),
		})
	}
	return out, rows.Err()
}

func (g *sqliteGraph) Close() error {
	return g.db.Close()
}
