// Package sqlite persists the student index in SQLite and ranks documents
// with FTS5 bm25.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/spigell/placement-readiness/internal/retrieval"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

var metadataKey = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at path. The special path ":memory:"
// keeps everything in process.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if path == ":memory:" {
		// Every new connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Name() string { return "sqlite" }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			seq      INTEGER PRIMARY KEY AUTOINCREMENT,
			id       TEXT    NOT NULL UNIQUE,
			text     TEXT    NOT NULL,
			metadata TEXT    NOT NULL
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			text,
			content='documents',
			content_rowid='seq'
		);

		CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO documents_fts(rowid, text) VALUES (new.seq, new.text);
		END;

		CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, text) VALUES ('delete', old.seq, old.text);
		END;

		CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, text) VALUES ('delete', old.seq, old.text);
			INSERT INTO documents_fts(rowid, text) VALUES (new.seq, new.text);
		END;
	`)
	return err
}

// Upsert writes docs in one transaction. Existing IDs keep their position.
func (s *Store) Upsert(ctx context.Context, docs []retrieval.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, text, metadata) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		md, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Text, string(md)); err != nil {
			return fmt.Errorf("upsert %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// Query ranks documents by bm25 over any of the query words. A query without
// words returns the first k documents in load order with a zero score.
func (s *Store) Query(ctx context.Context, text string, k int) ([]retrieval.Match, error) {
	if k <= 0 {
		k = 10
	}

	ftsQuery := sanitizeFTS(text)
	if ftsQuery == "" {
		docs, err := s.list(ctx, `SELECT id, text, metadata FROM documents ORDER BY seq LIMIT ?`, k)
		if err != nil {
			return nil, err
		}
		out := make([]retrieval.Match, 0, len(docs))
		for _, d := range docs {
			out = append(out, retrieval.Match{Document: d})
		}
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.text, d.metadata, fts.rank
		FROM documents_fts fts
		JOIN documents d ON d.seq = fts.rowid
		WHERE documents_fts MATCH ?
		ORDER BY fts.rank, d.seq
		LIMIT ?
	`, ftsQuery, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var out []retrieval.Match
	for rows.Next() {
		var (
			d    retrieval.Document
			md   string
			rank float64
		)
		if err := rows.Scan(&d.ID, &d.Text, &md, &rank); err != nil {
			return nil, err
		}
		if d.Metadata, err = decodeMetadata(md); err != nil {
			return nil, err
		}
		// fts5 rank is negated bm25; flip it so higher is better.
		out = append(out, retrieval.Match{Document: d, Score: -rank})
	}
	return out, rows.Err()
}

func (s *Store) GetByMetadata(ctx context.Context, filter map[string]any) ([]retrieval.Document, error) {
	keys := make([]string, 0, len(filter))
	for key := range filter {
		if !metadataKey.MatchString(key) {
			return nil, fmt.Errorf("invalid metadata key %q", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	query := `SELECT id, text, metadata FROM documents`
	args := make([]any, 0, len(keys)*2)
	for i, key := range keys {
		if i == 0 {
			query += " WHERE "
		} else {
			query += " AND "
		}
		query += "json_extract(metadata, ?) = ?"
		args = append(args, "$."+key, filter[key])
	}
	query += " ORDER BY seq"

	return s.list(ctx, query, args...)
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]retrieval.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []retrieval.Document
	for rows.Next() {
		var (
			d  retrieval.Document
			md string
		)
		if err := rows.Scan(&d.ID, &d.Text, &md); err != nil {
			return nil, err
		}
		if d.Metadata, err = decodeMetadata(md); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func decodeMetadata(raw string) (map[string]any, error) {
	var md map[string]any
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}

// sanitizeFTS quotes every word so user input cannot use FTS5 syntax, and
// joins them with OR so any shared word counts.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	out := words[:0]
	for _, w := range words {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		out = append(out, `"`+w+`"`)
	}
	return strings.Join(out, " OR ")
}
