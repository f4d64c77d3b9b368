// Package knowledge is a small SQLite-backed snippet store used to ground
// question generation in reference material.
package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/interviewer/internal/textanalysis"
)

const (
	DefaultTopK      = 6
	DefaultThreshold = 0.58
)

// Document is one retrieved snippet. Score is the share of query terms the
// snippet contains, in [0,1].
type Document struct {
	ID      int64
	Source  string
	Content string
	Score   float64
}

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating when needed) the knowledge base at path.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("knowledge base path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge base directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping knowledge base: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS knowledge_documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL UNIQUE,
		terms TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add stores a snippet. Re-adding identical content updates its source and
// keeps the original id.
func (s *Store) Add(ctx context.Context, source, content string) (int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, errors.New("document content must not be empty")
	}

	query := `
	INSERT INTO knowledge_documents (source, content, terms, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(content) DO UPDATE SET source = excluded.source
	RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		strings.TrimSpace(source), content, encodeTerms(textanalysis.ContentTokens(content)), time.Now().Unix(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// Count returns the number of stored snippets.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Retrieve returns up to topK snippets whose score reaches threshold, best first.
func (s *Store) Retrieve(ctx context.Context, query string, topK int, threshold float64) ([]Document, error) {
	if topK <= 0 {
		return nil, nil
	}

	terms := textanalysis.ContentTokens(query)
	if len(terms) == 0 {
		return nil, nil
	}

	sorted := make([]string, 0, len(terms))
	for term := range terms {
		sorted = append(sorted, term)
	}
	sort.Strings(sorted)

	clauses := make([]string, 0, len(sorted))
	args := make([]any, 0, len(sorted))
	for _, term := range sorted {
		clauses = append(clauses, "terms LIKE ?")
		args = append(args, "% "+term+" %")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, content, terms FROM knowledge_documents WHERE `+strings.Join(clauses, " OR "),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc      Document
			docTerms string
		)
		if err := rows.Scan(&doc.ID, &doc.Source, &doc.Content, &docTerms); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}

		doc.Score = coverage(terms, decodeTerms(docTerms))
		if doc.Score >= threshold {
			docs = append(docs, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score == docs[j].Score {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].Score > docs[j].Score
	})
	if len(docs) > topK {
		docs = docs[:topK]
	}

	s.logger.Debug("retrieved knowledge documents",
		zap.Int("documents", len(docs)),
		zap.Int("top_k", topK),
		zap.Float64("threshold", threshold),
	)
	return docs, nil
}

func coverage(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for term := range query {
		if _, ok := doc[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// Terms are stored space-delimited with surrounding spaces so a LIKE '% term %'
// filter matches whole terms only.
func encodeTerms(terms map[string]struct{}) string {
	list := make([]string, 0, len(terms))
	for term := range terms {
		list = append(list, term)
	}
	sort.Strings(list)
	return " " + strings.Join(list, " ") + " "
}

func decodeTerms(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, term := range strings.Fields(s) {
		terms[term] = struct{}{}
	}
	return terms
}
