package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/legalqa/assistant/pkg/embeddings"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS faq_vectors (
	id         TEXT PRIMARY KEY,
	embedding  BLOB NOT NULL,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	category   TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteIndex is a file-backed index. Vectors are stored as little-endian float32 blobs
// and queried with an exact scan, which suits knowledge bases of a few thousand entries.
type SQLiteIndex struct {
	db         *sql.DB
	path       string
	dimensions int

	// mu gives queries shared access and writes exclusive access.
	mu sync.RWMutex
}

var _ Index = (*SQLiteIndex)(nil)

// OpenSQLite opens (creating if needed) the index file at path.
func OpenSQLite(path string, dimensions int) (*SQLiteIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vectorindex: dimensions must be positive, got %d", dimensions)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("creating index schema: %w", err)
	}

	return &SQLiteIndex{db: db, path: path, dimensions: dimensions}, nil
}

// Close closes the underlying database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Path returns the index file path.
func (s *SQLiteIndex) Path() string {
	return s.path
}

// Upsert inserts or overwrites the vector for id.
func (s *SQLiteIndex) Upsert(ctx context.Context, id string, embedding []float32, metadata Metadata) error {
	if err := checkDimensions(embedding, s.dimensions); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO faq_vectors (id, embedding, question, answer, category, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			question = excluded.question,
			answer = excluded.answer,
			category = excluded.category,
			updated_at = excluded.updated_at`,
		id, encodeVector(embedding), metadata.Question, metadata.Answer, metadata.Category,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}

	return nil
}

// Query scans every stored vector and returns the k closest.
func (s *SQLiteIndex) Query(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	if err := checkDimensions(embedding, s.dimensions); err != nil {
		return nil, err
	}

	hits := []Hit{}
	if k <= 0 {
		return hits, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding, question, answer, category FROM faq_vectors`)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			hit  Hit
			blob []byte
		)

		if err := rows.Scan(&hit.ID, &blob, &hit.Metadata.Question, &hit.Metadata.Answer, &hit.Metadata.Category); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}

		stored := decodeVector(blob)
		if len(stored) != s.dimensions {
			return nil, fmt.Errorf("%w: stored vector %s has %d dimensions, index expects %d",
				ErrDimensionMismatch, hit.ID, len(stored), s.dimensions)
		}

		hit.Distance = embeddings.SquaredL2(embedding, stored)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector rows: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}

		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}

// Count returns the number of stored vectors.
func (s *SQLiteIndex) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM faq_vectors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("vector count: %w", err)
	}

	return count, nil
}

// Clear deletes every vector inside one transaction.
func (s *SQLiteIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM faq_vectors`); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("vector clear: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}

	return nil
}

// Delete removes the vector for id.
func (s *SQLiteIndex) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM faq_vectors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}

	return nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}

	return buf
}

func decodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}

	return vec
}
