package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

const chunkColumns = `id, source, chunk_index, title, author, processed_date, chunk_length, content`

// VectorStore implements driven.VectorStore on PostgreSQL with pgvector.
// Query uses the cosine distance operator, which already yields 1 - cosine similarity.
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new pgvector-backed store
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// Upsert inserts or replaces records in one transaction
func (s *VectorStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (`+chunkColumns+`, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
			ON CONFLICT (id) DO UPDATE SET
				source = EXCLUDED.source,
				chunk_index = EXCLUDED.chunk_index,
				title = EXCLUDED.title,
				author = EXCLUDED.author,
				processed_date = EXCLUDED.processed_date,
				chunk_length = EXCLUDED.chunk_length,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding
		`)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			if len(r.Vector) == 0 {
				return fmt.Errorf("chunk %s has no embedding", r.ID)
			}
			m := r.Metadata
			if _, err := stmt.ExecContext(ctx,
				r.ID, m.Source, m.ChunkIndex, m.Title, m.Author, m.ProcessedDate, m.ChunkLength,
				r.Text, vectorLiteral(r.Vector),
			); err != nil {
				return fmt.Errorf("upsert chunk %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// Query returns the k nearest chunks by cosine distance
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int) ([]domain.QueryMatch, error) {
	if k <= 0 {
		return []domain.QueryMatch{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, embedding <=> $1::vector AS distance
		FROM chunks
		ORDER BY distance, id
		LIMIT $2
	`, vectorLiteral(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]domain.QueryMatch, 0, k)
	for rows.Next() {
		var m domain.QueryMatch
		if err := rows.Scan(chunkDest(&m.StoredChunk, &m.Distance)...); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Delete removes chunks by id
func (s *VectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// DeleteWhere removes all chunks matching the filter
func (s *VectorStore) DeleteWhere(ctx context.Context, filter driven.Filter) error {
	if filter.IsEmpty() {
		return s.Reset(ctx)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source = $1`, filter.Source); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", filter.Source, err)
	}
	return nil
}

// Get scans stored chunks in id order
func (s *VectorStore) Get(ctx context.Context, opts driven.GetOptions) ([]domain.StoredChunk, error) {
	query, args := buildGetQuery(opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.StoredChunk
	for rows.Next() {
		var c domain.StoredChunk
		if err := rows.Scan(chunkDest(&c)...); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Count returns the number of stored chunks
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Reset removes every chunk
func (s *VectorStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE chunks`); err != nil {
		return fmt.Errorf("reset chunks: %w", err)
	}
	return nil
}

// HealthCheck verifies the database is reachable
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close is a no-op; the pool is owned by the caller
func (s *VectorStore) Close() error {
	return nil
}

func buildGetQuery(opts driven.GetOptions) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT " + chunkColumns + " FROM chunks")
	if !opts.Filter.IsEmpty() {
		args = append(args, opts.Filter.Source)
		b.WriteString(" WHERE source = $" + strconv.Itoa(len(args)))
	}
	b.WriteString(" ORDER BY id")
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

func chunkDest(c *domain.StoredChunk, extra ...any) []any {
	dest := []any{
		&c.ID, &c.Metadata.Source, &c.Metadata.ChunkIndex, &c.Metadata.Title,
		&c.Metadata.Author, &c.Metadata.ProcessedDate, &c.Metadata.ChunkLength, &c.Document,
	}
	return append(dest, extra...)
}

// vectorLiteral renders a vector in pgvector text form, e.g. [0.1,0.2]
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
