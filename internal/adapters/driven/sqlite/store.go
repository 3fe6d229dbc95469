package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/sqlite/migrations"
	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*Store)(nil)

const chunkColumns = `id, source, chunk_index, title, author, processed_date, chunk_length, content`

// Store is a file-backed vector store. Vectors are kept as little-endian
// float32 blobs and Query scans them exhaustively, which is exact and fast
// enough for a single-machine corpus.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Upsert inserts or replaces records in one transaction.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			chunk_index = excluded.chunk_index,
			title = excluded.title,
			author = excluded.author,
			processed_date = excluded.processed_date,
			chunk_length = excluded.chunk_length,
			content = excluded.content,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("chunk %s has no embedding", r.ID)
		}
		m := r.Metadata
		if _, err := stmt.ExecContext(ctx,
			r.ID, m.Source, m.ChunkIndex, m.Title, m.Author, m.ProcessedDate, m.ChunkLength,
			r.Text, float32SliceToBytes(r.Vector),
		); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Query returns the k nearest chunks by cosine distance.
// Ties are broken by id so results are stable.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]domain.QueryMatch, error) {
	if k <= 0 {
		return []domain.QueryMatch{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("scanning embeddings: %w", err)
	}

	type scored struct {
		id       string
		distance float64
	}
	var best []scored
	queryNorm := norm(vector)

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		stored := bytesToFloat32Slice(blob)
		if len(stored) != len(vector) {
			rows.Close()
			return nil, fmt.Errorf("chunk %s has dimension %d, query has %d", id, len(stored), len(vector))
		}
		best = append(best, scored{id: id, distance: cosineDistance(vector, stored, queryNorm)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	rows.Close()

	sort.Slice(best, func(i, j int) bool {
		if best[i].distance != best[j].distance {
			return best[i].distance < best[j].distance
		}
		return best[i].id < best[j].id
	})
	if len(best) > k {
		best = best[:k]
	}

	matches := make([]domain.QueryMatch, 0, len(best))
	for _, b := range best {
		chunk, err := s.getByID(ctx, b.id)
		if err != nil {
			return nil, err
		}
		matches = append(matches, domain.QueryMatch{StoredChunk: *chunk, Distance: b.distance})
	}
	return matches, nil
}

func (s *Store) getByID(ctx context.Context, id string) (*domain.StoredChunk, error) {
	var c domain.StoredChunk
	row := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	if err := row.Scan(chunkDest(&c)...); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning chunk %s: %w", id, err)
	}
	return &c, nil
}

// Delete removes chunks by id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeleteWhere removes all chunks matching the filter.
func (s *Store) DeleteWhere(ctx context.Context, filter driven.Filter) error {
	if filter.IsEmpty() {
		return s.Reset(ctx)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, filter.Source); err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", filter.Source, err)
	}
	return nil
}

// Get scans stored chunks in id order.
func (s *Store) Get(ctx context.Context, opts driven.GetOptions) ([]domain.StoredChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks`
	var args []any
	if !opts.Filter.IsEmpty() {
		query += ` WHERE source = ?`
		args = append(args, opts.Filter.Source)
	}
	query += ` ORDER BY id`

	// SQLite needs a LIMIT before OFFSET; -1 means unbounded
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.StoredChunk
	for rows.Next() {
		var c domain.StoredChunk
		if err := rows.Scan(chunkDest(&c)...); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Reset removes every chunk.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("resetting chunks: %w", err)
	}
	return nil
}

// HealthCheck verifies the database is readable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func chunkDest(c *domain.StoredChunk) []any {
	return []any{
		&c.ID, &c.Metadata.Source, &c.Metadata.ChunkIndex, &c.Metadata.Title,
		&c.Metadata.Author, &c.Metadata.ProcessedDate, &c.Metadata.ChunkLength, &c.Document,
	}
}

// cosineDistance returns 1 - cosine similarity. A zero vector is at distance 1
// from everything. Float noise just below zero is clamped.
func cosineDistance(query, stored []float32, queryNorm float64) float64 {
	storedNorm := norm(stored)
	if queryNorm == 0 || storedNorm == 0 {
		return 1
	}

	var dot float64
	for i := range query {
		dot += float64(query[i]) * float64(stored[i])
	}

	d := 1 - dot/(queryNorm*storedNorm)
	if d < 0 && d > -1e-9 {
		d = 0
	}
	return d
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
