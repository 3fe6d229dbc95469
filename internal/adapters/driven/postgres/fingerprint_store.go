package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore keeps the fingerprint map in the fingerprints table.
// Save rewrites the table inside one transaction so readers never see a partial map.
type FingerprintStore struct {
	db *DB
}

// NewFingerprintStore creates a new PostgreSQL fingerprint store
func NewFingerprintStore(db *DB) *FingerprintStore {
	return &FingerprintStore{db: db}
}

// Load returns every stored fingerprint
func (s *FingerprintStore) Load(ctx context.Context) (domain.FingerprintMap, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, size, modified, path FROM fingerprints`)
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(domain.FingerprintMap)
	for rows.Next() {
		var fp domain.Fingerprint
		if err := rows.Scan(&fp.Name, &fp.Size, &fp.Modified, &fp.Path); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out[fp.Name] = fp
	}
	return out, rows.Err()
}

// Save replaces the stored map
func (s *FingerprintStore) Save(ctx context.Context, fingerprints domain.FingerprintMap) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints`); err != nil {
			return fmt.Errorf("clear fingerprints: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fingerprints (name, size, modified, path) VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for name, fp := range fingerprints {
			if _, err := stmt.ExecContext(ctx, name, fp.Size, fp.Modified, fp.Path); err != nil {
				return fmt.Errorf("insert fingerprint %s: %w", name, err)
			}
		}
		return nil
	})
}

// Clear removes every stored fingerprint
func (s *FingerprintStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fingerprints`); err != nil {
		return fmt.Errorf("clear fingerprints: %w", err)
	}
	return nil
}
