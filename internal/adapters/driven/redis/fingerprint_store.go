package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore keeps the fingerprint map as a single JSON value,
// so every Save replaces the whole map in one SET.
type FingerprintStore struct {
	client *redis.Client
	key    string
}

// NewFingerprintStore creates a Redis-backed FingerprintStore under prefix.
func NewFingerprintStore(client *redis.Client, prefix string) *FingerprintStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &FingerprintStore{client: client, key: prefix + "fingerprints"}
}

// Load returns the stored map, or an empty map when none was saved.
func (s *FingerprintStore) Load(ctx context.Context) (domain.FingerprintMap, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.FingerprintMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}

	fingerprints := domain.FingerprintMap{}
	if err := json.Unmarshal(data, &fingerprints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fingerprints: %w", err)
	}
	return fingerprints, nil
}

// Save replaces the stored map.
func (s *FingerprintStore) Save(ctx context.Context, fingerprints domain.FingerprintMap) error {
	data, err := json.Marshal(fingerprints)
	if err != nil {
		return fmt.Errorf("failed to marshal fingerprints: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save fingerprints: %w", err)
	}
	return nil
}

// Clear removes the stored map.
func (s *FingerprintStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear fingerprints: %w", err)
	}
	return nil
}
