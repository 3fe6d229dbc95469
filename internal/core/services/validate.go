package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// DistanceProbeText is embedded at startup to sample distances from the store.
const DistanceProbeText = "The quick brown fox jumps over the lazy dog"

// ValidateDistances checks that the store reports distances in [0,1], which
// the confidence conversion 1 - distance relies on. An empty store cannot
// be probed and passes. When strict is false a violation is only logged.
func ValidateDistances(
	ctx context.Context,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	strict bool,
	logger *slog.Logger,
) error {
	if logger == nil {
		logger = slog.Default()
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	if count == 0 {
		logger.Info("vector store empty, skipping distance probe")
		return nil
	}

	vector, err := embedder.EmbedQuery(ctx, DistanceProbeText)
	if err != nil {
		return fmt.Errorf("failed to embed distance probe: %w", err)
	}

	matches, err := store.Query(ctx, vector, 1)
	if err != nil {
		return fmt.Errorf("failed to query distance probe: %w", err)
	}

	for _, m := range matches {
		if m.Distance < 0 || m.Distance > 1 {
			err := fmt.Errorf("%w: probe returned %.4f for %s", domain.ErrDistanceOutOfRange, m.Distance, m.ID)
			if strict {
				return err
			}
			logger.Warn("vector store distance outside [0,1], confidences will be clamped", "error", err)
			return nil
		}
	}

	logger.Debug("distance probe passed", "matches", len(matches))
	return nil
}
