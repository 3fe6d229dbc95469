package services

import (
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Memory checkpoints
const (
	CheckpointStartup     = "startup"
	CheckpointDocument    = "before_document"
	CheckpointPages       = "page_interval"
	CheckpointUpsertBatch = "upsert_batch"
)

// MemorySupervisor enforces the memory ceiling at fixed pipeline checkpoints.
// It runs inline between stages, never in the background.
type MemorySupervisor struct {
	sampler driven.MemorySampler
	ceiling uint64
	logger  *slog.Logger
}

// NewMemorySupervisor creates a supervisor. A zero ceiling disables checks.
func NewMemorySupervisor(sampler driven.MemorySampler, ceiling uint64, logger *slog.Logger) *MemorySupervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemorySupervisor{
		sampler: sampler,
		ceiling: ceiling,
		logger:  logger,
	}
}

// Check samples memory; over the ceiling it reclaims once and re-samples.
// Returns domain.ErrMemoryCeiling when usage is still too high.
func (m *MemorySupervisor) Check(checkpoint string) error {
	if m == nil || m.sampler == nil || m.ceiling == 0 {
		return nil
	}

	used := m.sampler.Sample()
	if used <= m.ceiling {
		return nil
	}

	m.logger.Warn("memory above ceiling, reclaiming",
		"checkpoint", checkpoint,
		"used_bytes", used,
		"ceiling_bytes", m.ceiling,
	)
	m.sampler.Reclaim()

	used = m.sampler.Sample()
	if used <= m.ceiling {
		return nil
	}

	m.logger.Error("memory ceiling exceeded after reclaim",
		"checkpoint", checkpoint,
		"used_bytes", used,
		"ceiling_bytes", m.ceiling,
	)
	return fmt.Errorf("%w at %s: %d bytes used, ceiling %d", domain.ErrMemoryCeiling, checkpoint, used, m.ceiling)
}
