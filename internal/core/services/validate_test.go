package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven/mocks"
)

func TestValidateDistances(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		strict   bool
		wantErr  bool
	}{
		{"in range", 0.42, true, false},
		{"upper bound", 1.0, true, false},
		{"negative strict", -0.1, true, true},
		{"above one strict", 1.7, true, true},
		{"above one lenient", 1.7, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &queryStore{}
			store.On("Count", mock.Anything).Return(10, nil)
			store.On("Query", mock.Anything, mock.Anything, 1).Return([]domain.QueryMatch{
				match("a.pdf", "A", "text", 0, tt.distance),
			}, nil)

			err := ValidateDistances(context.Background(), mocks.NewMockEmbeddingService(), store, tt.strict, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrDistanceOutOfRange)
			} else {
				assert.NoError(t, err)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestValidateDistances_EmptyStoreSkipsProbe(t *testing.T) {
	store := &queryStore{}
	store.On("Count", mock.Anything).Return(0, nil)
	embedder := mocks.NewMockEmbeddingService()

	err := ValidateDistances(context.Background(), embedder, store, true, nil)

	assert.NoError(t, err)
	assert.Empty(t, embedder.Queries())
	store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateDistances_Failures(t *testing.T) {
	t.Run("count", func(t *testing.T) {
		store := &queryStore{}
		store.On("Count", mock.Anything).Return(0, errors.New("unreachable"))

		err := ValidateDistances(context.Background(), mocks.NewMockEmbeddingService(), store, false, nil)
		assert.ErrorContains(t, err, "unreachable")
	})

	t.Run("embed", func(t *testing.T) {
		store := &queryStore{}
		store.On("Count", mock.Anything).Return(3, nil)
		embedder := mocks.NewMockEmbeddingService()
		embedder.SetFailure(errors.New("model offline"))

		err := ValidateDistances(context.Background(), embedder, store, false, nil)
		assert.ErrorContains(t, err, "model offline")
	})
}

func TestValidateDistances_CosineStore(t *testing.T) {
	store := mocks.NewMockVectorStore()
	embedder := mocks.NewMockEmbeddingService()
	unit := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	store.Add(domain.VectorRecord{
		ChunkRecord: domain.ChunkRecord{ID: "a_chunk_0", Metadata: domain.ChunkMetadata{Source: "a.pdf"}},
		Vector:      unit,
	})
	embedder.SetVector(DistanceProbeText, unit)

	assert.NoError(t, ValidateDistances(context.Background(), embedder, store, true, nil))
}
