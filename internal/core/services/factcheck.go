package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-factcheck/internal/runtime"
)

// Ensure FactCheckService implements the driving port
var _ driving.FactCheckService = (*FactCheckService)(nil)

// NoEvidenceText is the supporting text of an unsupported claim.
const NoEvidenceText = "No supporting evidence found"

var claimSplitter = regexp.MustCompile(`[.!?]+`)

// ScoringOptions configures claim extraction and the confidence conversion.
type ScoringOptions struct {
	MinFragmentChars    int     // Fragments must be longer than this to become claims
	MinClaimChars       int     // Claims shorter than this are not scored
	MaxClaimsPerQuery   int     // Claims scored per message (0 = all)
	TopK                int     // Neighbours retrieved per claim
	SimilarityThreshold float64 // Nearest distance must be below this for support
	ConfidenceFloor     float64 // Overall confidence cap once any claim is unsupported
	SupportingTextRunes int     // Length of the supporting text excerpt
	StatsPageSize       int     // Page size when scanning the store for stats
}

// DefaultScoringOptions returns the scoring defaults.
func DefaultScoringOptions() ScoringOptions {
	return ScoringOptions{
		MinFragmentChars:    10,
		MinClaimChars:       20,
		MaxClaimsPerQuery:   5,
		TopK:                3,
		SimilarityThreshold: 0.6,
		ConfidenceFloor:     0.6,
		SupportingTextRunes: 200,
		StatsPageSize:       50,
	}
}

func (o ScoringOptions) withDefaults() ScoringOptions {
	d := DefaultScoringOptions()
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.SupportingTextRunes <= 0 {
		o.SupportingTextRunes = d.SupportingTextRunes
	}
	if o.StatsPageSize <= 0 {
		o.StatsPageSize = d.StatsPageSize
	}
	return o
}

// FactCheckService scores messages against the corpus and reports on it.
// Checks and stats share the corpus gate with ingestion so a reader never
// observes a document between stale removal and re-insertion.
type FactCheckService struct {
	store    driven.VectorStore
	services *runtime.Services
	gate     *sync.Mutex
	opts     ScoringOptions
	logger   *slog.Logger
}

// FactCheckServiceConfig holds dependencies for FactCheckService.
type FactCheckServiceConfig struct {
	Store    driven.VectorStore
	Services *runtime.Services
	Gate     *sync.Mutex
	Options  ScoringOptions
	Logger   *slog.Logger
}

// NewFactCheckService creates a new fact-check service.
func NewFactCheckService(cfg FactCheckServiceConfig) *FactCheckService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := cfg.Gate
	if gate == nil {
		gate = &sync.Mutex{}
	}

	return &FactCheckService{
		store:    cfg.Store,
		services: cfg.Services,
		gate:     gate,
		opts:     cfg.Options.withDefaults(),
		logger:   logger,
	}
}

// ExtractClaims splits a message on sentence terminators, keeps trimmed
// fragments longer than minFragment runes and caps the count at maxClaims.
func ExtractClaims(message string, minFragment, maxClaims int) []string {
	var claims []string
	for _, fragment := range claimSplitter.Split(message, -1) {
		fragment = strings.TrimSpace(fragment)
		if utf8.RuneCountInString(fragment) <= minFragment {
			continue
		}
		claims = append(claims, fragment)
		if maxClaims > 0 && len(claims) == maxClaims {
			break
		}
	}
	return claims
}

// Check scores every claim of message. The overall confidence starts at 1,
// drops to the weakest supported claim and is capped at the floor once any
// claim is unsupported. Any embedding or store failure yields an error verdict.
func (s *FactCheckService) Check(ctx context.Context, message string) *domain.Verdict {
	s.gate.Lock()
	defer s.gate.Unlock()

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return domain.ErrorVerdict(domain.ErrNotReady)
	}

	claims := ExtractClaims(message, s.opts.MinFragmentChars, s.opts.MaxClaimsPerQuery)

	verdict := domain.Verdict{
		IsSupported:  true,
		Confidence:   1.0,
		ClaimResults: []domain.ClaimResult{},
		Sources:      []domain.SourceRef{},
	}
	seen := make(map[domain.SourceRef]struct{})

	for _, claim := range claims {
		if utf8.RuneCountInString(claim) < s.opts.MinClaimChars {
			continue
		}

		vector, err := embedder.EmbedQuery(ctx, claim)
		if err != nil {
			s.logger.Error("failed to embed claim", "error", err)
			return domain.ErrorVerdict(fmt.Errorf("failed to embed claim: %w", err))
		}

		matches, err := s.store.Query(ctx, vector, s.opts.TopK)
		if err != nil {
			s.logger.Error("failed to query vector store", "error", err)
			return domain.ErrorVerdict(fmt.Errorf("failed to query vector store: %w", err))
		}

		if len(matches) == 0 || matches[0].Distance >= s.opts.SimilarityThreshold {
			verdict.IsSupported = false
			verdict.Confidence = min(verdict.Confidence, s.opts.ConfidenceFloor)
			verdict.ClaimResults = append(verdict.ClaimResults, domain.ClaimResult{
				Claim:          claim,
				Confidence:     0,
				SupportingText: NoEvidenceText,
			})
			continue
		}

		best := matches[0]
		confidence := clampUnit(1 - best.Distance)
		metadata := best.Metadata

		verdict.Confidence = min(verdict.Confidence, confidence)
		verdict.ClaimResults = append(verdict.ClaimResults, domain.ClaimResult{
			Claim:          claim,
			Confidence:     confidence,
			SupportingText: excerpt(best.Document, s.opts.SupportingTextRunes),
			Source:         &metadata,
		})

		ref := domain.SourceRef{Title: metadata.Title, Source: metadata.Source}
		if _, ok := seen[ref]; !ok {
			seen[ref] = struct{}{}
			verdict.Sources = append(verdict.Sources, ref)
		}
	}

	s.logger.Debug("fact check completed",
		"claims", len(verdict.ClaimResults),
		"supported", verdict.IsSupported,
		"confidence", verdict.Confidence,
	)

	return &verdict
}

// excerpt returns the first n runes followed by an ellipsis.
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

func clampUnit(v float64) float64 {
	return max(0, min(1, v))
}
