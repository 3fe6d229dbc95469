package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Stats summarises the indexed corpus. Source names are sorted.
func (s *FactCheckService) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	sources := make(map[string]struct{})
	err = s.scan(ctx, driven.Filter{}, func(chunk domain.StoredChunk) {
		sources[chunk.Metadata.Source] = struct{}{}
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	return &domain.CorpusStats{
		TotalChunks:   total,
		UniqueSources: len(names),
		Sources:       names,
	}, nil
}

// Overview returns per-source title, author, chunk count and processing date.
// Title, author and date come from the first chunk seen for each source.
func (s *FactCheckService) Overview(ctx context.Context) (*domain.CorpusOverview, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	details := make(map[string]*domain.SourceDetail)
	authors := make(map[string]struct{})
	err = s.scan(ctx, driven.Filter{}, func(chunk domain.StoredChunk) {
		md := chunk.Metadata
		d, ok := details[md.Source]
		if !ok {
			d = &domain.SourceDetail{
				Source:        md.Source,
				Title:         md.Title,
				Author:        md.Author,
				ProcessedDate: md.ProcessedDate,
			}
			details[md.Source] = d
		}
		d.ChunkCount++
		authors[md.Author] = struct{}{}
	})
	if err != nil {
		return nil, err
	}

	overview := &domain.CorpusOverview{
		TotalChunks:   total,
		UniqueSources: len(details),
		UniqueAuthors: len(authors),
		Sources:       make([]domain.SourceDetail, 0, len(details)),
		Authors:       make([]string, 0, len(authors)),
	}
	for _, d := range details {
		overview.Sources = append(overview.Sources, *d)
	}
	sort.Slice(overview.Sources, func(i, j int) bool {
		return overview.Sources[i].Source < overview.Sources[j].Source
	})
	for a := range authors {
		overview.Authors = append(overview.Authors, a)
	}
	sort.Strings(overview.Authors)

	return overview, nil
}

// SourceDetail describes one indexed document.
func (s *FactCheckService) SourceDetail(ctx context.Context, source string) (*domain.SourceDetail, error) {
	if source == "" {
		return nil, domain.ErrInvalidInput
	}

	s.gate.Lock()
	defer s.gate.Unlock()

	var detail *domain.SourceDetail
	err := s.scan(ctx, driven.Filter{Source: source}, func(chunk domain.StoredChunk) {
		if detail == nil {
			md := chunk.Metadata
			detail = &domain.SourceDetail{
				Source:        source,
				Title:         md.Title,
				Author:        md.Author,
				ProcessedDate: md.ProcessedDate,
			}
		}
		detail.ChunkCount++
	})
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, domain.ErrNotFound
	}
	return detail, nil
}

// scan pages through the store, calling fn for every matching chunk.
func (s *FactCheckService) scan(ctx context.Context, filter driven.Filter, fn func(domain.StoredChunk)) error {
	size := s.opts.StatsPageSize
	for offset := 0; ; offset += size {
		page, err := s.store.Get(ctx, driven.GetOptions{Limit: size, Offset: offset, Filter: filter})
		if err != nil {
			return fmt.Errorf("failed to scan chunks: %w", err)
		}
		for _, chunk := range page {
			fn(chunk)
		}
		if len(page) < size {
			return nil
		}
	}
}
