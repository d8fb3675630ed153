// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

// Package source hosts the data source service: the orchestrator that ties
// share verification, config resolution, backend fetching, caching, and
// row post-processing together, plus its HTTP transport.
package source

import (
	"context"
	"sort"

	"github.com/glowdash/quarry/cache"
	"github.com/glowdash/quarry/fetch"
	"github.com/glowdash/quarry/infer"
	"github.com/glowdash/quarry/model"
	"github.com/glowdash/quarry/rowset"
	"go.uber.org/zap"
)

// previewRows bounds the sample shown by column detection.
const previewRows = 5

// DataResult is one page of records. Total is present only when the caller
// paginated, and always counts the full projected sequence.
type DataResult struct {
	Records []model.Record `json:"records"`
	Total   *int           `json:"total,omitempty"`
}

// DetectResult is a dataset preview plus the inferred type per column.
type DetectResult struct {
	Columns []string                    `json:"columns"`
	Preview []model.Record              `json:"preview"`
	Types   map[string]infer.ColumnType `json:"types"`
}

// DetectParams selects what to sample: an already registered source, or an
// inline configuration that was never stored.
type DetectParams struct {
	SourceID string              `json:"sourceId,omitempty"`
	Config   *model.SourceConfig `json:"config,omitempty"`
}

// Service orchestrates data retrieval per request.
type Service struct {
	resolver    ConfigResolver
	shares      ShareVerifier
	fetchers    *fetch.Dispatcher
	coordinator *cache.Coordinator
	logger      *zap.Logger
}

func NewService(resolver ConfigResolver, shares ShareVerifier, fetchers *fetch.Dispatcher, coordinator *cache.Coordinator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver:    resolver,
		shares:      shares,
		fetchers:    fetchers,
		coordinator: coordinator,
		logger:      logger,
	}
}

// FetchData retrieves one source's records under the given options.
// Elasticsearch sources are executed directly with server-side pagination
// on every call; JSON and CSV sources flow through the coordinated cache
// and are projected and paginated in-process.
func (s *Service) FetchData(ctx context.Context, sourceID string, opts model.FetchOptions) (*DataResult, error) {
	if opts.ShareID != "" {
		if err := s.shares.VerifyShareAccess(ctx, sourceID, opts.ShareID); err != nil {
			return nil, err
		}
	}

	cfg, err := s.resolver.Resolve(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	if cfg.Kind == model.KindElasticsearch {
		return s.fetchElastic(ctx, cfg, opts)
	}

	from, to := opts.From, opts.To
	if !cfg.Timestamped() {
		from, to = "", ""
	}
	var window rowset.Window
	if from != "" || to != "" {
		if window, err = rowset.ParseWindow(from, to); err != nil {
			return nil, BadRequestErr{Message: err.Error()}
		}
	}

	windowed := from != "" || to != ""
	key := cache.Key(cfg.ID, windowed, from, to)
	ttl := cache.TTL(cfg.Timestamped(), from, to)

	records, err := s.coordinator.Load(ctx, key, ttl, opts.ForceRefresh, func(ctx context.Context) ([]model.Record, error) {
		fetcher, err := s.fetchers.For(cfg.Kind)
		if err != nil {
			return nil, err
		}
		fetched, err := fetcher.Fetch(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if windowed {
			fetched = rowset.FilterByWindow(fetched, cfg.TimestampField, window)
		}
		return fetched, nil
	})
	if err != nil {
		s.logger.Error("fetch failed", zap.String("sourceId", cfg.ID), zap.String("kind", string(cfg.Kind)), zap.Error(err))
		return nil, sanitizeFetchError(err)
	}

	projected := rowset.Project(records, opts.Fields)
	if !opts.Paginated() {
		return &DataResult{Records: projected}, nil
	}
	page, total := rowset.Paginate(projected, opts.Page, opts.PageSize)
	return &DataResult{Records: page, Total: &total}, nil
}

func (s *Service) fetchElastic(ctx context.Context, cfg model.SourceConfig, opts model.FetchOptions) (*DataResult, error) {
	from, to := opts.From, opts.To
	if !cfg.Timestamped() {
		from, to = "", ""
	}

	records, total, err := s.fetchers.Elastic().Search(ctx, cfg, fetch.Query{
		From:     from,
		To:       to,
		Page:     opts.Page,
		PageSize: opts.PageSize,
	})
	if err != nil {
		s.logger.Error("search failed", zap.String("sourceId", cfg.ID), zap.Error(err))
		return nil, sanitizeFetchError(err)
	}
	return &DataResult{Records: records, Total: &total}, nil
}

// DetectColumns samples a source directly, with no caching or window
// filtering, and infers a type for every column seen in a short preview.
func (s *Service) DetectColumns(ctx context.Context, params DetectParams) (*DetectResult, error) {
	var cfg model.SourceConfig
	switch {
	case params.Config != nil:
		cfg = *params.Config
	case params.SourceID != "":
		resolved, err := s.resolver.Resolve(ctx, params.SourceID)
		if err != nil {
			return nil, err
		}
		cfg = resolved
	default:
		return nil, BadRequestErr{Message: "either sourceId or an inline config is required"}
	}

	fetcher, err := s.fetchers.For(cfg.Kind)
	if err != nil {
		return nil, sanitizeFetchError(err)
	}
	records, err := fetcher.Fetch(ctx, cfg)
	if err != nil {
		s.logger.Error("sample fetch failed", zap.String("sourceId", cfg.ID), zap.String("kind", string(cfg.Kind)), zap.Error(err))
		return nil, sanitizeFetchError(err)
	}

	preview := records
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}
	columns := columnUnion(preview)
	return &DetectResult{
		Columns: columns,
		Preview: preview,
		Types:   infer.Columns(preview, columns),
	}, nil
}

// columnUnion collects every column seen across the preview, sorted for a
// deterministic order.
func columnUnion(records []model.Record) []string {
	seen := make(map[string]bool)
	for _, record := range records {
		for column := range record {
			seen[column] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for column := range seen {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
