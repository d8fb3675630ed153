// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/glowdash/quarry/model"
)

const (
	defaultESPage     = 1
	defaultESPageSize = 5000
)

// ESFetcher executes filtered searches against an Elasticsearch index.
// Pagination happens server-side, so unlike the other backends this one is
// driven by the per-call query.
type ESFetcher struct {
	transport http.RoundTripper
	timeout   time.Duration
	measures  *Measures
}

// Fetch satisfies the common fetcher contract with default pagination; it
// backs column detection, where a bounded first page is all that is needed.
func (f *ESFetcher) Fetch(ctx context.Context, cfg model.SourceConfig) ([]model.Record, error) {
	records, _, err := f.Search(ctx, cfg, Query{})
	return records, err
}

// Search runs the source's base query combined with an optional range
// filter on its timestamp field, returning one page of hits plus the total
// reported by the cluster.
func (f *ESFetcher) Search(ctx context.Context, cfg model.SourceConfig, q Query) (records []model.Record, total int, err error) {
	defer func() { f.measures.observe(model.KindElasticsearch, err) }()

	if cfg.ESIndex == "" {
		return nil, 0, fmt.Errorf("%w: elasticsearch source %q has no index", ErrBadConfig, cfg.ID)
	}
	if cfg.Endpoint == "" {
		return nil, 0, fmt.Errorf("%w: elasticsearch source %q has no endpoint", ErrBadConfig, cfg.ID)
	}

	client, err := f.newClient(cfg)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: building client: %s", ErrBadConfig, err.Error())
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": buildQuery(cfg, q),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: marshaling query: %s", ErrFetch, err.Error())
	}

	page := q.Page
	if page < 1 {
		page = defaultESPage
	}
	size := q.PageSize
	if size < 1 {
		size = defaultESPageSize
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(cfg.ESIndex),
		client.Search.WithBody(bytes.NewReader(body)),
		client.Search.WithFrom((page-1)*size),
		client.Search.WithSize(size),
		client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("%w: received status %s", ErrFetch, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("%w: unmarshaling search response: %s", ErrFetch, err.Error())
	}

	records = make([]model.Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, parsed.Hits.Total.Value, nil
}

func (f *ESFetcher) newClient(cfg model.SourceConfig) (*elasticsearch.Client, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.Endpoint},
		Transport: f.transport,
	}
	switch cfg.Auth.Type {
	case model.AuthBasic:
		esConfig.Username = cfg.Auth.Username
		esConfig.Password = cfg.Auth.Password
	case model.AuthBearer:
		esConfig.Header = http.Header{"Authorization": []string{"Bearer " + cfg.Auth.Token}}
	case model.AuthAPIKey:
		header := cfg.Auth.Header
		if header == "" {
			header = "X-Api-Key"
		}
		esConfig.Header = http.Header{header: []string{cfg.Auth.Key}}
	}
	return elasticsearch.NewClient(esConfig)
}

// buildQuery combines the source's base query with the optional timestamp
// range. When no criteria apply the result is match_all.
func buildQuery(cfg model.SourceConfig, q Query) map[string]interface{} {
	var filters []interface{}
	if len(cfg.ESQuery) > 0 {
		filters = append(filters, cfg.ESQuery)
	}
	if cfg.Timestamped() && (q.From != "" || q.To != "") {
		bounds := map[string]interface{}{}
		if q.From != "" {
			bounds["gte"] = q.From
		}
		if q.To != "" {
			bounds["lte"] = q.To
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{cfg.TimestampField: bounds},
		})
	}

	if len(filters) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	return map[string]interface{}{
		"bool": map[string]interface{}{"filter": filters},
	}
}

type searchResponse struct {
	Hits struct {
		Total hitsTotal `json:"total"`
		Hits  []struct {
			Source model.Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// hitsTotal accepts both the modern object shape {"value": N, "relation":
// "eq"} and the legacy bare integer.
type hitsTotal struct {
	Value int
}

func (t *hitsTotal) UnmarshalJSON(data []byte) error {
	var object struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(data, &object); err == nil {
		t.Value = object.Value
		return nil
	}
	var legacy int
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	t.Value = legacy
	return nil
}
