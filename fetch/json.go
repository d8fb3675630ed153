// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/glowdash/quarry/model"
)

// JSONFetcher pulls records from a remote JSON endpoint in a single call.
type JSONFetcher struct {
	client   *http.Client
	maxBytes int64
	measures *Measures
}

func (f *JSONFetcher) Fetch(ctx context.Context, cfg model.SourceConfig) (records []model.Record, err error) {
	defer func() { f.measures.observe(model.KindJSON, err) }()

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: json source %q has no endpoint", ErrBadConfig, cfg.ID)
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	r, err := http.NewRequestWithContext(ctx, method, cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errNewRequestFailure, err.Error())
	}
	if err := authorize(r, cfg.Auth); err != nil {
		return nil, fmt.Errorf("%w: %s", errAuthAcquireFailure, err.Error())
	}
	r.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: received status %v", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %s", ErrFetch, err.Error())
	}

	records, err = decodeRecords(body)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// decodeRecords normalizes any well-formed JSON payload into a record
// sequence: arrays element-wise, a single object as a one-element sequence,
// and bare scalars under a "value" column. Only malformed JSON fails.
func decodeRecords(body []byte) ([]model.Record, error) {
	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response payload: %s", ErrFetch, err.Error())
	}

	switch v := payload.(type) {
	case []interface{}:
		records := make([]model.Record, 0, len(v))
		for _, element := range v {
			records = append(records, asRecord(element))
		}
		return records, nil
	default:
		return []model.Record{asRecord(v)}, nil
	}
}

func asRecord(v interface{}) model.Record {
	if m, ok := v.(map[string]interface{}); ok {
		return model.Record(m)
	}
	return model.Record{"value": v}
}
