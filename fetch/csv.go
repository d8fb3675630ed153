// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/glowdash/quarry/model"
)

// CSVFetcher reads records out of a local CSV file or a remote endpoint
// serving CSV text. A parse failure is fatal for the call; no partial
// record set is ever returned.
type CSVFetcher struct {
	client   *http.Client
	maxBytes int64
	measures *Measures
}

func (f *CSVFetcher) Fetch(ctx context.Context, cfg model.SourceConfig) (records []model.Record, err error) {
	defer func() { f.measures.observe(model.KindCSV, err) }()

	switch {
	case cfg.FilePath != "":
		records, err = f.fetchLocal(cfg)
	case cfg.Endpoint != "":
		records, err = f.fetchRemote(ctx, cfg)
	default:
		err = fmt.Errorf("%w: csv source %q has neither file path nor endpoint", ErrBadConfig, cfg.ID)
	}
	return records, err
}

func (f *CSVFetcher) fetchLocal(cfg model.SourceConfig) ([]model.Record, error) {
	file, err := os.Open(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %s", ErrFetch, cfg.FilePath, err.Error())
	}
	defer file.Close()
	return parseCSV(file)
}

func (f *CSVFetcher) fetchRemote(ctx context.Context, cfg model.SourceConfig) ([]model.Record, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errNewRequestFailure, err.Error())
	}
	if err := authorize(r, cfg.Auth); err != nil {
		return nil, fmt.Errorf("%w: %s", errAuthAcquireFailure, err.Error())
	}

	resp, err := f.client.Do(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: received status %v", ErrFetch, resp.StatusCode)
	}
	return parseCSV(io.LimitReader(resp.Body, f.maxBytes))
}

// parseCSV treats the first row as the header and maps every following row
// onto it. Cell values stay strings; typing is the inferencer's concern.
func parseCSV(r io.Reader) ([]model.Record, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing csv: %s", ErrFetch, err.Error())
	}
	if len(rows) == 0 {
		return []model.Record{}, nil
	}

	header := rows[0]
	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(model.Record, len(header))
		for i, column := range header {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}
