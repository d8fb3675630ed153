// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch contains the backend adapters that pull raw records out of
// the supported data source kinds. All three fetchers share one contract:
// an ordered sequence of flat records, or an error wrapping ErrFetch or
// ErrBadConfig.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/glowdash/quarry/model"
	"github.com/xmidt-org/bascule/acquire"
)

var (
	// ErrBadConfig flags a source whose configuration cannot support a
	// fetch at all; it is returned before any network call is made.
	ErrBadConfig = errors.New("data source is misconfigured")

	// ErrFetch flags any failure to reach or parse the upstream backend.
	ErrFetch = errors.New("failed fetching from upstream backend")

	// ErrUnsupportedKind flags a backend kind no fetcher is registered for.
	ErrUnsupportedKind = errors.New("unsupported backend kind")
)

var (
	errNewRequestFailure  = errors.New("failed creating an HTTP request")
	errAuthAcquireFailure = errors.New("failed acquiring auth credentials")
)

// Query carries the per-call parameters a backend may apply server-side.
// The JSON and CSV fetchers ignore it; Elasticsearch uses it to build the
// range filter and paginate the search.
type Query struct {
	From     string
	To       string
	Page     int
	PageSize int
}

// Fetcher retrieves all records of a source in one call.
type Fetcher interface {
	Fetch(ctx context.Context, cfg model.SourceConfig) ([]model.Record, error)
}

// Config holds the knobs shared by every fetcher.
type Config struct {
	// Timeout bounds each upstream call. Defaults to 30s.
	Timeout time.Duration

	// MaxResponseBytes caps remote response bodies. Defaults to 32 MiB.
	MaxResponseBytes int64
}

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 32 << 20
)

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = defaultMaxResponseBytes
	}
}

// Dispatcher resolves the fetcher for a backend kind.
type Dispatcher struct {
	json    *JSONFetcher
	csv     *CSVFetcher
	elastic *ESFetcher
}

// NewDispatcher builds the three backend fetchers over one shared HTTP
// client. The measures may be nil in tests.
func NewDispatcher(cfg Config, measures *Measures) *Dispatcher {
	cfg.applyDefaults()
	client := &http.Client{Timeout: cfg.Timeout}
	return &Dispatcher{
		json:    &JSONFetcher{client: client, maxBytes: cfg.MaxResponseBytes, measures: measures},
		csv:     &CSVFetcher{client: client, maxBytes: cfg.MaxResponseBytes, measures: measures},
		elastic: &ESFetcher{transport: client.Transport, timeout: cfg.Timeout, measures: measures},
	}
}

// For returns the fetcher responsible for the given backend kind.
func (d *Dispatcher) For(kind model.Kind) (Fetcher, error) {
	switch kind {
	case model.KindJSON:
		return d.json, nil
	case model.KindCSV:
		return d.csv, nil
	case model.KindElasticsearch:
		return d.elastic, nil
	}
	return nil, ErrUnsupportedKind
}

// Elastic exposes the Elasticsearch fetcher directly for callers that need
// server-side pagination and the reported total.
func (d *Dispatcher) Elastic() *ESFetcher {
	return d.elastic
}

// newAcquirer maps a source's auth descriptor onto a header acquirer.
// API-key auth uses a caller-chosen header and is applied separately.
func newAcquirer(auth model.AuthConfig) (acquire.Acquirer, error) {
	switch auth.Type {
	case model.AuthBearer:
		return acquire.NewFixedAuthAcquirer("Bearer " + auth.Token)
	case model.AuthBasic:
		credentials := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		return acquire.NewFixedAuthAcquirer("Basic " + credentials)
	}
	return &acquire.DefaultAcquirer{}, nil
}

// authorize attaches the source's credentials to an outgoing request.
func authorize(r *http.Request, auth model.AuthConfig) error {
	if auth.Type == model.AuthAPIKey {
		header := auth.Header
		if header == "" {
			header = "X-Api-Key"
		}
		r.Header.Set(header, auth.Key)
		return nil
	}
	acquirer, err := newAcquirer(auth)
	if err != nil {
		return err
	}
	return acquire.AddAuth(r, acquirer)
}
