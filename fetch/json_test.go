// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glowdash/quarry/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFetch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(
		func(rw http.ResponseWriter, r *http.Request) {
			assert.Equal(http.MethodGet, r.Method)
			assert.Equal("application/json", r.Header.Get("Accept"))
			assert.Equal("Bearer secret", r.Header.Get("Authorization"))
			rw.Write([]byte(`[{"city":"Porto","temp":21.5},{"city":"Braga","temp":24.1}]`))
		}))
	defer server.Close()

	fetcher := NewDispatcher(Config{}, nil).json
	records, err := fetcher.Fetch(context.Background(), model.SourceConfig{
		ID:       "weather",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
		Auth:     model.AuthConfig{Type: model.AuthBearer, Token: "secret"},
	})
	require.NoError(err)
	require.Len(records, 2)
	assert.Equal("Porto", records[0]["city"])
	assert.Equal(24.1, records[1]["temp"])
}

func TestJSONFetchShapes(t *testing.T) {
	tcs := []struct {
		Description string
		Payload     string
		Expected    []model.Record
	}{
		{
			Description: "Array of objects",
			Payload:     `[{"a":1},{"a":2}]`,
			Expected:    []model.Record{{"a": float64(1)}, {"a": float64(2)}},
		},
		{
			Description: "Single object wrapped",
			Payload:     `{"status":"ok"}`,
			Expected:    []model.Record{{"status": "ok"}},
		},
		{
			Description: "Array with scalar elements",
			Payload:     `[1,"two"]`,
			Expected:    []model.Record{{"value": float64(1)}, {"value": "two"}},
		},
		{
			Description: "Bare scalar",
			Payload:     `42`,
			Expected:    []model.Record{{"value": float64(42)}},
		},
		{
			Description: "Empty array",
			Payload:     `[]`,
			Expected:    []model.Record{},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			records, err := decodeRecords([]byte(tc.Payload))
			assert.NoError(t, err)
			assert.Equal(t, tc.Expected, records)
		})
	}
}

func TestJSONFetchFailures(t *testing.T) {
	tcs := []struct {
		Description string
		Handler     http.HandlerFunc
		Config      model.SourceConfig
		ExpectedErr error
	}{
		{
			Description: "Missing endpoint",
			Config:      model.SourceConfig{ID: "hollow", Kind: model.KindJSON},
			ExpectedErr: ErrBadConfig,
		},
		{
			Description: "Upstream failure status",
			Handler: func(rw http.ResponseWriter, _ *http.Request) {
				rw.WriteHeader(http.StatusBadGateway)
			},
			ExpectedErr: ErrFetch,
		},
		{
			Description: "Malformed payload",
			Handler: func(rw http.ResponseWriter, _ *http.Request) {
				rw.Write([]byte(`{"unterminated":`))
			},
			ExpectedErr: ErrFetch,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			cfg := tc.Config
			if tc.Handler != nil {
				server := httptest.NewServer(tc.Handler)
				defer server.Close()
				cfg = model.SourceConfig{ID: "flaky", Kind: model.KindJSON, Endpoint: server.URL}
			}

			fetcher := NewDispatcher(Config{}, nil).json
			records, err := fetcher.Fetch(context.Background(), cfg)
			assert.ErrorIs(t, err, tc.ExpectedErr)
			assert.Nil(t, records)
		})
	}
}
