// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glowdash/quarry/cache"
	"github.com/glowdash/quarry/fetch"
	"github.com/glowdash/quarry/infer"
	"github.com/glowdash/quarry/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, configs ...model.SourceConfig) (*Service, *ShareRegistry) {
	t.Helper()
	registry := NewRegistry()
	for _, cfg := range configs {
		_, err := registry.Create(cfg)
		require.NoError(t, err)
	}
	shares := NewShareRegistry()
	coordinator := cache.NewCoordinator(cache.NewRowCache(), nil)
	return NewService(registry, shares, fetch.NewDispatcher(fetch.Config{}, nil), coordinator, nil), shares
}

// countingJSONServer serves the payload and counts upstream hits.
func countingJSONServer(t *testing.T, payload string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(
		func(rw http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			rw.Write([]byte(payload))
		}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestFetchDataPaginatesJSONSource(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	rows := "["
	for i := 0; i < 10; i++ {
		if i > 0 {
			rows += ","
		}
		rows += fmt.Sprintf(`{"n":%d}`, i)
	}
	rows += "]"
	server, calls := countingJSONServer(t, rows)

	service, _ := newTestService(t, model.SourceConfig{
		ID:       "numbers",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})

	result, err := service.FetchData(context.Background(), "numbers", model.FetchOptions{Page: 1, PageSize: 5})
	require.NoError(err)
	require.NotNil(result.Total)
	assert.Equal(10, *result.Total)
	require.Len(result.Records, 5)
	assert.Equal(float64(0), result.Records[0]["n"])
	assert.Equal(float64(4), result.Records[4]["n"])
	assert.EqualValues(1, atomic.LoadInt32(calls))
}

func TestFetchDataServedFromCache(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	server, calls := countingJSONServer(t, `[{"a":1},{"a":2}]`)
	service, _ := newTestService(t, model.SourceConfig{
		ID:       "cached",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})

	first, err := service.FetchData(context.Background(), "cached", model.FetchOptions{})
	require.NoError(err)
	second, err := service.FetchData(context.Background(), "cached", model.FetchOptions{})
	require.NoError(err)

	assert.Equal(first, second)
	assert.EqualValues(1, atomic.LoadInt32(calls))
}

func TestFetchDataWindowedCSVSource(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "daily.csv")
	content := "day,total\n"
	for i := 1; i <= 10; i++ {
		content += fmt.Sprintf("2024-01-%02d,%d\n", i, i*100)
	}
	require.NoError(os.WriteFile(path, []byte(content), 0o600))

	service, _ := newTestService(t, model.SourceConfig{
		ID:             "daily",
		Kind:           model.KindCSV,
		FilePath:       path,
		TimestampField: "day",
	})

	result, err := service.FetchData(context.Background(), "daily", model.FetchOptions{
		From: "2024-01-03",
		To:   "2024-01-05",
	})
	require.NoError(err)
	require.Len(result.Records, 3)
	assert.Nil(result.Total)
	assert.Equal("2024-01-03", result.Records[0]["day"])
	assert.Equal("2024-01-05", result.Records[2]["day"])
}

func TestFetchDataIgnoresWindowWithoutTimestampField(t *testing.T) {
	require := require.New(t)

	server, calls := countingJSONServer(t, `[{"a":1},{"a":2}]`)
	service, _ := newTestService(t, model.SourceConfig{
		ID:       "static",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})

	// Bounds on a non-timestamped source do not filter and do not split
	// the cache key.
	first, err := service.FetchData(context.Background(), "static", model.FetchOptions{From: "2024-01-01", To: "2024-02-01"})
	require.NoError(err)
	require.Len(first.Records, 2)

	second, err := service.FetchData(context.Background(), "static", model.FetchOptions{})
	require.NoError(err)
	require.Len(second.Records, 2)
	require.EqualValues(1, atomic.LoadInt32(calls))
}

func TestFetchDataProjection(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	server, _ := countingJSONServer(t, `[{"a":1,"b":2,"c":3}]`)
	service, _ := newTestService(t, model.SourceConfig{
		ID:       "wide",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})

	result, err := service.FetchData(context.Background(), "wide", model.FetchOptions{Fields: []string{"a", "c", "ghost"}})
	require.NoError(err)
	require.Len(result.Records, 1)
	assert.Equal(model.Record{"a": float64(1), "c": float64(3)}, result.Records[0])
}

func TestFetchDataAntiStampede(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	release := make(chan struct{})
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(
		func(rw http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			<-release
			rw.Write([]byte(`[{"a":1}]`))
		}))
	defer server.Close()

	service, _ := newTestService(t, model.SourceConfig{
		ID:       "hot",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})

	const callers = 8
	results := make([]*DataResult, callers)
	errs := make([]error, callers)
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], errs[i] = service.FetchData(context.Background(), "hot", model.FetchOptions{})
		}(i)
	}
	started.Wait()
	close(release)
	done.Wait()

	assert.EqualValues(1, atomic.LoadInt32(&calls))
	for i := 0; i < callers; i++ {
		require.NoError(errs[i])
		assert.Equal(results[0], results[i])
	}
}

func TestFetchDataForceRefresh(t *testing.T) {
	require := require.New(t)

	server, calls := countingJSONServer(t, `[{"a":1}]`)
	service, _ := newTestService(t, model.SourceConfig{
		ID:       "refetch",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})

	_, err := service.FetchData(context.Background(), "refetch", model.FetchOptions{})
	require.NoError(err)
	_, err = service.FetchData(context.Background(), "refetch", model.FetchOptions{ForceRefresh: true})
	require.NoError(err)
	require.EqualValues(2, atomic.LoadInt32(calls))

	// The refreshed entry is cached again.
	_, err = service.FetchData(context.Background(), "refetch", model.FetchOptions{})
	require.NoError(err)
	require.EqualValues(2, atomic.LoadInt32(calls))
}

func TestFetchDataShareAccess(t *testing.T) {
	server, calls := countingJSONServer(t, `[{"a":1}]`)
	service, shares := newTestService(t, model.SourceConfig{
		ID:       "sales",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})
	shares.Put(Share{ID: "public", Enabled: true, Sources: map[string]bool{"sales": true}})
	shares.Put(Share{ID: "paused", Enabled: false, Sources: map[string]bool{"sales": true}})

	tcs := []struct {
		Description string
		ShareID     string
		ExpectedErr error
	}{
		{
			Description: "Allowed",
			ShareID:     "public",
		},
		{
			Description: "Disabled share",
			ShareID:     "paused",
			ExpectedErr: ForbiddenErr{Message: "share paused is disabled"},
		},
		{
			Description: "Unknown share",
			ShareID:     "ghost",
			ExpectedErr: NotFoundErr{What: "share", ID: "ghost"},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			result, err := service.FetchData(context.Background(), "sales", model.FetchOptions{ShareID: tc.ShareID})
			if tc.ExpectedErr != nil {
				assert.Equal(t, tc.ExpectedErr, err)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Records, 1)
		})
	}

	// Denied requests never reach the backend.
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestFetchDataUnknownSource(t *testing.T) {
	service, _ := newTestService(t)
	result, err := service.FetchData(context.Background(), "ghost", model.FetchOptions{})
	assert.Nil(t, result)
	assert.ErrorAs(t, err, &NotFoundErr{})
}

func TestFetchDataBadWindowBounds(t *testing.T) {
	server, calls := countingJSONServer(t, `[{"ts":"2024-01-01"}]`)
	service, _ := newTestService(t, model.SourceConfig{
		ID:             "bounded",
		Kind:           model.KindJSON,
		Endpoint:       server.URL,
		TimestampField: "ts",
	})

	result, err := service.FetchData(context.Background(), "bounded", model.FetchOptions{From: "not-a-date"})
	assert.Nil(t, result)
	assert.ErrorAs(t, err, &BadRequestErr{})
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestFetchDataUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(rw http.ResponseWriter, _ *http.Request) {
			rw.WriteHeader(http.StatusInternalServerError)
		}))
	defer server.Close()

	service, _ := newTestService(t, model.SourceConfig{
		ID:       "down",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})

	result, err := service.FetchData(context.Background(), "down", model.FetchOptions{})
	assert.Nil(t, result)
	assert.ErrorAs(t, err, &FetchErr{})
}

func TestFetchDataElasticBypassesCache(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(
		func(rw http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			rw.Header().Set("X-Elastic-Product", "Elasticsearch")
			rw.Header().Set("Content-Type", "application/json")
			rw.Write([]byte(`{"hits":{"total":{"value":64,"relation":"eq"},"hits":[{"_source":{"event":"login"}}]}}`))
		}))
	defer server.Close()

	service, _ := newTestService(t, model.SourceConfig{
		ID:       "audit",
		Kind:     model.KindElasticsearch,
		Endpoint: server.URL,
		ESIndex:  "audit-events",
	})

	for i := 0; i < 2; i++ {
		result, err := service.FetchData(context.Background(), "audit", model.FetchOptions{Page: 1, PageSize: 1})
		require.NoError(err)
		require.NotNil(result.Total)
		assert.Equal(64, *result.Total)
		require.Len(result.Records, 1)
	}

	// Every call reaches the cluster; nothing is cached for this kind.
	assert.EqualValues(2, atomic.LoadInt32(&calls))
}

func TestFetchDataElasticMisconfigured(t *testing.T) {
	service, _ := newTestService(t, model.SourceConfig{
		ID:       "noindex",
		Kind:     model.KindElasticsearch,
		Endpoint: "http://localhost:9200",
	})

	result, err := service.FetchData(context.Background(), "noindex", model.FetchOptions{})
	assert.Nil(t, result)
	assert.ErrorAs(t, err, &BadConfigErr{})
}

func TestDetectColumns(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	server, calls := countingJSONServer(t,
		`[{"day":"2024-01-01","total":"1"},{"day":"2024-01-02","total":"2"},{"day":"2024-01-03","total":"3.5"},{"day":"2024-01-04","total":"4"},{"day":"2024-01-05","total":"5"},{"day":"2024-01-06","total":"6"},{"day":"2024-01-07","ok":true}]`)

	service, _ := newTestService(t, model.SourceConfig{
		ID:       "daily",
		Kind:     model.KindJSON,
		Endpoint: server.URL,
	})

	result, err := service.DetectColumns(context.Background(), DetectParams{SourceID: "daily"})
	require.NoError(err)
	require.Len(result.Preview, 5)
	assert.Equal([]string{"day", "total"}, result.Columns)
	assert.Equal(infer.TypeDate, result.Types["day"])
	assert.Equal(infer.TypeNumber, result.Types["total"])

	// Detection always samples directly, so a repeat hits the backend again.
	_, err = service.DetectColumns(context.Background(), DetectParams{SourceID: "daily"})
	require.NoError(err)
	assert.EqualValues(2, atomic.LoadInt32(calls))
}

func TestDetectColumnsInlineConfig(t *testing.T) {
	require := require.New(t)

	server, _ := countingJSONServer(t, `[{"flag":"true"},{"flag":"false"}]`)
	service, _ := newTestService(t)

	result, err := service.DetectColumns(context.Background(), DetectParams{
		Config: &model.SourceConfig{Kind: model.KindJSON, Endpoint: server.URL},
	})
	require.NoError(err)
	require.Equal(infer.TypeBoolean, result.Types["flag"])
}

func TestDetectColumnsParamValidation(t *testing.T) {
	service, _ := newTestService(t)
	result, err := service.DetectColumns(context.Background(), DetectParams{})
	assert.Nil(t, result)
	assert.ErrorAs(t, err, &BadRequestErr{})
}

func TestDetectColumnsMisconfiguredElastic(t *testing.T) {
	service, _ := newTestService(t)
	result, err := service.DetectColumns(context.Background(), DetectParams{
		Config: &model.SourceConfig{Kind: model.KindElasticsearch, Endpoint: "http://localhost:9200"},
	})
	assert.Nil(t, result)
	assert.ErrorAs(t, err, &BadConfigErr{})
}
