// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package model

// Record is a flat mapping of column name to value. It is the unit of data
// the whole retrieval pipeline operates on; a record has no identity beyond
// its position in a sequence.
type Record map[string]interface{}

// Kind identifies the storage/transport type of a data source.
type Kind string

const (
	KindJSON          Kind = "json"
	KindCSV           Kind = "csv"
	KindElasticsearch Kind = "elasticsearch"
)

// AuthType enumerates the supported outbound auth mechanisms.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "apiKey"
	AuthBasic  AuthType = "basic"
)

// AuthConfig describes how requests to the upstream backend are authorized.
// Credentials are opaque to the retrieval layer beyond building headers.
type AuthConfig struct {
	Type AuthType `json:"type"`

	// Token is the bearer token when Type is "bearer".
	Token string `json:"token,omitempty"`

	// Header and Key form the custom header pair when Type is "apiKey".
	Header string `json:"header,omitempty"`
	Key    string `json:"key,omitempty"`

	// Username and Password are used when Type is "basic".
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// SourceConfig describes one data source. It is resolved by the persistence
// layer and immutable for the duration of one fetch.
type SourceConfig struct {
	// ID is the opaque identity of the source.
	ID string `json:"id"`

	// Kind selects the backend fetcher.
	Kind Kind `json:"kind" validate:"required,oneof=json csv elasticsearch"`

	// Endpoint is the remote URL for json and remote csv sources, and the
	// cluster address for elasticsearch sources.
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`

	// Method is the HTTP method for json sources. Defaults to GET.
	Method string `json:"method,omitempty"`

	// FilePath points at a local CSV file. When set it takes precedence
	// over Endpoint for csv sources.
	FilePath string `json:"filePath,omitempty"`

	// ESIndex and ESQuery configure elasticsearch sources. ESQuery is the
	// base query the range filter is combined with; empty means match_all.
	ESIndex string                 `json:"esIndex,omitempty"`
	ESQuery map[string]interface{} `json:"esQuery,omitempty"`

	// Auth describes the outbound credentials, if any.
	Auth AuthConfig `json:"auth"`

	// TimestampField names the column holding each record's timestamp.
	// Empty means the source is not timestamped and time windows are
	// ignored even when supplied.
	TimestampField string `json:"timestampField,omitempty"`
}

// Timestamped reports whether the source declares a timestamp column.
func (c SourceConfig) Timestamped() bool {
	return c.TimestampField != ""
}

// FetchOptions is the per-call request shape. It is constructed per request
// and never persisted.
type FetchOptions struct {
	// From and To bound the time window as ISO-8601 strings. Either or
	// both may be empty.
	From string
	To   string

	// Page and PageSize slice the projected result. Pagination applies
	// only when both are set; Page is 1-based.
	Page     int
	PageSize int

	// Fields is the column allow-list for projection. Empty means all.
	Fields []string

	// ForceRefresh discards any cached rows for this request before
	// fetching.
	ForceRefresh bool

	// ShareID identifies the shared dashboard a public request arrived
	// through. Empty for first-party requests.
	ShareID string
}

// Paginated reports whether both pagination parameters are set.
func (o FetchOptions) Paginated() bool {
	return o.Page > 0 && o.PageSize > 0
}

// Windowed reports whether at least one time bound was requested.
func (o FetchOptions) Windowed() bool {
	return o.From != "" || o.To != ""
}
