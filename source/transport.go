// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/glowdash/quarry/model"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/spf13/cast"
)

// request URL path keys
const (
	sourceIDVarKey = "id"
)

const (
	sourceIDVarMissingMsg = "{id} URL path parameter missing"
)

// Response Headers
const (
	QuarryErrorHeaderKey = "X-Quarry-Error"
)

// ErrCasting indicates there was a middleware wiring mistake with the go-kit style
// encoders.
var ErrCasting = errors.New("casting error due to middleware wiring mistake")

type fetchDataRequest struct {
	sourceID string
	options  model.FetchOptions
}

type detectColumnsRequest struct {
	params DetectParams
}

type createSourceRequest struct {
	config model.SourceConfig
}

type setSourceRequest struct {
	sourceID string
	config   model.SourceConfig
}

type getOrDeleteSourceRequest struct {
	sourceID string
}

func decodeFetchDataRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	sourceID, ok := vars[sourceIDVarKey]
	if !ok {
		return nil, BadRequestErr{Message: sourceIDVarMissingMsg}
	}

	query := r.URL.Query()
	options := model.FetchOptions{
		From:         query.Get("from"),
		To:           query.Get("to"),
		Page:         cast.ToInt(query.Get("page")),
		PageSize:     cast.ToInt(query.Get("pageSize")),
		Fields:       splitFields(query.Get("fields")),
		ForceRefresh: cast.ToBool(query.Get("refresh")),
		ShareID:      query.Get("shareId"),
	}
	if options.Page < 0 || options.PageSize < 0 {
		return nil, BadRequestErr{Message: "page and pageSize must be positive"}
	}

	return &fetchDataRequest{sourceID: sourceID, options: options}, nil
}

func decodeDetectColumnsRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, BadRequestErr{Message: "failed to read body"}
	}

	params := DetectParams{}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, BadRequestErr{Message: "failed to unmarshal json"}
	}
	if params.SourceID == "" && params.Config == nil {
		return nil, BadRequestErr{Message: "either sourceId or config must be set"}
	}

	return &detectColumnsRequest{params: params}, nil
}

func decodeCreateSourceRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	cfg, err := readSourceConfig(r)
	if err != nil {
		return nil, err
	}
	return &createSourceRequest{config: cfg}, nil
}

func decodeSetSourceRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	sourceID, ok := vars[sourceIDVarKey]
	if !ok {
		return nil, BadRequestErr{Message: sourceIDVarMissingMsg}
	}

	cfg, err := readSourceConfig(r)
	if err != nil {
		return nil, err
	}
	if cfg.ID != "" && cfg.ID != sourceID {
		return nil, BadRequestErr{Message: "IDs must match between URL and payload"}
	}

	return &setSourceRequest{sourceID: sourceID, config: cfg}, nil
}

func decodeGetOrDeleteSourceRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	sourceID, ok := vars[sourceIDVarKey]
	if !ok {
		return nil, BadRequestErr{Message: sourceIDVarMissingMsg}
	}
	return &getOrDeleteSourceRequest{sourceID: sourceID}, nil
}

func readSourceConfig(r *http.Request) (model.SourceConfig, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return model.SourceConfig{}, BadRequestErr{Message: "failed to read body"}
	}

	cfg := model.SourceConfig{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return model.SourceConfig{}, BadRequestErr{Message: "failed to unmarshal json"}
	}
	return cfg, nil
}

// splitFields turns the comma list of the fields query parameter into a
// projection list, dropping empty segments.
func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	var fields []string
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			fields = append(fields, field)
		}
	}
	return fields
}

func encodeJSONResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	rw.Header().Add("Content-Type", "application/json")
	rw.Write(data)
	return nil
}

func encodeCreateSourceResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	cfg, ok := response.(*model.SourceConfig)
	if !ok {
		return ErrCasting
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(http.StatusCreated)
	rw.Write(data)
	return nil
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	w.Header().Set(QuarryErrorHeaderKey, err.Error())
	if headerer, ok := err.(kithttp.Headerer); ok {
		for k, values := range headerer.Headers() {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
	}
	code := http.StatusInternalServerError
	if sc, ok := err.(kithttp.StatusCoder); ok {
		code = sc.StatusCode()
	}
	w.WriteHeader(code)
}
