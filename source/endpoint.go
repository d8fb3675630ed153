// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"

	"github.com/go-kit/kit/endpoint"
)

func newFetchDataEndpoint(s *Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		dataRequest := request.(*fetchDataRequest)
		return s.FetchData(ctx, dataRequest.sourceID, dataRequest.options)
	}
}

func newDetectColumnsEndpoint(s *Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		detectRequest := request.(*detectColumnsRequest)
		return s.DetectColumns(ctx, detectRequest.params)
	}
}

func newCreateSourceEndpoint(r *Registry) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		createRequest := request.(*createSourceRequest)
		created, err := r.Create(createRequest.config)
		if err != nil {
			return nil, err
		}
		return &created, nil
	}
}

func newSetSourceEndpoint(r *Registry) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		setRequest := request.(*setSourceRequest)
		updated, err := r.Set(setRequest.sourceID, setRequest.config)
		if err != nil {
			return nil, err
		}
		return &updated, nil
	}
}

func newGetSourceEndpoint(r *Registry) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		getRequest := request.(*getOrDeleteSourceRequest)
		cfg, err := r.Get(getRequest.sourceID)
		if err != nil {
			return nil, err
		}
		return &cfg, nil
	}
}

func newDeleteSourceEndpoint(r *Registry) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		deleteRequest := request.(*getOrDeleteSourceRequest)
		if err := r.Delete(deleteRequest.sourceID); err != nil {
			return nil, err
		}
		return &deletedSourceResponse{ID: deleteRequest.sourceID}, nil
	}
}

type deletedSourceResponse struct {
	ID string `json:"id"`
}
