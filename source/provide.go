// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"net/http"

	kithttp "github.com/go-kit/kit/transport/http"
	"go.uber.org/fx"
)

type Handler http.Handler

// Provide wires the registry, share registry, and orchestrator service.
func Provide() fx.Option {
	return fx.Provide(
		NewRegistry,
		NewShareRegistry,
		func(r *Registry) ConfigResolver { return r },
		func(s *ShareRegistry) ShareVerifier { return s },
		NewService,
	)
}

// ProvideHandlers fetches all dependencies and builds the handlers for the
// data and registry surfaces.
func ProvideHandlers() fx.Option {
	return fx.Provide(
		fx.Annotated{
			Name:   "fetch_data_handler",
			Target: newFetchDataHandler,
		},
		fx.Annotated{
			Name:   "detect_columns_handler",
			Target: newDetectColumnsHandler,
		},
		fx.Annotated{
			Name:   "create_source_handler",
			Target: newCreateSourceHandler,
		},
		fx.Annotated{
			Name:   "set_source_handler",
			Target: newSetSourceHandler,
		},
		fx.Annotated{
			Name:   "get_source_handler",
			Target: newGetSourceHandler,
		},
		fx.Annotated{
			Name:   "delete_source_handler",
			Target: newDeleteSourceHandler,
		},
	)
}

func newFetchDataHandler(s *Service) Handler {
	return kithttp.NewServer(
		newFetchDataEndpoint(s),
		decodeFetchDataRequest,
		encodeJSONResponse,
		kithttp.ServerErrorEncoder(encodeError),
	)
}

func newDetectColumnsHandler(s *Service) Handler {
	return kithttp.NewServer(
		newDetectColumnsEndpoint(s),
		decodeDetectColumnsRequest,
		encodeJSONResponse,
		kithttp.ServerErrorEncoder(encodeError),
	)
}

func newCreateSourceHandler(r *Registry) Handler {
	return kithttp.NewServer(
		newCreateSourceEndpoint(r),
		decodeCreateSourceRequest,
		encodeCreateSourceResponse,
		kithttp.ServerErrorEncoder(encodeError),
	)
}

func newSetSourceHandler(r *Registry) Handler {
	return kithttp.NewServer(
		newSetSourceEndpoint(r),
		decodeSetSourceRequest,
		encodeJSONResponse,
		kithttp.ServerErrorEncoder(encodeError),
	)
}

func newGetSourceHandler(r *Registry) Handler {
	return kithttp.NewServer(
		newGetSourceEndpoint(r),
		decodeGetOrDeleteSourceRequest,
		encodeJSONResponse,
		kithttp.ServerErrorEncoder(encodeError),
	)
}

func newDeleteSourceHandler(r *Registry) Handler {
	return kithttp.NewServer(
		newDeleteSourceEndpoint(r),
		decodeGetOrDeleteSourceRequest,
		encodeJSONResponse,
		kithttp.ServerErrorEncoder(encodeError),
	)
}
