// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/glowdash/quarry/source"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xmidt-org/httpaux"
	"github.com/xmidt-org/httpaux/recovery"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServersConfig holds the listen addresses of the three servers, keyed
// under "servers" in the configuration file.
type ServersConfig struct {
	Primary ServerConfig
	Metrics ServerConfig
	Health  ServerConfig
}

type ServerConfig struct {
	Address string
}

func (c ServerConfig) address(fallback string) string {
	if c.Address != "" {
		return c.Address
	}
	return fallback
}

type PrimaryRoutesIn struct {
	fx.In
	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Servers   ServersConfig
	Handlers  PrimaryHandlersIn
}

type PrimaryHandlersIn struct {
	fx.In
	FetchData     source.Handler `name:"fetch_data_handler"`
	DetectColumns source.Handler `name:"detect_columns_handler"`
	CreateSource  source.Handler `name:"create_source_handler"`
	SetSource     source.Handler `name:"set_source_handler"`
	GetSource     source.Handler `name:"get_source_handler"`
	DeleteSource  source.Handler `name:"delete_source_handler"`
}

func BuildPrimaryRoutes(in PrimaryRoutesIn) {
	router := mux.NewRouter()
	chain := alice.New(recovery.Middleware(recovery.WithStatusCode(http.StatusInternalServerError)))

	sourcePath := fmt.Sprintf("/%s/source", apiBase)
	itemPath := fmt.Sprintf("%s/{id}", sourcePath)
	router.Handle(sourcePath, in.Handlers.CreateSource).Methods(http.MethodPost)
	router.Handle(sourcePath+"/detect", in.Handlers.DetectColumns).Methods(http.MethodPost)
	router.Handle(itemPath, in.Handlers.SetSource).Methods(http.MethodPut)
	router.Handle(itemPath, in.Handlers.GetSource).Methods(http.MethodGet)
	router.Handle(itemPath, in.Handlers.DeleteSource).Methods(http.MethodDelete)
	router.Handle(itemPath+"/data", in.Handlers.FetchData).Methods(http.MethodGet)

	startServer(in.Lifecycle, in.Logger, "primary", in.Servers.Primary.address(":6600"), chain.Then(router))
}

type MetricsRoutesIn struct {
	fx.In
	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Servers   ServersConfig
	Gatherer  prometheus.Gatherer
}

func BuildMetricsRoutes(in MetricsRoutesIn) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(in.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	startServer(in.Lifecycle, in.Logger, "metrics", in.Servers.Metrics.address(":6601"), router)
}

type HealthRoutesIn struct {
	fx.In
	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Servers   ServersConfig
}

func BuildHealthRoutes(in HealthRoutesIn) {
	router := mux.NewRouter()
	router.Handle("/health", httpaux.ConstantHandler{StatusCode: http.StatusOK}).Methods(http.MethodGet)
	startServer(in.Lifecycle, in.Logger, "health", in.Servers.Health.address(":6602"), router)
}

// startServer binds an HTTP server to the fx lifecycle. Listening happens
// during OnStart so a bad address fails application startup instead of a
// background goroutine.
func startServer(lc fx.Lifecycle, logger *zap.Logger, name, address string, handler http.Handler) {
	server := &http.Server{
		Addr:    address,
		Handler: handler,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			listener, err := net.Listen("tcp", address)
			if err != nil {
				return err
			}
			logger.Info("server listening", zap.String("server", name), zap.String("address", address))
			go func() {
				if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server exited", zap.String("server", name), zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: server.Shutdown,
	})
}
