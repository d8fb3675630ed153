// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/glowdash/quarry/cache"
	"github.com/glowdash/quarry/fetch"
	"github.com/glowdash/quarry/source"
	"github.com/spf13/pflag"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

const (
	applicationName = "quarry"

	apiBase = "api/v1"
)

var (
	GitCommit = "undefined"
	Version   = "undefined"
	BuildTime = "undefined"
)

func main() {
	v, logger, err := setup(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	app := fx.New(
		arrange.LoggerFunc(logger.Sugar().Infof),
		arrange.ForViper(v),
		fx.Supply(logger, v),
		touchstone.Provide(),
		cache.ProvideMetrics(),
		fetch.ProvideMetrics(),
		source.Provide(),
		source.ProvideHandlers(),
		fx.Provide(
			arrange.UnmarshalKey("prometheus", touchstone.Config{}),
			arrange.UnmarshalKey("fetch", fetch.Config{}),
			arrange.UnmarshalKey("servers", ServersConfig{}),
			cache.NewRowCache,
			func(rows *cache.RowCache, measures cache.Measures) *cache.Coordinator {
				return cache.NewCoordinator(rows, &measures)
			},
			func(cfg fetch.Config, measures fetch.Measures) *fetch.Dispatcher {
				return fetch.NewDispatcher(cfg, &measures)
			},
		),

		fx.Invoke(
			BuildPrimaryRoutes,
			BuildMetricsRoutes,
			BuildHealthRoutes,
		),
	)

	switch err := app.Err(); {
	case errors.Is(err, pflag.ErrHelp):
		return
	case err == nil:
		app.Run()
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
