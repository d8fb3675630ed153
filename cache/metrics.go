// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	ReadCounter   = "row_cache_reads_total"
	FlightCounter = "load_flights_total"
)

// Labels
const (
	OutcomeLabel = "outcome"
	RoleLabel    = "role"
)

// Label Values
const (
	HitOutcome  = "hit"
	MissOutcome = "miss"

	LeaderRole = "leader"
	WaiterRole = "waiter"
)

// ProvideMetrics returns the metrics relevant to this package.
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: ReadCounter,
				Help: "Counter for row cache reads, labeled by hit/miss outcome.",
			},
			OutcomeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: FlightCounter,
				Help: "Counter for coordinated load flights; waiters attached to another caller's fetch count as deduplicated.",
			},
			RoleLabel,
		),
	)
}

type Measures struct {
	fx.In
	Reads   *prometheus.CounterVec `name:"row_cache_reads_total"`
	Flights *prometheus.CounterVec `name:"load_flights_total"`
}

func (m *Measures) read(outcome string) {
	if m == nil || m.Reads == nil {
		return
	}
	m.Reads.With(prometheus.Labels{OutcomeLabel: outcome}).Add(1)
}

func (m *Measures) flight(role string) {
	if m == nil || m.Flights == nil {
		return
	}
	m.Flights.With(prometheus.Labels{RoleLabel: role}).Add(1)
}
