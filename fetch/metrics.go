// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"github.com/glowdash/quarry/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	FetchCounter = "backend_fetches_total"
)

// Labels
const (
	KindLabel    = "kind"
	OutcomeLabel = "outcome"
)

// Label Values
const (
	SuccessOutcome = "success"
	FailureOutcome = "failure"
)

// ProvideMetrics returns the metrics relevant to this package.
func ProvideMetrics() fx.Option {
	return touchstone.CounterVec(
		prometheus.CounterOpts{
			Name: FetchCounter,
			Help: "Counter for backend fetches, labeled by source kind and outcome.",
		},
		KindLabel, OutcomeLabel,
	)
}

type Measures struct {
	fx.In
	Fetches *prometheus.CounterVec `name:"backend_fetches_total"`
}

func (m *Measures) observe(kind model.Kind, err error) {
	if m == nil || m.Fetches == nil {
		return
	}
	outcome := SuccessOutcome
	if err != nil {
		outcome = FailureOutcome
	}
	m.Fetches.With(prometheus.Labels{
		KindLabel:    string(kind),
		OutcomeLabel: outcome,
	}).Add(1)
}
