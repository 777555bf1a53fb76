// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// ModuleSQLFence is the metrics namespace.
	ModuleSQLFence = "sqlfence"
)

// metrics subsystems.
const (
	LabelServer    = "server"
	LabelIsolation = "isolation"
)

// NewRegistry constructs the registry with every gate collector registered.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())

	registry.MustRegister(QueryCheckCounter)
	registry.MustRegister(QueryComplexityHistogram)
	registry.MustRegister(ParseFallbackCounter)
	registry.MustRegister(ResourceCheckCounter)
	registry.MustRegister(MaxProcsGauge)

	return registry
}
