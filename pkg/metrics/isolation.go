// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	LblVerdict  = "verdict"
	LblResource = "resource"

	LblVerdictAllowed            = "allowed"
	LblVerdictComplexityExceeded = "complexity_exceeded"
	LblVerdictRowsExceeded       = "rows_exceeded"
	LblVerdictInvalidArgument    = "invalid_argument"
	LblVerdictNotAllowed         = "operation_not_allowed"
	LblVerdictSchemaDenied       = "schema_not_allowed"
	LblVerdictExceeded           = "exceeded"
)

var (
	QueryCheckCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ModuleSQLFence,
			Subsystem: LabelIsolation,
			Name:      "query_checks",
			Help:      "Counter of quota checks by verdict.",
		}, []string{LblVerdict})

	QueryComplexityHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ModuleSQLFence,
			Subsystem: LabelIsolation,
			Name:      "query_complexity",
			Help:      "Bucketed histogram of estimated query complexity scores.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16), // 1 ~ 32768
		})

	ParseFallbackCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ModuleSQLFence,
			Subsystem: LabelIsolation,
			Name:      "parse_fallbacks",
			Help:      "Counter of queries scored with the fallback complexity because parsing failed.",
		})

	ResourceCheckCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ModuleSQLFence,
			Subsystem: LabelIsolation,
			Name:      "resource_checks",
			Help:      "Counter of resource ceiling checks by resource and verdict.",
		}, []string{LblResource, LblVerdict})

	MaxProcsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: ModuleSQLFence,
			Subsystem: LabelServer,
			Name:      "maxprocs",
			Help:      "The value of GOMAXPROCS.",
		})
)
