// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"math"
	"strings"
	"time"

	"github.com/sqlfence/sqlfence/lib/config"
	"github.com/sqlfence/sqlfence/lib/util/errors"
	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument reports a caller bug: empty query text or a row
	// estimate that is not a finite positive number.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQuotaExceeded reports that the complexity or row ceiling was breached.
	// Retrying the same query against the same policy would deterministically
	// fail again.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrComplexityExceeded and ErrRowsExceeded narrow ErrQuotaExceeded so
	// callers can branch on which ceiling fired. Both match ErrQuotaExceeded.
	ErrComplexityExceeded = errors.Errorf("%w", ErrQuotaExceeded)
	ErrRowsExceeded       = errors.Errorf("%w", ErrQuotaExceeded)
)

// Enforcer is the governance gate in front of per-plugin schemas. It decides
// accept or reject for a (query, row estimate) pair and carries the execution
// timeout for the downstream engine. It is stateless across calls.
type Enforcer struct {
	estimator     *Estimator
	maxComplexity int
	maxRows       int
	execTimeout   time.Duration
}

func NewEnforcer(cfg config.Isolation, lg *zap.Logger) *Enforcer {
	return &Enforcer{
		estimator:     NewEstimator(cfg, lg),
		maxComplexity: cfg.MaxQueryComplexity,
		maxRows:       cfg.MaxQueryRows,
		execTimeout:   cfg.MaxExecutionTime,
	}
}

// EstimateComplexity exposes the estimator verdict without enforcing it.
func (e *Enforcer) EstimateComplexity(query string) int {
	return e.estimator.Estimate(query)
}

// ExecutionTimeout is the advisory execution-time ceiling. The gate never
// enforces it; the caller must apply it as a statement timeout on the engine
// that executes the accepted query.
func (e *Enforcer) ExecutionTimeout() time.Duration {
	return e.execTimeout
}

// CheckQuotas validates the inputs, then checks the complexity ceiling and
// the row ceiling in that order. A complexity breach short-circuits the row
// check. There is no default row estimate: the caller must supply a real one,
// otherwise the row quota could be silently bypassed. The computed complexity
// score is returned alongside the verdict so callers that report it do not
// parse the query a second time.
func (e *Enforcer) CheckQuotas(query string, estimatedRows float64) (int, error) {
	if len(strings.TrimSpace(query)) == 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "Query parameter cannot be empty or whitespace")
	}
	if math.IsNaN(estimatedRows) || math.IsInf(estimatedRows, 0) || estimatedRows <= 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "Estimated rows must be a finite positive number greater than zero")
	}
	score := e.estimator.Estimate(query)
	if score > e.maxComplexity {
		return score, errors.Wrapf(ErrComplexityExceeded, "Query complexity %d exceeds limit %d", score, e.maxComplexity)
	}
	if estimatedRows > float64(e.maxRows) {
		return score, errors.Wrapf(ErrRowsExceeded, "Estimated rows %.0f exceeds limit %d", estimatedRows, e.maxRows)
	}
	return score, nil
}

// EnforceQuotas is CheckQuotas without the score.
func (e *Enforcer) EnforceQuotas(query string, estimatedRows float64) error {
	_, err := e.CheckQuotas(query, estimatedRows)
	return err
}
