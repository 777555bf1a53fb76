// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sqlfence/sqlfence/lib/config"
	"github.com/sqlfence/sqlfence/lib/util/logger"
	"github.com/stretchr/testify/require"
)

func newTestEnforcer(t *testing.T, iso config.Isolation) *Enforcer {
	lg, _ := logger.CreateLoggerForTest(t)
	return NewEnforcer(iso, lg)
}

func TestEnforceInvalidQuery(t *testing.T) {
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 1000, MaxQueryRows: 10000})
	for i, query := range []string{"", "   ", "\t\n  "} {
		err := enforcer.EnforceQuotas(query, 1)
		require.ErrorIs(t, err, ErrInvalidArgument, "case %d", i)
		require.Contains(t, err.Error(), "Query parameter cannot be empty or whitespace", "case %d", i)
	}
}

func TestEnforceInvalidRowEstimate(t *testing.T) {
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 1000, MaxQueryRows: 10000})
	for i, rows := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := enforcer.EnforceQuotas("SELECT 1", rows)
		require.ErrorIs(t, err, ErrInvalidArgument, "case %d", i)
		require.Contains(t, err.Error(), "Estimated rows must be a finite positive number greater than zero", "case %d", i)
	}
}

func TestEnforceComplexityCeiling(t *testing.T) {
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 10, MaxQueryRows: 10000})

	err := enforcer.EnforceQuotas("SELECT * FROM a, b, c", 1)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.ErrorIs(t, err, ErrComplexityExceeded)
	require.Regexp(t, `(?i)complexity`, err.Error())
	require.Regexp(t, `(?i)exceeds limit`, err.Error())

	require.NoError(t, enforcer.EnforceQuotas("SELECT id FROM t WHERE x = 1", 1))
}

func TestEnforceRecursiveCTE(t *testing.T) {
	sql := "WITH RECURSIVE t(n) AS (SELECT 1 UNION ALL SELECT n+1 FROM t WHERE n < 5) SELECT * FROM t;"

	// generous ceilings accept the query for any valid row estimate
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 1000, MaxQueryRows: 1000000})
	require.NoError(t, enforcer.EnforceQuotas(sql, 1))
	require.NoError(t, enforcer.EnforceQuotas(sql, 999999))

	// a very tight ceiling rejects it on complexity
	enforcer = newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 5, MaxQueryRows: 10000})
	err := enforcer.EnforceQuotas(sql, 1)
	require.ErrorIs(t, err, ErrComplexityExceeded)
	require.Regexp(t, `(?i)complexity.*exceeds limit`, err.Error())
}

func TestEnforceRowCeiling(t *testing.T) {
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 1000, MaxQueryRows: 10})

	err := enforcer.EnforceQuotas("SELECT id FROM t", 100)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.ErrorIs(t, err, ErrRowsExceeded)
	require.Regexp(t, `(?i)rows.*exceeds limit`, err.Error())
	require.Contains(t, err.Error(), "Estimated rows 100 exceeds limit 10")

	require.NoError(t, enforcer.EnforceQuotas("SELECT id FROM t", 10))
}

func TestComplexityCheckedBeforeRows(t *testing.T) {
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 10, MaxQueryRows: 10})
	// both ceilings would fire; the complexity breach short-circuits
	err := enforcer.EnforceQuotas("SELECT * FROM a, b, c", 500000)
	require.ErrorIs(t, err, ErrComplexityExceeded)
	require.NotErrorIs(t, err, ErrRowsExceeded)
}

func TestEnforceIdempotent(t *testing.T) {
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 10, MaxQueryRows: 10000})
	for i := 0; i < 5; i++ {
		err := enforcer.EnforceQuotas("SELECT * FROM a, b, c", 1)
		require.ErrorIs(t, err, ErrComplexityExceeded, "call %d", i)
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, enforcer.EnforceQuotas("SELECT id FROM t", 1), "call %d", i)
	}
}

func TestEnforceParseFallback(t *testing.T) {
	// fail-open default: an unparseable query scores exactly the ceiling and passes
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 1000, MaxQueryRows: 10000})
	require.NoError(t, enforcer.EnforceQuotas("GIBBERISH ((( QUERY", 1))

	// fail-closed: a fallback above the ceiling rejects everything unparseable
	enforcer = newTestEnforcer(t, config.Isolation{
		MaxQueryComplexity: 1000,
		MaxQueryRows:       10000,
		FallbackComplexity: 1001,
	})
	err := enforcer.EnforceQuotas("GIBBERISH ((( QUERY", 1)
	require.ErrorIs(t, err, ErrComplexityExceeded)
}

func TestCheckQuotasReturnsScore(t *testing.T) {
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 10, MaxQueryRows: 10000})

	score, err := enforcer.CheckQuotas("SELECT id FROM t WHERE x = 1", 1)
	require.NoError(t, err)
	require.Equal(t, 1, score)

	// the score accompanies the verdict even on a breach
	score, err = enforcer.CheckQuotas("SELECT * FROM a, b, c", 1)
	require.ErrorIs(t, err, ErrComplexityExceeded)
	require.Equal(t, 24, score)
	require.Equal(t, score, enforcer.EstimateComplexity("SELECT * FROM a, b, c"))
}

func TestEnforceConcurrent(t *testing.T) {
	// one shared instance, verdicts must stay deterministic under contention
	enforcer := newTestEnforcer(t, config.Isolation{MaxQueryComplexity: 10, MaxQueryRows: 100})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				require.NoError(t, enforcer.EnforceQuotas("SELECT id FROM t WHERE x = 1", 1))

				err := enforcer.EnforceQuotas("SELECT * FROM a, b, c", 1)
				require.ErrorIs(t, err, ErrComplexityExceeded)

				err = enforcer.EnforceQuotas("SELECT id FROM t", 500)
				require.ErrorIs(t, err, ErrRowsExceeded)

				score, err := enforcer.CheckQuotas("SELECT id FROM t", 5)
				require.NoError(t, err)
				require.Equal(t, 1, score)
			}
		}()
	}
	wg.Wait()
}

func TestExecutionTimeoutCarried(t *testing.T) {
	enforcer := newTestEnforcer(t, config.Isolation{
		MaxQueryComplexity: 1000,
		MaxQueryRows:       10000,
		MaxExecutionTime:   5 * time.Second,
	})
	require.Equal(t, 5*time.Second, enforcer.ExecutionTimeout())
}
