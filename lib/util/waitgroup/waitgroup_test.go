// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package waitgroup

import (
	"testing"

	"github.com/sqlfence/sqlfence/lib/util/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestRun(t *testing.T) {
	var wg WaitGroup
	var n atomic.Int64
	for i := 0; i < 10; i++ {
		wg.Run(func() {
			n.Inc()
		})
	}
	wg.Wait()
	require.Equal(t, int64(10), n.Load())
}

func TestRunWithRecover(t *testing.T) {
	lg, text := logger.CreateLoggerForTest(t)
	var wg WaitGroup
	var recovered atomic.Bool
	wg.RunWithRecover(func() {
		panic("mock panic")
	}, func(r interface{}) {
		recovered.Store(true)
	}, lg)
	wg.Wait()
	require.True(t, recovered.Load())
	require.Contains(t, text.String(), "mock panic")
}
