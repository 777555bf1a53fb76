// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"testing"

	"github.com/sqlfence/sqlfence/lib/config"
	"github.com/stretchr/testify/require"
)

func TestResourceLimitsStrict(t *testing.T) {
	quotas := NewResourceQuotas(config.Resources{
		MaxConnections:     5,
		MaxStorageBytes:    100 * 1024 * 1024,
		MaxTables:          20,
		MaxRowsPerTable:    100000,
		MaxIndexesPerTable: 5,
	})

	tests := []struct {
		check  func() bool
		within bool
	}{
		{func() bool { return quotas.WithinConnectionLimit(0) }, true},
		{func() bool { return quotas.WithinConnectionLimit(4) }, true},
		// at the limit means the next acquisition is denied
		{func() bool { return quotas.WithinConnectionLimit(5) }, false},
		{func() bool { return quotas.WithinConnectionLimit(6) }, false},
		{func() bool { return quotas.WithinStorageLimit(100*1024*1024 - 1) }, true},
		{func() bool { return quotas.WithinStorageLimit(100 * 1024 * 1024) }, false},
		{func() bool { return quotas.WithinTableLimit(19) }, true},
		{func() bool { return quotas.WithinTableLimit(20) }, false},
		{func() bool { return quotas.WithinRowLimit(99999) }, true},
		{func() bool { return quotas.WithinRowLimit(100000) }, false},
		{func() bool { return quotas.WithinIndexLimit(4) }, true},
		{func() bool { return quotas.WithinIndexLimit(5) }, false},
	}
	for i, test := range tests {
		require.Equal(t, test.within, test.check(), "case %d", i)
	}
}

func TestResourceLimitsCarried(t *testing.T) {
	limits := config.Resources{
		MaxConnections:     7,
		MaxStorageBytes:    1 << 20,
		MaxTables:          3,
		MaxRowsPerTable:    500,
		MaxIndexesPerTable: 2,
	}
	quotas := NewResourceQuotas(limits)
	require.Equal(t, limits, quotas.Limits())
}
