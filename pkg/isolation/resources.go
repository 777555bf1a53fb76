// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package isolation

import "github.com/sqlfence/sqlfence/lib/config"

// ResourceQuotas answers point-in-time checks of infrastructure counters
// against a static per-plugin ceiling set. It never tracks the current values
// itself: the caller supplies them at call time and decides what a breach
// implies. All checks are strict less-than.
type ResourceQuotas struct {
	limits config.Resources
}

func NewResourceQuotas(cfg config.Resources) ResourceQuotas {
	return ResourceQuotas{limits: cfg}
}

func (r ResourceQuotas) Limits() config.Resources {
	return r.limits
}

// WithinConnectionLimit reports whether one more connection may be opened.
func (r ResourceQuotas) WithinConnectionLimit(current int) bool {
	return current < r.limits.MaxConnections
}

// WithinStorageLimit reports whether the plugin may still grow its storage.
func (r ResourceQuotas) WithinStorageLimit(currentBytes int64) bool {
	return currentBytes < r.limits.MaxStorageBytes
}

// WithinTableLimit reports whether one more table may be created.
func (r ResourceQuotas) WithinTableLimit(currentTables int) bool {
	return currentTables < r.limits.MaxTables
}

// WithinRowLimit reports whether a table may still take inserts.
func (r ResourceQuotas) WithinRowLimit(currentRows int64) bool {
	return currentRows < r.limits.MaxRowsPerTable
}

// WithinIndexLimit reports whether one more index may be added to a table.
func (r ResourceQuotas) WithinIndexLimit(currentIndexes int) bool {
	return currentIndexes < r.limits.MaxIndexesPerTable
}
