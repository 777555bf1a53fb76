// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package naming

import (
	"hash/crc32"
	"sync"
)

// DigestCache memoizes statement digests. It is an explicit bounded object
// owned by its call site, not process-wide state: create one per component
// that needs digests and size it for that component's working set.
type DigestCache struct {
	mu      sync.Mutex
	entries map[string]uint32
	max     int
}

func NewDigestCache(max int) *DigestCache {
	if max <= 0 {
		max = 1024
	}
	return &DigestCache{
		entries: make(map[string]uint32, max),
		max:     max,
	}
}

// Digest returns the checksum of the statement text, memoized up to the cache
// bound. When the bound is reached the cache starts over rather than growing.
func (c *DigestCache) Digest(sql string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.entries[sql]; ok {
		return d
	}
	d := crc32.ChecksumIEEE([]byte(sql))
	if len(c.entries) >= c.max {
		c.entries = make(map[string]uint32, c.max)
	}
	c.entries[sql] = d
	return d
}

// Len reports the number of memoized digests.
func (c *DigestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
