// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package sctx

// Context carries the start-up options from the command line into the server.
type Context struct {
	ConfigFile string
}
