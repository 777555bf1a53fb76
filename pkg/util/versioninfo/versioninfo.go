// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package versioninfo

// These variables will be overwritten by Makefile.
var (
	SQLFenceVersion = "None"
	SQLFenceGitHash = "None"
	SQLFenceBuildTS = "None"
)
