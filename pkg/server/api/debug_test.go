// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebug(t *testing.T) {
	_, doHTTP := createServer(t)

	doHTTP(t, http.MethodGet, "/api/debug/health", httpOpts{}, func(t *testing.T, r *http.Response) {
		require.Equal(t, http.StatusOK, r.StatusCode)
		var info HealthInfo
		require.NoError(t, json.NewDecoder(r.Body).Decode(&info))
		require.Equal(t, "ok", info.Status)
		require.ElementsMatch(t, []string{"plugin-default", "plugin-admin"}, info.Policies)
	})

	doHTTP(t, http.MethodPost, "/api/debug/health", httpOpts{}, func(t *testing.T, r *http.Response) {
		require.Equal(t, http.StatusNotFound, r.StatusCode)
	})
}
