// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sqlfence/sqlfence/lib/config"
	"github.com/sqlfence/sqlfence/lib/util/logger"
	"github.com/sqlfence/sqlfence/pkg/isolation"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type httpOpts struct {
	reader io.Reader
	header map[string]string
}

func createServer(t *testing.T) (*Server, func(t *testing.T, method string, path string, opts httpOpts, f func(*testing.T, *http.Response))) {
	lg, _ := logger.CreateLoggerForTest(t)
	ready := atomic.NewBool(true)

	enforcers := make(map[string]*isolation.Enforcer)
	policies := make(map[string]isolation.Policy)
	for _, policy := range []isolation.Policy{isolation.DefaultPluginPolicy(), isolation.AdminPluginPolicy()} {
		iso := config.Isolation{
			MaxQueryComplexity: policy.MaxComplexity,
			MaxQueryRows:       10000,
			MaxExecutionTime:   policy.MaxExecutionTime,
		}
		enforcers[policy.Name] = isolation.NewEnforcer(iso, lg)
		policies[policy.Name] = policy
	}

	srv, err := NewServer(config.API{
		Addr: "0.0.0.0:0",
	}, lg, Managers{
		Enforcers: enforcers,
		Policies:  policies,
		Quotas: isolation.NewResourceQuotas(config.Resources{
			MaxConnections:     5,
			MaxStorageBytes:    100 * 1024 * 1024,
			MaxTables:          20,
			MaxRowsPerTable:    100000,
			MaxIndexesPerTable: 5,
		}),
		Registry: prometheus.NewRegistry(),
	}, ready)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
	})

	addr := fmt.Sprintf("http://%s", srv.listener.Addr().String())
	return srv, func(t *testing.T, method, pa string, opts httpOpts, f func(*testing.T, *http.Response)) {
		if pa[0] != '/' {
			pa = "/" + pa
		}
		req, err := http.NewRequest(method, fmt.Sprintf("%s%s", addr, pa), opts.reader)
		require.NoError(t, err)
		for key, value := range opts.header {
			req.Header.Set(key, value)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		f(t, resp)
		require.NoError(t, resp.Body.Close())
	}
}

func TestServerNotReady(t *testing.T) {
	srv, doHTTP := createServer(t)
	srv.ready.Store(false)
	doHTTP(t, http.MethodGet, "/api/debug/health", httpOpts{}, func(t *testing.T, r *http.Response) {
		require.Equal(t, http.StatusInternalServerError, r.StatusCode)
	})
	srv.ready.Store(true)
	doHTTP(t, http.MethodGet, "/api/debug/health", httpOpts{}, func(t *testing.T, r *http.Response) {
		require.Equal(t, http.StatusOK, r.StatusCode)
	})
}
