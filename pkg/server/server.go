// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"os"

	"github.com/sqlfence/sqlfence/lib/config"
	"github.com/sqlfence/sqlfence/lib/util/cmd"
	"github.com/sqlfence/sqlfence/lib/util/errors"
	"github.com/sqlfence/sqlfence/pkg/isolation"
	"github.com/sqlfence/sqlfence/pkg/metrics"
	"github.com/sqlfence/sqlfence/pkg/sctx"
	"github.com/sqlfence/sqlfence/pkg/server/api"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	ErrCloseServer = errors.New("failed to close server")
)

// Server wires the governance components together: config, logger, the per-
// policy enforcers, the resource tracker, and the HTTP API.
type Server struct {
	lg  *zap.Logger
	api *api.Server
}

// buildManagers creates one enforcer per canonical policy. All enforcers share
// the configured weights and row ceiling; each policy supplies its own
// complexity and execution-time ceilings.
func buildManagers(cfg *config.Config, lg *zap.Logger) api.Managers {
	policies := []isolation.Policy{
		isolation.DefaultPluginPolicy(),
		isolation.AdminPluginPolicy(),
	}

	mgr := api.Managers{
		Enforcers: make(map[string]*isolation.Enforcer, len(policies)),
		Policies:  make(map[string]isolation.Policy, len(policies)),
		Quotas:    isolation.NewResourceQuotas(cfg.Resources),
		Registry:  metrics.NewRegistry(),
	}
	for _, policy := range policies {
		iso := cfg.Isolation
		iso.MaxQueryComplexity = policy.MaxComplexity
		iso.MaxExecutionTime = policy.MaxExecutionTime
		mgr.Enforcers[policy.Name] = isolation.NewEnforcer(iso, lg.Named("isolation"))
		mgr.Policies[policy.Name] = policy
	}
	return mgr
}

func NewServer(ctx context.Context, sctx *sctx.Context) (*Server, error) {
	cfg := config.NewConfig()
	if sctx.ConfigFile != "" {
		data, err := os.ReadFile(sctx.ConfigFile)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if cfg, err = config.Unmarshal(data); err != nil {
			return nil, err
		}
	}

	lg, _, err := cmd.BuildLogger(&cfg.Log)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	srv := &Server{lg: lg}
	ready := atomic.NewBool(true)
	srv.api, err = api.NewServer(cfg.API, lg.Named("api"), buildManagers(cfg, lg), ready)
	if err != nil {
		return nil, err
	}
	lg.Info("server started", zap.String("addr", srv.api.Addr()))
	return srv, nil
}

func (s *Server) Close() error {
	if err := s.api.Close(); err != nil {
		return errors.Wrap(ErrCloseServer, err)
	}
	_ = s.lg.Sync()
	return nil
}
