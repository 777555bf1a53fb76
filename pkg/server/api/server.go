// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sqlfence/sqlfence/lib/config"
	"github.com/sqlfence/sqlfence/lib/util/waitgroup"
	"github.com/sqlfence/sqlfence/pkg/isolation"
	"github.com/sqlfence/sqlfence/pkg/naming"
	"go.uber.org/atomic"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefAPILimit is the global API limit per second.
	DefAPILimit = 100
	// DefConnTimeout is used as timeout duration in the HTTP server.
	DefConnTimeout = 30 * time.Second
)

// Managers are the governance components the API serves.
type Managers struct {
	// Enforcers holds one quota enforcer per isolation policy name.
	Enforcers map[string]*isolation.Enforcer
	// Policies holds the isolation policies by name.
	Policies map[string]isolation.Policy
	// Quotas answers the infrastructure resource checks.
	Quotas isolation.ResourceQuotas
	// Registry carries the metrics exposed on /api/metrics.
	Registry *prometheus.Registry
}

type Server struct {
	listener net.Listener
	wg       waitgroup.WaitGroup
	limit    ratelimit.Limiter
	ready    *atomic.Bool
	lg       *zap.Logger
	mgr      Managers
	digests  *naming.DigestCache
}

func NewServer(cfg config.API, lg *zap.Logger, mgr Managers, ready *atomic.Bool) (*Server, error) {
	h := &Server{
		limit:   ratelimit.New(DefAPILimit),
		ready:   ready,
		lg:      lg,
		mgr:     mgr,
		digests: naming.NewDigestCache(0),
	}

	var err error
	h.listener, err = net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		h.rateLimit,
		h.readyState,
		h.attachLogger,
	)

	h.registerIsolation(engine.Group("/api/isolation"))
	h.registerMetrics(engine.Group("/api/metrics"))
	h.registerDebug(engine.Group("/api/debug"))

	hsrv := http.Server{
		Handler:           engine.Handler(),
		ReadHeaderTimeout: DefConnTimeout,
		IdleTimeout:       DefConnTimeout,
	}

	h.wg.RunWithRecover(func() {
		lg.Info("HTTP closed", zap.Error(hsrv.Serve(h.listener)))
	}, nil, h.lg)

	return h, nil
}

// Addr is the address the server actually listens on.
func (h *Server) Addr() string {
	return h.listener.Addr().String()
}

func (h *Server) rateLimit(c *gin.Context) {
	_ = h.limit.Take()
}

func (h *Server) readyState(c *gin.Context) {
	if !h.ready.Load() {
		c.Abort()
		c.JSON(http.StatusInternalServerError, "service not ready")
	}
}

func (h *Server) attachLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	latency := time.Since(start)

	fields := make([]zapcore.Field, 0, 7)
	fields = append(fields,
		zap.Int("status", c.Writer.Status()),
		zap.String("method", c.Request.Method),
		zap.String("query", c.Request.URL.RawQuery),
		zap.String("ip", c.ClientIP()),
		zap.String("user-agent", c.Request.UserAgent()),
		zap.Duration("latency", latency),
	)

	path := c.Request.URL.Path
	switch {
	case len(c.Errors) > 0:
		errs := make([]error, 0, len(c.Errors))
		for _, e := range c.Errors {
			errs = append(errs, e)
		}
		fields = append(fields, zap.Errors("errs", errs))
		h.lg.Warn(path, fields...)
	default:
		h.lg.Debug(path, fields...)
	}
}

func (h *Server) Close() error {
	err := h.listener.Close()
	h.wg.Wait()
	return err
}
