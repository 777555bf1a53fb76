// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sqlfence/sqlfence/lib/util/errors"
	"github.com/sqlfence/sqlfence/pkg/isolation"
	"github.com/sqlfence/sqlfence/pkg/metrics"
	"github.com/sqlfence/sqlfence/pkg/naming"
)

// QueryCheckReq is submitted by the plugin-request router before it forwards a
// query to the database engine. The router is responsible for a realistic row
// estimate; there is no default. Plugin identifies the caller so schema
// references can be resolved against its own schema; without it every
// qualified schema is treated as foreign.
type QueryCheckReq struct {
	Query         string  `json:"query"`
	EstimatedRows float64 `json:"estimated_rows"`
	Policy        string  `json:"policy,omitempty"`
	Plugin        string  `json:"plugin,omitempty"`
}

// QueryCheckResp is returned for an accepted query. TimeoutMS must be applied
// by the caller as the statement timeout on the executing engine. Digest is a
// stable key for the query text, usable for verdict caching on the router side.
type QueryCheckResp struct {
	Complexity int    `json:"complexity"`
	Operation  string `json:"operation"`
	Digest     uint32 `json:"digest"`
	TimeoutMS  int64  `json:"timeout_ms"`
}

// ResourceCheckReq carries the plugin's current infrastructure counters.
type ResourceCheckReq struct {
	Connections  int   `json:"connections"`
	StorageBytes int64 `json:"storage_bytes"`
	Tables       int   `json:"tables"`
	TableRows    int64 `json:"table_rows"`
	TableIndexes int   `json:"table_indexes"`
}

// ResourceCheckResp answers each ceiling check independently.
type ResourceCheckResp struct {
	Connections  bool `json:"connections"`
	StorageBytes bool `json:"storage_bytes"`
	Tables       bool `json:"tables"`
	TableRows    bool `json:"table_rows"`
	TableIndexes bool `json:"table_indexes"`
}

func (h *Server) QueryCheck(c *gin.Context) {
	var req QueryCheckReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policyName := req.Policy
	if policyName == "" {
		policyName = isolation.DefaultPluginPolicy().Name
	}
	enforcer, ok := h.mgr.Enforcers[policyName]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown policy " + policyName})
		return
	}
	policy := h.mgr.Policies[policyName]

	score, err := enforcer.CheckQuotas(req.Query, req.EstimatedRows)
	if err != nil {
		c.Errors = append(c.Errors, &gin.Error{Err: err, Type: gin.ErrorTypePrivate})
		switch {
		case errors.Is(err, isolation.ErrInvalidArgument):
			metrics.QueryCheckCounter.WithLabelValues(metrics.LblVerdictInvalidArgument).Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, isolation.ErrComplexityExceeded):
			metrics.QueryCheckCounter.WithLabelValues(metrics.LblVerdictComplexityExceeded).Inc()
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, isolation.ErrRowsExceeded):
			metrics.QueryCheckCounter.WithLabelValues(metrics.LblVerdictRowsExceeded).Inc()
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	// A classification failure leaves op at OpUnknown, which no policy allows:
	// the complexity fallback may be fail-open, the operation gate never is.
	op, schemas, err := isolation.InspectQuery(req.Query)
	if err != nil {
		c.Errors = append(c.Errors, &gin.Error{Err: err, Type: gin.ErrorTypePrivate})
	}
	if !policy.Allows(op) {
		metrics.QueryCheckCounter.WithLabelValues(metrics.LblVerdictNotAllowed).Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": "operation " + op.String() + " not allowed by policy " + policy.Name})
		return
	}

	ownSchema := ""
	if req.Plugin != "" {
		ownSchema = naming.SchemaName(req.Plugin)
	}
	for _, schema := range schemas {
		if !policy.SchemaAllowed(schema, ownSchema) {
			metrics.QueryCheckCounter.WithLabelValues(metrics.LblVerdictSchemaDenied).Inc()
			c.JSON(http.StatusForbidden, gin.H{"error": "schema " + schema + " not allowed by policy " + policy.Name})
			return
		}
	}

	metrics.QueryCheckCounter.WithLabelValues(metrics.LblVerdictAllowed).Inc()
	metrics.QueryComplexityHistogram.Observe(float64(score))
	c.JSON(http.StatusOK, QueryCheckResp{
		Complexity: score,
		Operation:  op.String(),
		Digest:     h.digests.Digest(req.Query),
		TimeoutMS:  enforcer.ExecutionTimeout().Milliseconds(),
	})
}

func (h *Server) ResourceCheck(c *gin.Context) {
	var req ResourceCheckReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := ResourceCheckResp{
		Connections:  h.mgr.Quotas.WithinConnectionLimit(req.Connections),
		StorageBytes: h.mgr.Quotas.WithinStorageLimit(req.StorageBytes),
		Tables:       h.mgr.Quotas.WithinTableLimit(req.Tables),
		TableRows:    h.mgr.Quotas.WithinRowLimit(req.TableRows),
		TableIndexes: h.mgr.Quotas.WithinIndexLimit(req.TableIndexes),
	}
	for resource, within := range map[string]bool{
		"connections":   resp.Connections,
		"storage_bytes": resp.StorageBytes,
		"tables":        resp.Tables,
		"table_rows":    resp.TableRows,
		"table_indexes": resp.TableIndexes,
	} {
		verdict := metrics.LblVerdictAllowed
		if !within {
			verdict = metrics.LblVerdictExceeded
		}
		metrics.ResourceCheckCounter.WithLabelValues(resource, verdict).Inc()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Server) registerIsolation(group *gin.RouterGroup) {
	group.POST("/query", h.QueryCheck)
	group.POST("/resource", h.ResourceCheck)
}
