// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Server) registerMetrics(group *gin.RouterGroup) {
	handler := promhttp.HandlerFor(h.mgr.Registry, promhttp.HandlerOpts{})
	group.GET("/", gin.WrapH(handler))
}
