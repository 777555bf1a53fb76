// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthInfo is returned by the health endpoint.
type HealthInfo struct {
	Status   string   `json:"status"`
	Policies []string `json:"policies"`
}

func (h *Server) DebugHealth(c *gin.Context) {
	policies := make([]string, 0, len(h.mgr.Policies))
	for name := range h.mgr.Policies {
		policies = append(policies, name)
	}
	c.JSON(http.StatusOK, HealthInfo{
		Status:   "ok",
		Policies: policies,
	})
}

func (h *Server) registerDebug(group *gin.RouterGroup) {
	group.GET("/health", h.DebugHealth)
}
