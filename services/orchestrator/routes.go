// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all tutor orchestrator routes with the router.
//
// Description:
//
//	Registers all /v1/tutor/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/tutor/orchestrate - Run the full pipeline for a student message
//	POST /v1/tutor/validate - Resolve candidate parameters without invoking a tool
//	GET  /v1/tutor/tools - List the tool catalog
//
// Health Endpoints:
//
//	GET  /v1/tutor/health - Health check
//	GET  /v1/tutor/ready - Readiness check
//
// Example:
//
//	pipeline, _ := orchestrator.NewPipeline(ex, registry, tools, profileOpts)
//	handlers := orchestrator.NewHandlers(pipeline, registry)
//
//	v1 := router.Group("/v1")
//	orchestrator.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	tutor := rg.Group("/tutor")
	{
		// Pipeline
		tutor.POST("/orchestrate", handlers.HandleOrchestrate)
		tutor.POST("/validate", handlers.HandleValidate)

		// Tool discovery
		tutor.GET("/tools", handlers.HandleTools)

		// Health checks
		tutor.GET("/health", handlers.HandleHealth)
		tutor.GET("/ready", handlers.HandleReady)
	}
}
