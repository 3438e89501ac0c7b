// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/markuplabs/markup-agent/services/agent/handlers"
	"github.com/markuplabs/markup-agent/services/agent/middleware"
	"github.com/markuplabs/markup-agent/services/agent/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *gin.Engine, runner *pipeline.Runner, apiToken string) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.TokenAuth(apiToken))
	{
		v1.POST("/ingest", handlers.HandleIngest(runner))
	}
}
