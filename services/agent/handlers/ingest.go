// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the HTTP handlers for the agent service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/markuplabs/markup-agent/services/agent/datatypes"
	"github.com/markuplabs/markup-agent/services/agent/pipeline"
	"github.com/markuplabs/markup-agent/services/guardrail"
)

// HandleIngest runs one patch-generation pipeline per request.
//
// Status mapping:
//   - 200: patches generated and validated, ready for commit
//   - 400: malformed or invalid request body
//   - 422: the generated patches were rejected by the guardrail
//   - 500: a pipeline stage failed; the body carries the failed run
func HandleIngest(runner *pipeline.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Error("Failed to parse the ingest request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Warn("Rejected ingest request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.RunID == "" {
			req.RunID = uuid.NewString()
		}

		resp, err := runner.Run(c.Request.Context(), req)
		if err != nil {
			var verr *guardrail.ViolationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"run_id":    resp.RunID,
					"status":    resp.Status,
					"error":     resp.Error,
					"violation": verr.Violation,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
