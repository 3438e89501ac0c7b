// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ingestion filters the upstream planning artifact down to files the
// agent is allowed to touch, and resolves a token-bounded content snippet for
// each of them.
//
// The upstream planner already decided which files matter and why; this
// package only enforces the frontend-only boundary and fetches lean
// snippets. It never reads the content of a rejected file.
package ingestion

import (
	"context"
	"log/slog"
	"strings"

	"github.com/markuplabs/markup-agent/services/agent/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("markup.agent.ingestion")

// allowedPrefixes are the path prefixes that are let through to the model.
var allowedPrefixes = []string{
	"src/components", "src/pages", "src/styles", "src/layouts",
	"src/ui", "src/hooks", "public/", "assets/", "styles/",
	"components/", "pages/",
}

// blockedPrefixes are always rejected, even when the upstream planner
// proposes them. Block takes precedence over everything.
var blockedPrefixes = []string{
	"src/api", "src/server", "src/db", "src/backend",
	"migrations/", "server/", "backend/", "config/", "secrets/",
	".env", "Dockerfile", "docker-compose", "kubernetes/", "terraform/",
}

// frontendExtensions admit root-level frontend files that match neither
// prefix list.
var frontendExtensions = []string{
	".tsx", ".ts", ".jsx", ".js", ".css", ".scss", ".html", ".vue", ".svelte",
}

// isFrontend reports whether the path is safe for frontend editing.
// Precedence: block list, then allow list, then extension. Comparison is
// case-insensitive throughout.
func isFrontend(path string) bool {
	p := strings.ToLower(path)
	for _, blocked := range blockedPrefixes {
		if strings.HasPrefix(p, strings.ToLower(blocked)) {
			return false
		}
	}
	for _, allowed := range allowedPrefixes {
		if strings.HasPrefix(p, strings.ToLower(allowed)) {
			return true
		}
	}
	for _, ext := range frontendExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// Classify splits the candidate files into in-bounds classified files and
// blocked paths. In-bounds files get their content resolved from the local
// repo when available, falling back to the candidate snippet; blocked files
// are reported by path only so the caller can audit them without leaking
// content.
func Classify(ctx context.Context, files []datatypes.CandidateFile, repoPath string) ([]datatypes.ClassifiedFile, []string) {
	_, span := tracer.Start(ctx, "ingestion.Classify")
	defer span.End()

	var inBounds []datatypes.ClassifiedFile
	var blocked []string

	for _, file := range files {
		if !isFrontend(file.Path) {
			slog.Warn("Blocked non-frontend file", "path", file.Path)
			blocked = append(blocked, file.Path)
			continue
		}
		candidate := file
		if candidate.ChangeType == "" {
			candidate.ChangeType = datatypes.ChangeTypeModify
		}
		inBounds = append(inBounds, datatypes.ClassifiedFile{
			CandidateFile: candidate,
			Content:       resolveContent(file.Path, repoPath, file.Snippet),
			InBounds:      true,
		})
	}

	span.SetAttributes(
		attribute.Int("ingestion.in_bounds", len(inBounds)),
		attribute.Int("ingestion.blocked", len(blocked)),
	)
	if len(blocked) > 0 {
		slog.Warn("Skipped non-frontend files", "count", len(blocked), "paths", blocked)
	}
	return inBounds, blocked
}
