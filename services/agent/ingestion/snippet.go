// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ingestion

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// maxSnippetLines is the threshold above which file content is trimmed.
	maxSnippetLines = 200
	// trimHeadLines and trimTailLines are what survives a trim.
	trimHeadLines = 100
	trimTailLines = 30
)

// resolveContent reads the file from the local repo when possible, falling
// back to the snippet supplied by the upstream planner. Large files are
// trimmed deterministically to keep prompts token-bounded.
func resolveContent(path, repoPath, fallback string) string {
	if repoPath == "" {
		return trimContent(fallback)
	}

	// Reject paths that would escape the repo root.
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		slog.Warn("Refusing to read path outside the repo", "path", path)
		return trimContent(fallback)
	}

	raw, err := os.ReadFile(filepath.Join(repoPath, clean))
	if err != nil {
		return trimContent(fallback)
	}
	return trimContent(string(raw))
}

// trimContent reduces content above maxSnippetLines to exactly the first
// trimHeadLines lines, one marker line stating the omitted count, and the
// last trimTailLines lines. The transformation is deterministic and
// reproducible, not a heuristic sample.
func trimContent(content string) string {
	lines := strings.Split(content, "\n")
	// A trailing newline yields one empty trailing element, not a line.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) <= maxSnippetLines {
		return content
	}

	omitted := len(lines) - trimHeadLines - trimTailLines
	var sb strings.Builder
	sb.WriteString(strings.Join(lines[:trimHeadLines], "\n"))
	sb.WriteString(fmt.Sprintf("\n// ... [%d lines trimmed] ...\n", omitted))
	sb.WriteString(strings.Join(lines[len(lines)-trimTailLines:], "\n"))
	if strings.HasSuffix(content, "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}
