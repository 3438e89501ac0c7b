// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package patcher

import (
	"log/slog"

	"github.com/pmezard/go-difflib/difflib"
	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// unifiedDiff renders a conventional unified diff between the original and
// patched content, labeled a/<path> and b/<path>. The diff exists purely for
// human review; patch correctness never depends on it.
func unifiedDiff(original, patched, path string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(patched),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
	if err != nil {
		slog.Warn("Failed to render the review diff", "path", path, "error", err)
		return ""
	}
	return text
}

// diffStat parses the rendered diff back into added/deleted line counts,
// for logs and metrics only.
func diffStat(diffText string) (added, deleted int, ok bool) {
	if diffText == "" {
		return 0, 0, false
	}
	fd, err := sgdiff.ParseFileDiff([]byte(diffText))
	if err != nil {
		return 0, 0, false
	}
	stat := fd.Stat()
	return int(stat.Added + stat.Changed), int(stat.Deleted + stat.Changed), true
}
