// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Patch is a complete replacement file body for one planned change, ready
// for the caller to commit. Produced by the patcher, consumed (and possibly
// rejected as a batch) by the guardrail validator.
type Patch struct {
	Path string `json:"path"`
	// OriginalContent is the best-available previous content. Empty for
	// created files.
	OriginalContent string `json:"original_content,omitempty"`
	// PatchedContent is the full replacement body. Always present.
	PatchedContent string `json:"patched_content"`
	// Diff is a unified diff between original and patched content,
	// derived locally for human review. Display only; nothing parses it
	// back on the request path.
	Diff       string `json:"diff,omitempty"`
	ChangeType string `json:"change_type"`
}
