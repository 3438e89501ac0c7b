// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
)

// Change types for instructions and patches.
const (
	ChangeTypeModify = "modify"
	ChangeTypeCreate = "create"
)

// Terminal statuses of a pipeline run.
const (
	StatusReadyForCommit = "ready_for_commit"
	StatusRejected       = "rejected"
	StatusFailed         = "failed"
)

// ClassifiedFile is a candidate file that passed the frontend-only boundary,
// with its content resolved (read from the repo or taken from the snippet).
// Built once per run, never mutated afterwards.
type ClassifiedFile struct {
	CandidateFile
	// Content is the trimmed file body handed to the model.
	Content string `json:"content"`
	// InBounds is the boundary verdict. Always true for files emitted by
	// the ingestion filter; out-of-bounds files are reported by path only.
	InBounds bool `json:"in_bounds"`
}

// ChangeInstruction is one planned per-file change, produced by the planner
// model call and consumed by the patcher.
type ChangeInstruction struct {
	Path       string `json:"path"`
	Target     string `json:"target"`
	Change     string `json:"change"`
	ChangeType string `json:"change_type"`
	// Snippet is the context the patcher should work from.
	Snippet string `json:"snippet"`
}

// PlanResult is the structured payload the planner model must return.
type PlanResult struct {
	Summary string              `json:"summary"`
	Patches []ChangeInstruction `json:"patches"`
}

// Validate rejects payloads that parsed as JSON but do not conform to the
// plan shape. The provider client treats a failure here as a transient
// error and retries the call.
func (p *PlanResult) Validate() error {
	if len(p.Patches) == 0 {
		return fmt.Errorf("plan contains no patches")
	}
	seen := make(map[string]struct{}, len(p.Patches))
	for i, instr := range p.Patches {
		if instr.Path == "" {
			return fmt.Errorf("plan patch %d has no path", i)
		}
		if instr.Change == "" {
			return fmt.Errorf("plan patch for %q has no change description", instr.Path)
		}
		switch instr.ChangeType {
		case ChangeTypeModify, ChangeTypeCreate:
		case "":
			p.Patches[i].ChangeType = ChangeTypeModify
		default:
			return fmt.Errorf("plan patch for %q has invalid change_type %q", instr.Path, instr.ChangeType)
		}
		if _, dup := seen[instr.Path]; dup {
			return fmt.Errorf("plan contains duplicate path %q", instr.Path)
		}
		seen[instr.Path] = struct{}{}
	}
	return nil
}
