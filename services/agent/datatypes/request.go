// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the agent service.
//
// This file contains the request and response types for the ingest endpoint.
// The pipeline-internal types (classified files, plans, patches) live in
// plan.go and patch.go.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Size Limits
// =============================================================================

const (
	// MaxIntentBytes caps the natural-language intent. Oversized intents
	// are rejected at the boundary to bound prompt growth.
	MaxIntentBytes = 32 * 1024 // 32KB

	// MaxCandidateFiles caps the number of files the upstream planner may
	// propose in one run.
	MaxCandidateFiles = 100

	// MaxSnippetBytes caps a single pre-extracted snippet.
	MaxSnippetBytes = 256 * 1024 // 256KB
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// ingestValidate is the validator instance for agent datatypes.
var ingestValidate *validator.Validate

func init() {
	ingestValidate = validator.New()
	_ = ingestValidate.RegisterValidation("intentbytes", validateIntentBytes)
	_ = ingestValidate.RegisterValidation("snippetbytes", validateSnippetBytes)
}

// validateIntentBytes checks byte length (not rune count) so large payloads
// cannot exhaust memory regardless of encoding.
func validateIntentBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxIntentBytes
}

func validateSnippetBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxSnippetBytes
}

// =============================================================================
// Upstream Plan Artifact
// =============================================================================

// CandidateFile is one file the upstream issue planner proposed for change.
// Immutable once received.
type CandidateFile struct {
	// Path is repo-relative, e.g. "src/components/Button.tsx".
	Path string `json:"path" validate:"required"`
	// Reason is why the upstream planner thinks this file needs changing.
	Reason string `json:"reason"`
	// Snippet is an optional pre-extracted excerpt of the file.
	Snippet string `json:"snippet,omitempty" validate:"snippetbytes"`
	// ChangeType is "modify" or "create". Defaults to "modify".
	ChangeType string `json:"change_type,omitempty" validate:"omitempty,oneof=modify create"`
}

// PlanInput is the full structured artifact from the upstream issue planner.
type PlanInput struct {
	IssueTitle       string          `json:"issue_title" validate:"required"`
	IssueDescription string          `json:"issue_description"`
	Files            []CandidateFile `json:"files" validate:"required,min=1,dive"`
	// EstimatedScope is "small", "medium" or "large".
	EstimatedScope string `json:"estimated_scope,omitempty" validate:"omitempty,oneof=small medium large"`
}

// =============================================================================
// Ingest Request / Response
// =============================================================================

// IngestRequest is the body of POST /v1/ingest.
type IngestRequest struct {
	// RunID correlates this run across systems. Defaulted to a UUID by the
	// handler when absent.
	RunID string `json:"run_id"`
	// Intent is the original plain-English change request.
	Intent string `json:"intent" validate:"required,intentbytes"`
	// Plan is the upstream planning artifact to vet and execute.
	Plan PlanInput `json:"plan" validate:"required"`
	// RepoPath optionally points at a local clone used to resolve file
	// contents. When empty, candidate snippets are used instead.
	RepoPath string `json:"repo_path,omitempty"`
}

// Validate applies the struct validation rules.
func (r *IngestRequest) Validate() error {
	return ingestValidate.Struct(r)
}

// AgentResponse is the success body of POST /v1/ingest.
type AgentResponse struct {
	RunID   string  `json:"run_id"`
	Patches []Patch `json:"patches"`
	Summary string  `json:"summary"`
	Status  string  `json:"status"`
	Error   string  `json:"error,omitempty"`
}
