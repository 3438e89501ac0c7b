// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package planner turns the filtered file list and the original intent into
// a structured per-file change plan with a single model call.
//
// Token strategy: the prompt carries a short content prefix per file, never
// whole files, so prompt size is capped independent of file count.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markuplabs/markup-agent/services/agent/datatypes"
	"github.com/markuplabs/markup-agent/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("markup.agent.planner")

// contentPrefixChars caps how much of each file's content enters the prompt.
const contentPrefixChars = 300

const systemPrompt = `You are a frontend code planning agent for MarkUp.
Given an issue plan and a change request, produce a precise patch plan.

Rules:
- Only plan changes to frontend files (React, Vue, HTML, CSS, Tailwind)
- Never plan backend, API, database, or config changes
- Be specific: name the component or function to change
- Output valid JSON only`

const taskTemplate = `Change request: %s

Issue: %s
Description: %s

Files to change:
%s

Return JSON in this exact shape:
{
  "summary": "one sentence describing the overall change",
  "patches": [
    {
      "path": "src/components/Button.tsx",
      "target": "the Button component className prop",
      "change": "update background from blue-500 to indigo-600",
      "change_type": "modify",
      "snippet": "<paste relevant snippet here for the patcher>"
    }
  ]
}`

// Plan issues one structured model call and returns the vetted plan.
//
// Instructions whose paths were never classified in-bounds are dropped with
// a warning: the plan must stay a subset of what ingestion admitted, no
// matter what the model answers.
func Plan(ctx context.Context, client *llm.ResilientClient, files []datatypes.ClassifiedFile,
	intent string, issue datatypes.PlanInput) (*datatypes.PlanResult, error) {

	ctx, span := tracer.Start(ctx, "planner.Plan")
	defer span.End()
	span.SetAttributes(attribute.Int("planner.files", len(files)))

	taskPrompt := fmt.Sprintf(taskTemplate,
		intent, issue.IssueTitle, issue.IssueDescription, filesSummary(files))

	slog.Info("Sending plan prompt to the model", "files", len(files))
	var plan datatypes.PlanResult
	if err := client.CallStructured(ctx, systemPrompt, taskPrompt, &plan); err != nil {
		return nil, err
	}

	resolved := make(map[string]string, len(files))
	for _, f := range files {
		resolved[f.Path] = f.Content
	}
	kept := plan.Patches[:0]
	for _, instr := range plan.Patches {
		content, ok := resolved[instr.Path]
		if !ok {
			slog.Warn("Dropping planned change for a path outside the classified set", "path", instr.Path)
			continue
		}
		// The patcher works from the resolved file content, never from
		// whatever the model echoed back.
		if content != "" {
			instr.Snippet = content
		}
		kept = append(kept, instr)
	}
	plan.Patches = kept
	if len(plan.Patches) == 0 {
		return nil, fmt.Errorf("planner produced no usable changes")
	}

	slog.Info("Plan received", "summary", plan.Summary, "patches", len(plan.Patches))
	return &plan, nil
}

// filesSummary renders the lean per-file block of the planning prompt.
func filesSummary(files []datatypes.ClassifiedFile) string {
	var sb strings.Builder
	for _, f := range files {
		prefix := f.Content
		if len(prefix) > contentPrefixChars {
			prefix = prefix[:contentPrefixChars]
		}
		fmt.Fprintf(&sb, "- %s: %s\n  snippet: %s\n", f.Path, f.Reason, prefix)
	}
	return sb.String()
}
