// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package patcher generates the replacement file bodies for a plan.
//
// One model call per file keeps each prompt small and makes failure
// attribution unambiguous: when a call exhausts its retries the whole stage
// aborts and the error names exactly one file. Files are processed serially,
// in plan order, to keep provider-side rate consumption predictable.
package patcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markuplabs/markup-agent/services/agent/datatypes"
	"github.com/markuplabs/markup-agent/services/agent/observability"
	"github.com/markuplabs/markup-agent/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("markup.agent.patcher")

const systemPrompt = `You are a frontend code patch generator for MarkUp.
You receive a specific change instruction and the current file content.
Return ONLY the complete updated file — no markdown, no explanation.

Rules:
- Only apply the described change; leave everything else untouched
- Never add backend logic, API calls, or server-side code
- Never hardcode secrets or environment variables
- Return the full file content`

const taskTemplate = `File: %s
Target: %s
Change: %s

Current content:
` + "```\n%s\n```" + `

Return the complete updated file content.`

// fallbackSnippet is used when the plan carries no content for a file.
const fallbackSnippet = "File content not available — apply minimal change"

// Generate produces one Patch per ChangeInstruction, in plan order.
// The first file whose call fails aborts the stage; there is no
// partial-success mode.
func Generate(ctx context.Context, client *llm.ResilientClient,
	plan *datatypes.PlanResult) ([]datatypes.Patch, error) {

	ctx, span := tracer.Start(ctx, "patcher.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("patcher.planned", len(plan.Patches)))

	patches := make([]datatypes.Patch, 0, len(plan.Patches))
	for _, instr := range plan.Patches {
		patch, err := generateOne(ctx, client, instr)
		if err != nil {
			return nil, fmt.Errorf("patching %s: %w", instr.Path, err)
		}
		patches = append(patches, patch)
	}

	slog.Info("Generated patches", "count", len(patches))
	return patches, nil
}

func generateOne(ctx context.Context, client *llm.ResilientClient,
	instr datatypes.ChangeInstruction) (datatypes.Patch, error) {

	slog.Info("Generating patch", "path", instr.Path)

	snippet := instr.Snippet
	if snippet == "" {
		snippet = fallbackSnippet
	}
	taskPrompt := fmt.Sprintf(taskTemplate, instr.Path, instr.Target, instr.Change, snippet)

	raw, err := client.Call(ctx, systemPrompt, taskPrompt)
	if err != nil {
		return datatypes.Patch{}, err
	}
	// Providers wrap file bodies in fences often enough that stripping is
	// mandatory despite the no-markdown instruction.
	patched := llm.StripCodeFences(raw)

	diffText := unifiedDiff(instr.Snippet, patched, instr.Path)
	if added, deleted, ok := diffStat(diffText); ok {
		slog.Info("Patch generated", "path", instr.Path, "added", added, "deleted", deleted)
		observability.DefaultMetrics.RecordPatchLines(added, deleted)
	}

	return datatypes.Patch{
		Path:            instr.Path,
		OriginalContent: instr.Snippet,
		PatchedContent:  patched,
		Diff:            diffText,
		ChangeType:      instr.ChangeType,
	}, nil
}
