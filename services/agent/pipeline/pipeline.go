// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline sequences a patch-generation run end to end:
// ingestion, planning, patching, guardrail validation.
//
// Stages run strictly in order and the first stage failure terminates the
// run. The guardrail is the last gate before patches leave the process:
// a violation rejects the whole batch, never a subset.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/markuplabs/markup-agent/services/agent/datatypes"
	"github.com/markuplabs/markup-agent/services/agent/ingestion"
	"github.com/markuplabs/markup-agent/services/agent/observability"
	"github.com/markuplabs/markup-agent/services/agent/patcher"
	"github.com/markuplabs/markup-agent/services/agent/planner"
	"github.com/markuplabs/markup-agent/services/guardrail"
	"github.com/markuplabs/markup-agent/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("markup.agent.pipeline")

// Runner wires the pipeline stages to their dependencies. Stateless across
// runs: a single Runner serves concurrent requests.
type Runner struct {
	client  *llm.ResilientClient
	guard   *guardrail.Engine
	metrics *observability.PipelineMetrics
}

// NewRunner builds a Runner. metrics may be nil; recording is then skipped.
func NewRunner(client *llm.ResilientClient, guard *guardrail.Engine,
	metrics *observability.PipelineMetrics) *Runner {
	return &Runner{client: client, guard: guard, metrics: metrics}
}

// Run executes one patch-generation run.
//
// The returned response always carries a terminal status. When err is
// non-nil it classifies the outcome: a *guardrail.ViolationError means the
// generated patches breached the output guardrail (status "rejected");
// anything else is a stage failure (status "failed"). Status
// "ready_for_commit" comes with a nil error.
func (r *Runner) Run(ctx context.Context, req datatypes.IngestRequest) (*datatypes.AgentResponse, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", req.RunID),
		attribute.Int("run.candidate_files", len(req.Plan.Files)),
	)

	r.metrics.RunStarted()
	defer r.metrics.RunEnded()

	slog.Info("Run started", "run_id", req.RunID,
		"issue", req.Plan.IssueTitle, "candidate_files", len(req.Plan.Files))

	// Stage 1: boundary filter + content resolution.
	start := time.Now()
	classified, blocked := ingestion.Classify(ctx, req.Plan.Files, req.RepoPath)
	r.metrics.ObserveStage(observability.StageIngestion, time.Since(start).Seconds(), len(classified) > 0)
	if len(classified) == 0 {
		err := fmt.Errorf("no in-bounds frontend files among %d candidates", len(req.Plan.Files))
		return r.fail(span, req.RunID, err)
	}
	slog.Info("Ingestion complete", "run_id", req.RunID,
		"in_bounds", len(classified), "blocked", len(blocked))

	// Stage 2: one structured planning call.
	start = time.Now()
	plan, err := planner.Plan(ctx, r.client, classified, req.Intent, req.Plan)
	r.metrics.ObserveStage(observability.StagePlanning, time.Since(start).Seconds(), err == nil)
	if err != nil {
		return r.fail(span, req.RunID, fmt.Errorf("planning: %w", err))
	}
	slog.Info("Planning complete", "run_id", req.RunID, "planned_files", len(plan.Patches))

	// Stage 3: one generation call per planned file.
	start = time.Now()
	patches, err := patcher.Generate(ctx, r.client, plan)
	r.metrics.ObserveStage(observability.StagePatching, time.Since(start).Seconds(), err == nil)
	if err != nil {
		return r.fail(span, req.RunID, err)
	}
	slog.Info("Patching complete", "run_id", req.RunID, "patches", len(patches))

	// Stage 4: fail-closed output guardrail over the whole batch.
	start = time.Now()
	batch := make([]guardrail.File, len(patches))
	for i, p := range patches {
		batch[i] = guardrail.File{Path: p.Path, Content: p.PatchedContent}
	}
	verdict := r.guard.ValidateBatch(batch)
	r.metrics.ObserveStage(observability.StageValidation, time.Since(start).Seconds(), verdict.OK)
	if !verdict.OK {
		verr := &guardrail.ViolationError{Violation: *verdict.Violation}
		r.metrics.RecordViolation(verdict.Violation.Category)
		r.metrics.RecordRun(datatypes.StatusRejected)
		span.RecordError(verr)
		span.SetStatus(codes.Error, verr.Error())
		slog.Warn("Run rejected by guardrail", "run_id", req.RunID,
			"path", verdict.Violation.Path, "category", verdict.Violation.Category)
		return &datatypes.AgentResponse{
			RunID:  req.RunID,
			Status: datatypes.StatusRejected,
			Error:  verr.Error(),
		}, verr
	}

	r.metrics.RecordRun(datatypes.StatusReadyForCommit)
	span.SetAttributes(attribute.Int("run.patches", len(patches)))
	slog.Info("Run complete", "run_id", req.RunID,
		"status", datatypes.StatusReadyForCommit, "patches", len(patches))
	return &datatypes.AgentResponse{
		RunID:   req.RunID,
		Patches: patches,
		Summary: plan.Summary,
		Status:  datatypes.StatusReadyForCommit,
	}, nil
}

// fail records a stage failure and shapes the terminal response for it.
func (r *Runner) fail(span trace.Span, runID string, err error) (*datatypes.AgentResponse, error) {
	r.metrics.RecordRun(datatypes.StatusFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.Error("Run failed", "run_id", runID, "error", err)
	return &datatypes.AgentResponse{
		RunID:  runID,
		Status: datatypes.StatusFailed,
		Error:  err.Error(),
	}, err
}
