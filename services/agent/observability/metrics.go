// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the patch pipeline.
//
// # Description
//
// Metrics cover the full run lifecycle:
//   - Run counters by terminal status (ready_for_commit, rejected, failed)
//   - Per-stage duration histograms (ingestion, planning, patching, validation)
//   - Guardrail violation counters by category
//   - Patch size counters (lines added/deleted across generated diffs)
//   - Active run gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Initialize once at startup
// with InitMetrics(); recording helpers are no-ops on a nil receiver, so
// code paths exercised in tests never require registration.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "markup"

const agentSubsystem = "agent"

// Stage labels a pipeline stage for metrics.
type Stage string

const (
	StageIngestion  Stage = "ingestion"
	StagePlanning   Stage = "planning"
	StagePatching   Stage = "patching"
	StageValidation Stage = "validation"
)

// PipelineMetrics holds all Prometheus metrics for patch-generation runs.
//
// All operations are thread-safe via Prometheus's internal locking.
type PipelineMetrics struct {
	// RunsTotal counts completed runs by terminal status.
	// Labels: status (ready_for_commit, rejected, failed)
	RunsTotal *prometheus.CounterVec

	// StageDurationSeconds measures per-stage wall time.
	// Labels: stage (ingestion, planning, patching, validation), status (success, error)
	StageDurationSeconds *prometheus.HistogramVec

	// GuardrailViolationsTotal counts rejected runs by violation category.
	// Labels: category (blocked file type, environment variable access, ...)
	GuardrailViolationsTotal *prometheus.CounterVec

	// PatchLinesTotal counts diff lines across generated patches.
	// Labels: direction (added, deleted)
	PatchLinesTotal *prometheus.CounterVec

	// ActiveRuns tracks runs currently in flight.
	ActiveRuns prometheus.Gauge
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all pipeline metrics on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "runs_total",
				Help:      "Total patch-generation runs by terminal status",
			},
			[]string{"status"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage", "status"},
		),

		GuardrailViolationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "guardrail_violations_total",
				Help:      "Runs rejected by the output guardrail, by violation category",
			},
			[]string{"category"},
		),

		PatchLinesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "patch_lines_total",
				Help:      "Diff lines across generated patches by direction",
			},
			[]string{"direction"},
		),

		ActiveRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "active_runs",
				Help:      "Patch-generation runs currently in flight",
			},
		),
	}

	return DefaultMetrics
}

// RecordRun records a completed run with its terminal status.
func (m *PipelineMetrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records one stage's wall time.
func (m *PipelineMetrics) ObserveStage(stage Stage, seconds float64, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.StageDurationSeconds.WithLabelValues(string(stage), status).Observe(seconds)
}

// RecordViolation records a guardrail rejection by category.
func (m *PipelineMetrics) RecordViolation(category string) {
	if m == nil {
		return
	}
	m.GuardrailViolationsTotal.WithLabelValues(category).Inc()
}

// RecordPatchLines records diff line counts for one generated patch.
func (m *PipelineMetrics) RecordPatchLines(added, deleted int) {
	if m == nil {
		return
	}
	m.PatchLinesTotal.WithLabelValues("added").Add(float64(added))
	m.PatchLinesTotal.WithLabelValues("deleted").Add(float64(deleted))
}

// RunStarted increments the active run gauge.
func (m *PipelineMetrics) RunStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

// RunEnded decrements the active run gauge.
func (m *PipelineMetrics) RunEnded() {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
}
