// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/markuplabs/markup-agent/pkg/ux"
	"github.com/markuplabs/markup-agent/services/agent/datatypes"
	"github.com/markuplabs/markup-agent/services/guardrail"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	runPlanPath   string // Path to the ingest request JSON
	runJSONOutput bool   // Output raw JSON
	runTimeout    string // Overall run timeout (e.g. "5m")
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a patch-generation run against the agent",
	Long: `Submits an ingest request to the agent and renders the result.

The plan file is the full request body: intent, issue details and candidate
files. Exit codes: 0 when patches are ready for commit, 2 when the guardrail
rejected the run, 1 on any failure.

Examples:
  agentctl run --plan plan.json
  agentctl run --plan plan.json --json > result.json`,
	Run: runRunCommand,
}

func init() {
	runCmd.Flags().StringVarP(&runPlanPath, "plan", "p", "",
		"Path to the ingest request JSON (required)")
	runCmd.Flags().BoolVar(&runJSONOutput, "json", false,
		"Output raw JSON for scripting")
	runCmd.Flags().StringVar(&runTimeout, "timeout", "10m",
		"Overall run timeout (e.g. 2m, 10m)")
	_ = runCmd.MarkFlagRequired("plan")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runRunCommand(cmd *cobra.Command, args []string) {
	timeout, err := time.ParseDuration(runTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timeout %q: %v\n", runTimeout, err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	body, err := os.ReadFile(runPlanPath)
	if err != nil {
		ux.Error(fmt.Sprintf("Cannot read plan file: %v", err))
		os.Exit(1)
	}

	client := newAgentClient(serverURL, apiToken)
	code, payload, err := client.ingest(ctx, body)
	if err != nil {
		ux.Error(fmt.Sprintf("Run request failed: %v", err))
		os.Exit(1)
	}

	if runJSONOutput {
		os.Stdout.Write(payload)
		fmt.Println()
	}

	switch code {
	case http.StatusOK:
		var resp datatypes.AgentResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			ux.Error(fmt.Sprintf("Malformed response: %v", err))
			os.Exit(1)
		}
		if !runJSONOutput {
			outputRunResult(&resp)
		}
	case http.StatusUnprocessableEntity:
		var rejection struct {
			RunID     string              `json:"run_id"`
			Error     string              `json:"error"`
			Violation guardrail.Violation `json:"violation"`
		}
		if err := json.Unmarshal(payload, &rejection); err != nil {
			ux.Error(fmt.Sprintf("Malformed rejection payload: %v", err))
			os.Exit(1)
		}
		if !runJSONOutput {
			ux.Error(fmt.Sprintf("Run %s rejected: %s in %s",
				rejection.RunID, rejection.Violation.Category, rejection.Violation.Path))
			ux.Muted(rejection.Error)
		}
		os.Exit(2)
	default:
		var failure datatypes.AgentResponse
		if err := json.Unmarshal(payload, &failure); err == nil && failure.Error != "" {
			ux.Error(fmt.Sprintf("Run failed: %s", failure.Error))
		} else {
			ux.Error(fmt.Sprintf("Run failed with status %d", code))
		}
		os.Exit(1)
	}
}

// =============================================================================
// OUTPUT FORMATTING
// =============================================================================

func outputRunResult(resp *datatypes.AgentResponse) {
	ux.Title(fmt.Sprintf("Run %s: %s", resp.RunID, resp.Status))
	if resp.Summary != "" {
		ux.Muted(resp.Summary)
	}

	for _, patch := range resp.Patches {
		fmt.Println()
		ux.Box(patch.Path, ux.RenderDiff(patch.Diff))
	}

	ux.PatchSummary(len(resp.Patches), len(resp.Patches))
}
