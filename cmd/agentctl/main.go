// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// agentctl is the command-line client for the MarkUp agent service.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/markuplabs/markup-agent/pkg/logging"
	"github.com/markuplabs/markup-agent/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiToken  string
)

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "Client for the MarkUp patch-generation agent",
	Long: `agentctl talks to a running markup-agent service.

Examples:
  agentctl health                      # Check the service is up
  agentctl run --plan plan.json       # Execute a patch-generation run
  agentctl run --plan plan.json --json # Raw JSON output for scripting`,
}

func main() {
	ux.InitMode()

	logConfig := logging.FromEnv("agentctl")
	if os.Getenv("MARKUP_LOG_LEVEL") == "" {
		// Structured logs would drown the styled output; keep them quiet
		// unless explicitly requested.
		logConfig.Level = logging.LevelWarn
	}
	logger := logging.New(logConfig)
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(),
		"Base URL of the agent service")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("AGENT_API_TOKEN"),
		"Bearer token for the agent API")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(runCmd)
}

func defaultServerURL() string {
	if url := os.Getenv("MARKUP_AGENT_URL"); url != "" {
		return url
	}
	return "http://localhost:12310"
}
