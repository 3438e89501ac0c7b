// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/markuplabs/markup-agent/pkg/ux"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the agent service is reachable",
	Run:   runHealthCommand,
}

func runHealthCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := newAgentClient(serverURL, apiToken)
	status, err := client.health(ctx)
	if err != nil {
		ux.Error(fmt.Sprintf("Agent unreachable at %s: %v", serverURL, err))
		os.Exit(1)
	}

	ux.Success(fmt.Sprintf("%s is %s", status["service"], status["status"]))
}
