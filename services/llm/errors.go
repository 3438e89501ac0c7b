// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"
	"strings"
)

// ExhaustedError is returned when every retry attempt has failed. It carries
// the last underlying provider error and is fatal for the pipeline run.
type ExhaustedError struct {
	Backend  string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Backend, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// rateLimitMarkers are the substrings that identify a quota or rate-limit
// response in provider error text. Matching is case-insensitive.
var rateLimitMarkers = []string{"quota", "rate", "429"}

// isRateLimitSignal reports whether the error looks like a quota or
// rate-limit rejection from the provider.
func isRateLimitSignal(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
