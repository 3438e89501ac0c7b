// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy configures the retry loop of the ResilientClient.
//
// Backoff is linear: the wait after attempt n is BaseDelay * n. The policy
// is a plain value so tests can substitute a recording Sleep function and
// run without real delays.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts. Default: 3.
	MaxAttempts int

	// BaseDelay is multiplied by the attempt number to get the wait
	// between attempts. Default: 2s.
	BaseDelay time.Duration

	// Sleep waits for the given duration or until the context is done.
	// Nil means the timer-based default.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the production retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
	}
}

// Validate checks the policy configuration.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: MaxAttempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("retry policy: BaseDelay must be >= 0, got %s", p.BaseDelay)
	}
	return nil
}

// Backoff returns the wait before the attempt following attempt n (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// wait sleeps between attempts, honoring context cancellation.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	d := p.Backoff(attempt)
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
