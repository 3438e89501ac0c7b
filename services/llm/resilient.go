// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var resilientTracer = otel.Tracer("markup.llm.resilient")

// jsonOnlyInstruction is appended to the task prompt on structured calls.
const jsonOnlyInstruction = "\n\nReturn valid JSON only — no markdown, no explanation."

// StructuredValidator lets a decode target reject a payload that parsed as
// JSON but does not conform to the expected shape. A validation failure is
// treated like a parse failure: transient, and retried.
type StructuredValidator interface {
	Validate() error
}

// ResilientClient wraps a Backend with retry, credential rotation, and
// structured-output handling.
//
// Every attempt draws the next key from the shared pool, so a rate-limited
// key is naturally rotated away from on the following attempt. Transient
// errors (malformed JSON, rate limits, generic provider failures) never
// escape this type; after MaxAttempts they are folded into an
// *ExhaustedError.
type ResilientClient struct {
	backend Backend
	pool    *CredentialPool
	policy  RetryPolicy
	limiter *rate.Limiter
}

// Option configures a ResilientClient.
type Option func(*ResilientClient)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *ResilientClient) { c.policy = p }
}

// WithRateLimit throttles provider calls to r requests per second with the
// given burst. Keeps provider-side rate consumption predictable when many
// runs share the process.
func WithRateLimit(r float64, burst int) Option {
	return func(c *ResilientClient) { c.limiter = rate.NewLimiter(rate.Limit(r), burst) }
}

// NewResilientClient builds a client over the given backend and key pool.
func NewResilientClient(backend Backend, pool *CredentialPool, opts ...Option) *ResilientClient {
	c := &ResilientClient{
		backend: backend,
		pool:    pool,
		policy:  DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends a system/task prompt pair and returns the raw response text.
func (c *ResilientClient) Call(ctx context.Context, systemPrompt, taskPrompt string) (string, error) {
	return c.call(ctx, systemPrompt, taskPrompt, nil)
}

// CallStructured sends a system/task prompt pair demanding a bare JSON
// payload and decodes it into out. Code fences around the payload are
// stripped before parsing; a payload that fails to parse (or fails out's
// Validate hook) triggers a retry like any transient provider error.
func (c *ResilientClient) CallStructured(ctx context.Context, systemPrompt, taskPrompt string, out any) error {
	decode := func(text string) error {
		payload := StripCodeFences(text)
		if err := json.Unmarshal([]byte(payload), out); err != nil {
			return fmt.Errorf("malformed structured output: %w", err)
		}
		if v, ok := out.(StructuredValidator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("non-conforming structured output: %w", err)
			}
		}
		return nil
	}
	_, err := c.call(ctx, systemPrompt, taskPrompt+jsonOnlyInstruction, decode)
	return err
}

// call runs the retry loop. When decode is non-nil its failure counts as a
// retryable attempt failure.
func (c *ResilientClient) call(ctx context.Context, systemPrompt, taskPrompt string,
	decode func(string) error) (string, error) {

	ctx, span := resilientTracer.Start(ctx, "ResilientClient.Call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.backend", c.backend.Name()),
		attribute.Bool("llm.structured", decode != nil),
	)

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		key, err := c.pool.Next()
		if err != nil {
			// Configuration error: no credentials. Never retried.
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		slog.Info("Calling model provider",
			"backend", c.backend.Name(), "attempt", attempt, "max_attempts", c.policy.MaxAttempts)

		text, err := c.backend.Generate(ctx, key, Request{
			SystemPrompt: systemPrompt,
			TaskPrompt:   taskPrompt,
		})
		if err == nil && decode != nil {
			err = decode(text)
		}
		if err == nil {
			span.SetAttributes(attribute.Int("llm.attempts", attempt))
			return text, nil
		}
		lastErr = err

		switch {
		case strings.Contains(err.Error(), "structured output"):
			slog.Warn("Bad structured payload from provider, retrying", "error", err)
		case isRateLimitSignal(err):
			slog.Warn("Provider rate limit hit, rotating credential",
				"backend", c.backend.Name(), "wait", c.policy.Backoff(attempt))
		default:
			slog.Error("Provider call failed", "backend", c.backend.Name(), "error", err)
		}

		if attempt == c.policy.MaxAttempts {
			break
		}
		if err := c.policy.wait(ctx, attempt); err != nil {
			return "", err
		}
	}

	exhausted := &ExhaustedError{
		Backend:  c.backend.Name(),
		Attempts: c.policy.MaxAttempts,
		Last:     lastErr,
	}
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, exhausted.Error())
	return "", exhausted
}

// StripCodeFences removes a wrapping Markdown code fence (with an optional
// language tag) from a structured response. Providers add these despite the
// raw-JSON instruction often enough that stripping is mandatory.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// Drop the language tag line ("json", "tsx", ...).
		firstLine := strings.TrimSpace(trimmed[:idx])
		if !strings.ContainsAny(firstLine, "{}[]<>();") {
			trimmed = trimmed[idx+1:]
		}
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
