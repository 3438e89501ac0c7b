// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// Tests for the resilient provider client

package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend scripts per-attempt behavior and records the keys it saw.
type fakeBackend struct {
	fn       func(attempt int) (string, error)
	attempts int
	keysSeen []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Generate(_ context.Context, apiKey string, _ Request) (string, error) {
	f.attempts++
	f.keysSeen = append(f.keysSeen, apiKey)
	return f.fn(f.attempts)
}

// noSleep replaces the retry wait and records requested durations.
func noSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func testPolicy(recorded *[]time.Duration) RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, Sleep: noSleep(recorded)}
}

func TestResilientClient_SuccessFirstAttempt(t *testing.T) {
	backend := &fakeBackend{fn: func(int) (string, error) { return "hello", nil }}
	var sleeps []time.Duration
	client := NewResilientClient(backend, NewCredentialPool("k1"), WithRetryPolicy(testPolicy(&sleeps)))

	got, err := client.Call(context.Background(), "system", "task")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 1, backend.attempts)
	assert.Empty(t, sleeps, "no wait on first-attempt success")
}

func TestResilientClient_RetriesThenSucceeds(t *testing.T) {
	backend := &fakeBackend{fn: func(attempt int) (string, error) {
		if attempt < 3 {
			return "", fmt.Errorf("provider error 429: quota exceeded")
		}
		return "recovered", nil
	}}
	var sleeps []time.Duration
	client := NewResilientClient(backend, NewCredentialPool("k1", "k2", "k3"),
		WithRetryPolicy(testPolicy(&sleeps)))

	got, err := client.Call(context.Background(), "system", "task")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 3, backend.attempts)

	// Linear backoff: 2s after attempt 1, 4s after attempt 2.
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps)

	// Each attempt advanced the round-robin cursor.
	assert.Equal(t, []string{"k1", "k2", "k3"}, backend.keysSeen)
}

func TestResilientClient_ExhaustsAfterThreeAttempts(t *testing.T) {
	lastErr := errors.New("connection reset")
	backend := &fakeBackend{fn: func(int) (string, error) { return "", lastErr }}
	var sleeps []time.Duration
	client := NewResilientClient(backend, NewCredentialPool("k1"), WithRetryPolicy(testPolicy(&sleeps)))

	_, err := client.Call(context.Background(), "system", "task")
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, lastErr, "exhaustion carries the last underlying error")
	assert.Equal(t, 3, backend.attempts, "never more than 3 attempts")
	assert.Len(t, sleeps, 2, "no wait after the final attempt")
}

func TestResilientClient_EmptyPoolFailsFast(t *testing.T) {
	backend := &fakeBackend{fn: func(int) (string, error) { return "unreachable", nil }}
	client := NewResilientClient(backend, NewCredentialPool())

	_, err := client.Call(context.Background(), "system", "task")
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Zero(t, backend.attempts, "configuration errors never reach the provider")
}

func TestResilientClient_CursorSharedAcrossCalls(t *testing.T) {
	pool := NewCredentialPool("k1", "k2", "k3")
	backend := &fakeBackend{fn: func(int) (string, error) { return "ok", nil }}
	client := NewResilientClient(backend, pool)

	for i := 0; i < 4; i++ {
		_, err := client.Call(context.Background(), "s", "t")
		require.NoError(t, err)
	}

	// Consecutive calls continue the rotation instead of restarting it.
	assert.Equal(t, []string{"k1", "k2", "k3", "k1"}, backend.keysSeen)
}

func TestResilientClient_StructuredOutput(t *testing.T) {
	t.Run("fenced payload is stripped and parsed", func(t *testing.T) {
		backend := &fakeBackend{fn: func(int) (string, error) {
			return "```json\n{\"summary\": \"done\"}\n```", nil
		}}
		client := NewResilientClient(backend, NewCredentialPool("k1"))

		var out struct {
			Summary string `json:"summary"`
		}
		err := client.CallStructured(context.Background(), "system", "task", &out)
		require.NoError(t, err)
		assert.Equal(t, "done", out.Summary)
	})

	t.Run("malformed payload is retried", func(t *testing.T) {
		backend := &fakeBackend{fn: func(attempt int) (string, error) {
			if attempt == 1 {
				return "sorry, here is the JSON: {", nil
			}
			return `{"summary": "second try"}`, nil
		}}
		var sleeps []time.Duration
		client := NewResilientClient(backend, NewCredentialPool("k1"),
			WithRetryPolicy(testPolicy(&sleeps)))

		var out struct {
			Summary string `json:"summary"`
		}
		err := client.CallStructured(context.Background(), "system", "task", &out)
		require.NoError(t, err)
		assert.Equal(t, "second try", out.Summary)
		assert.Equal(t, 2, backend.attempts)
	})

	t.Run("json-only instruction is appended", func(t *testing.T) {
		var gotPrompt string
		backend := &fakeBackend{fn: func(int) (string, error) { return "{}", nil }}
		wrapped := backendFunc(func(ctx context.Context, key string, req Request) (string, error) {
			gotPrompt = req.TaskPrompt
			return backend.Generate(ctx, key, req)
		})
		client := NewResilientClient(wrapped, NewCredentialPool("k1"))

		var out map[string]any
		require.NoError(t, client.CallStructured(context.Background(), "s", "the task", &out))
		assert.Contains(t, gotPrompt, "the task")
		assert.Contains(t, gotPrompt, "Return valid JSON only")
	})
}

// backendFunc adapts a function to the Backend interface.
type backendFunc func(ctx context.Context, apiKey string, req Request) (string, error)

func (f backendFunc) Name() string { return "fake" }
func (f backendFunc) Generate(ctx context.Context, apiKey string, req Request) (string, error) {
	return f(ctx, apiKey, req)
}

type validatedPayload struct {
	Value string `json:"value"`
}

func (p *validatedPayload) Validate() error {
	if p.Value == "" {
		return errors.New("value is required")
	}
	return nil
}

func TestResilientClient_StructuredValidationFailureIsTransient(t *testing.T) {
	backend := &fakeBackend{fn: func(attempt int) (string, error) {
		if attempt == 1 {
			return `{"other": "shape"}`, nil
		}
		return `{"value": "conforming"}`, nil
	}}
	var sleeps []time.Duration
	client := NewResilientClient(backend, NewCredentialPool("k1"), WithRetryPolicy(testPolicy(&sleeps)))

	var out validatedPayload
	err := client.CallStructured(context.Background(), "system", "task", &out)
	require.NoError(t, err)
	assert.Equal(t, "conforming", out.Value)
	assert.Equal(t, 2, backend.attempts)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no fences pass through",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "bare fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "tsx fence around file body",
			input: "```tsx\nexport const x = 1;\n```",
			want:  "export const x = 1;",
		},
		{
			name:  "surrounding whitespace",
			input: "  \n```json\n[1, 2]\n```  ",
			want:  "[1, 2]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripCodeFences(tc.input); got != tc.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
