// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the model-provider clients for the MarkUp agent.
//
// The package is split into two layers:
//
//   - Backend implementations (Gemini REST, OpenAI) that perform a single
//     provider call with a caller-supplied API key.
//   - ResilientClient, which owns retry, credential rotation, and
//     structured-output handling, and is what the rest of the agent uses.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// GenerationParams carries optional sampling parameters for a provider call.
// Nil pointers mean "use the backend default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Request is a single provider call: a system instruction plus a task prompt.
type Request struct {
	SystemPrompt string
	TaskPrompt   string
	Params       GenerationParams
}

// Backend performs one raw provider call using the given API key.
//
// Backends are stateless with respect to credentials: the key is supplied
// per call so that the ResilientClient can rotate keys between attempts.
type Backend interface {
	Generate(ctx context.Context, apiKey string, req Request) (string, error)

	// Name identifies the backend for logs and metrics.
	Name() string
}

// NewBackend selects a backend from the LLM_BACKEND_TYPE environment
// variable. Gemini is the default, matching the agent's primary provider.
func NewBackend() (Backend, *CredentialPool, error) {
	backendType := os.Getenv("LLM_BACKEND_TYPE")

	switch backendType {
	case "", "gemini":
		if backendType == "" {
			slog.Info("LLM_BACKEND_TYPE not set, defaulting to gemini")
		}
		pool := NewCredentialPoolFromEnv("GEMINI_API_KEY", "GEMINI_API_KEY_2", "GEMINI_API_KEY_3")
		return NewGeminiBackend(), pool, nil
	case "openai":
		pool := NewCredentialPoolFromEnv("OPENAI_API_KEY", "OPENAI_API_KEY_2", "OPENAI_API_KEY_3")
		return NewOpenAIBackend(), pool, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_BACKEND_TYPE %q", backendType)
	}
}
