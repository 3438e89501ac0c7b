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
	"log/slog"
	"os"

	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend calls the OpenAI chat completion API. It is the alternate
// backend for deployments without Gemini access.
type OpenAIBackend struct {
	model string
}

// NewOpenAIBackend builds an OpenAI backend. OPENAI_MODEL overrides the model.
func NewOpenAIBackend() *OpenAIBackend {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI backend", "model", model)
	return &OpenAIBackend{model: model}
}

// Name implements the Backend interface.
func (o *OpenAIBackend) Name() string { return "openai" }

// Generate implements the Backend interface.
//
// A client is constructed per call because the API key changes between
// attempts under credential rotation.
func (o *OpenAIBackend) Generate(ctx context.Context, apiKey string, req Request) (string, error) {
	slog.Debug("Generating text via OpenAI", "model", o.model)
	client := openai.NewClient(apiKey)

	chatReq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.TaskPrompt},
		},
	}
	if req.Params.Temperature != nil {
		chatReq.Temperature = *req.Params.Temperature
	}
	if req.Params.MaxTokens != nil {
		chatReq.MaxCompletionTokens = *req.Params.MaxTokens
	}
	if len(req.Params.Stop) > 0 {
		chatReq.Stop = req.Params.Stop
	}

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
