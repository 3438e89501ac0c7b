// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var geminiTracer = otel.Tracer("markup.llm.gemini")

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash"

	// Low temperature keeps generated code predictable.
	defaultGeminiTemperature = 0.2
	defaultGeminiMaxTokens   = 8192
)

// GeminiBackend calls the Google Generative Language REST API.
type GeminiBackend struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// Gemini API request structures
type geminiGenerateRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float32  `json:"temperature"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiBackend builds a Gemini backend from environment configuration.
// GEMINI_MODEL overrides the model, GEMINI_BASE_URL the endpoint (used by
// tests to point at a local server).
func NewGeminiBackend() *GeminiBackend {
	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		slog.Warn("GEMINI_MODEL not set, defaulting to "+defaultGeminiModel, "model", defaultGeminiModel)
		model = defaultGeminiModel
	}
	slog.Info("Initializing Gemini backend", "base_url", baseURL, "model", model)
	return &GeminiBackend{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
	}
}

// Name implements the Backend interface.
func (g *GeminiBackend) Name() string { return "gemini" }

// Generate implements the Backend interface.
func (g *GeminiBackend) Generate(ctx context.Context, apiKey string, req Request) (string, error) {
	ctx, span := geminiTracer.Start(ctx, "GeminiBackend.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.model))

	body := geminiGenerateRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.TaskPrompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     defaultGeminiTemperature,
			MaxOutputTokens: defaultGeminiMaxTokens,
			StopSequences:   req.Params.Stop,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	if req.Params.Temperature != nil {
		body.GenerationConfig.Temperature = *req.Params.Temperature
	}
	if req.Params.MaxTokens != nil {
		body.GenerationConfig.MaxOutputTokens = *req.Params.MaxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal the Gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build the Gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read the Gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The status code and body are kept in the error text so the
		// resilient layer can recognize rate-limit signals.
		err := fmt.Errorf("Gemini API returned status %d: %s", resp.StatusCode, string(respBody))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var parsed geminiGenerateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode the Gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	slog.Debug("Received response from Gemini", "finish_reason", parsed.Candidates[0].FinishReason)
	return strings.TrimSpace(sb.String()), nil
}
