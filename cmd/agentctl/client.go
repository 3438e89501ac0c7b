// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// agentClient is a thin HTTP client over the agent service API.
type agentClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAgentClient(baseURL, token string) *agentClient {
	return &agentClient{
		baseURL: baseURL,
		token:   token,
		// Runs make several model calls; allow for slow providers.
		http: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *agentClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, payload, nil
}

// health calls GET /health and decodes the status payload.
func (c *agentClient) health(ctx context.Context) (map[string]string, error) {
	code, payload, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("service returned status %d", code)
	}
	var status map[string]string
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("malformed health payload: %w", err)
	}
	return status, nil
}

// ingest calls POST /v1/ingest with a raw request body and returns the HTTP
// status alongside the raw response for the caller to interpret.
func (c *agentClient) ingest(ctx context.Context, body []byte) (int, []byte, error) {
	return c.do(ctx, http.MethodPost, "/v1/ingest", body)
}
