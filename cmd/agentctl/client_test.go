// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// Tests for the agentctl HTTP client

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"markup-agent"}`))
	}))
	defer server.Close()

	client := newAgentClient(server.URL, "")
	status, err := client.health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "markup-agent", status["service"])
}

func TestAgentClient_HealthNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newAgentClient(server.URL, "")
	_, err := client.health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestAgentClient_IngestSendsTokenAndBody(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ingest", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		gotBody = body
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"run_id":"r1","patches":[],"summary":"","status":"ready_for_commit"}`))
	}))
	defer server.Close()

	client := newAgentClient(server.URL, "s3cret")
	code, payload, err := client.ingest(context.Background(), []byte(`{"intent":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"intent":"x"}`, string(gotBody))
	assert.Contains(t, string(payload), "ready_for_commit")
}

func TestAgentClient_NoTokenMeansNoHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newAgentClient(server.URL, "")
	_, _, err := client.ingest(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}
