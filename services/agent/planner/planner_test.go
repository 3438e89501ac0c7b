// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// Tests for the planner

package planner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/markuplabs/markup-agent/services/agent/datatypes"
	"github.com/markuplabs/markup-agent/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend returns canned responses and records prompts.
type scriptedBackend struct {
	response   string
	err        error
	lastSystem string
	lastTask   string
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) Generate(_ context.Context, _ string, req llm.Request) (string, error) {
	s.lastSystem = req.SystemPrompt
	s.lastTask = req.TaskPrompt
	return s.response, s.err
}

func testClient(backend llm.Backend) *llm.ResilientClient {
	policy := llm.RetryPolicy{MaxAttempts: 3, Sleep: func(context.Context, time.Duration) error { return nil }}
	return llm.NewResilientClient(backend, llm.NewCredentialPool("test-key"), llm.WithRetryPolicy(policy))
}

func classified(path, reason, content string) datatypes.ClassifiedFile {
	return datatypes.ClassifiedFile{
		CandidateFile: datatypes.CandidateFile{Path: path, Reason: reason, ChangeType: "modify"},
		Content:       content,
		InBounds:      true,
	}
}

func TestPlan_BuildsStructuredPlan(t *testing.T) {
	backend := &scriptedBackend{response: `{
		"summary": "recolor the primary button",
		"patches": [
			{"path": "src/components/Button.tsx", "target": "className", "change": "blue-500 to indigo-600", "change_type": "modify", "snippet": "<button/>"}
		]
	}`}
	client := testClient(backend)

	files := []datatypes.ClassifiedFile{
		classified("src/components/Button.tsx", "update color", "export const Button = () => null;"),
	}
	issue := datatypes.PlanInput{IssueTitle: "Button color", IssueDescription: "Marketing wants indigo"}

	plan, err := Plan(context.Background(), client, files, "make the button indigo", issue)
	require.NoError(t, err)
	assert.Equal(t, "recolor the primary button", plan.Summary)
	require.Len(t, plan.Patches, 1)
	assert.Equal(t, "src/components/Button.tsx", plan.Patches[0].Path)

	// The prompt must carry the intent, the issue and the per-file summary.
	assert.Contains(t, backend.lastTask, "make the button indigo")
	assert.Contains(t, backend.lastTask, "Button color")
	assert.Contains(t, backend.lastTask, "src/components/Button.tsx: update color")
	assert.Contains(t, backend.lastSystem, "Never plan backend")
}

func TestPlan_SnippetComesFromResolvedContent(t *testing.T) {
	backend := &scriptedBackend{response: `{
		"summary": "s",
		"patches": [
			{"path": "src/components/Button.tsx", "change": "x", "snippet": "model echo"},
			{"path": "src/components/Hollow.tsx", "change": "y", "snippet": "model guess"}
		]
	}`}
	client := testClient(backend)

	files := []datatypes.ClassifiedFile{
		classified("src/components/Button.tsx", "r", "export const Button = () => null;"),
		classified("src/components/Hollow.tsx", "r", ""),
	}

	plan, err := Plan(context.Background(), client, files, "intent", datatypes.PlanInput{IssueTitle: "t"})
	require.NoError(t, err)
	require.Len(t, plan.Patches, 2)
	assert.Equal(t, "export const Button = () => null;", plan.Patches[0].Snippet,
		"resolved content replaces whatever the model echoed")
	assert.Equal(t, "model guess", plan.Patches[1].Snippet,
		"a model snippet survives only when no content was resolved")
}

func TestPlan_ContentPrefixIsCapped(t *testing.T) {
	backend := &scriptedBackend{response: `{
		"summary": "s",
		"patches": [{"path": "src/components/Big.tsx", "change": "x"}]
	}`}
	client := testClient(backend)

	longContent := strings.Repeat("x", 5000)
	files := []datatypes.ClassifiedFile{classified("src/components/Big.tsx", "big", longContent)}

	_, err := Plan(context.Background(), client, files, "intent", datatypes.PlanInput{IssueTitle: "t"})
	require.NoError(t, err)

	// 300 chars of content, not 5000.
	assert.Contains(t, backend.lastTask, strings.Repeat("x", 300))
	assert.NotContains(t, backend.lastTask, strings.Repeat("x", 301))
}

func TestPlan_DropsPathsOutsideClassifiedSet(t *testing.T) {
	backend := &scriptedBackend{response: `{
		"summary": "sneaky",
		"patches": [
			{"path": "src/components/Button.tsx", "change": "legit"},
			{"path": "server/db.js", "change": "drop the users table"}
		]
	}`}
	client := testClient(backend)

	files := []datatypes.ClassifiedFile{classified("src/components/Button.tsx", "r", "c")}

	plan, err := Plan(context.Background(), client, files, "intent", datatypes.PlanInput{IssueTitle: "t"})
	require.NoError(t, err)
	require.Len(t, plan.Patches, 1)
	assert.Equal(t, "src/components/Button.tsx", plan.Patches[0].Path)
}

func TestPlan_AllPathsDroppedIsAnError(t *testing.T) {
	backend := &scriptedBackend{response: `{
		"summary": "bad",
		"patches": [{"path": "server/db.js", "change": "nope"}]
	}`}
	client := testClient(backend)

	files := []datatypes.ClassifiedFile{classified("src/components/Button.tsx", "r", "c")}

	_, err := Plan(context.Background(), client, files, "intent", datatypes.PlanInput{IssueTitle: "t"})
	assert.Error(t, err)
}
