// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// Tests for the patcher

package patcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/markuplabs/markup-agent/services/agent/datatypes"
	"github.com/markuplabs/markup-agent/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replayBackend answers each call from a queue, keyed by call order.
type replayBackend struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (r *replayBackend) Name() string { return "replay" }

func (r *replayBackend) Generate(_ context.Context, _ string, req llm.Request) (string, error) {
	idx := r.calls
	r.calls++
	r.prompts = append(r.prompts, req.TaskPrompt)
	if idx < len(r.errs) && r.errs[idx] != nil {
		return "", r.errs[idx]
	}
	return r.responses[idx], nil
}

func testClient(backend llm.Backend) *llm.ResilientClient {
	policy := llm.RetryPolicy{MaxAttempts: 1, Sleep: func(context.Context, time.Duration) error { return nil }}
	return llm.NewResilientClient(backend, llm.NewCredentialPool("test-key"), llm.WithRetryPolicy(policy))
}

func TestGenerate_OneCallPerFileInPlanOrder(t *testing.T) {
	backend := &replayBackend{responses: []string{
		"export const Button = () => <button className=\"indigo\"/>;",
		"h1 { color: indigo; }",
	}}
	client := testClient(backend)

	plan := &datatypes.PlanResult{
		Summary: "recolor",
		Patches: []datatypes.ChangeInstruction{
			{Path: "src/components/Button.tsx", Target: "className", Change: "to indigo",
				ChangeType: "modify", Snippet: "export const Button = () => <button className=\"blue\"/>;"},
			{Path: "styles/main.css", Target: "h1", Change: "to indigo",
				ChangeType: "modify", Snippet: "h1 { color: blue; }"},
		},
	}

	patches, err := Generate(context.Background(), client, plan)
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, 2, backend.calls, "exactly one provider call per planned file")

	assert.Equal(t, "src/components/Button.tsx", patches[0].Path)
	assert.Equal(t, "styles/main.css", patches[1].Path)
	assert.Contains(t, backend.prompts[0], "File: src/components/Button.tsx")
	assert.Contains(t, backend.prompts[1], "File: styles/main.css")

	// Each patch carries original content, replacement and a review diff.
	assert.Contains(t, patches[0].PatchedContent, "indigo")
	assert.Equal(t, plan.Patches[0].Snippet, patches[0].OriginalContent)
	assert.Contains(t, patches[0].Diff, "a/src/components/Button.tsx")
	assert.Contains(t, patches[0].Diff, "b/src/components/Button.tsx")
	assert.Contains(t, patches[0].Diff, "-")
	assert.Contains(t, patches[0].Diff, "+")
}

func TestGenerate_FencedReplacementIsUnwrapped(t *testing.T) {
	backend := &replayBackend{responses: []string{
		"```tsx\nexport const Button = () => null;\n```",
	}}
	client := testClient(backend)

	plan := &datatypes.PlanResult{Patches: []datatypes.ChangeInstruction{
		{Path: "src/components/Button.tsx", Change: "x", ChangeType: "modify", Snippet: "old"},
	}}

	patches, err := Generate(context.Background(), client, plan)
	require.NoError(t, err)
	assert.Equal(t, "export const Button = () => null;", patches[0].PatchedContent)
}

func TestGenerate_MissingSnippetUsesFallbackPrompt(t *testing.T) {
	backend := &replayBackend{responses: []string{"new file body"}}
	client := testClient(backend)

	plan := &datatypes.PlanResult{Patches: []datatypes.ChangeInstruction{
		{Path: "src/components/New.tsx", Change: "create it", ChangeType: "create"},
	}}

	patches, err := Generate(context.Background(), client, plan)
	require.NoError(t, err)
	assert.Contains(t, backend.prompts[0], "File content not available")
	assert.Empty(t, patches[0].OriginalContent, "created files have no original content")
	assert.Equal(t, "create", patches[0].ChangeType)
}

func TestGenerate_FirstFailureAbortsTheStage(t *testing.T) {
	backend := &replayBackend{
		responses: []string{"fine", ""},
		errs:      []error{nil, errors.New("provider fell over")},
	}
	client := testClient(backend)

	plan := &datatypes.PlanResult{Patches: []datatypes.ChangeInstruction{
		{Path: "src/components/A.tsx", Change: "x", ChangeType: "modify", Snippet: "a"},
		{Path: "src/components/B.tsx", Change: "y", ChangeType: "modify", Snippet: "b"},
		{Path: "src/components/C.tsx", Change: "z", ChangeType: "modify", Snippet: "c"},
	}}

	patches, err := Generate(context.Background(), client, plan)
	require.Error(t, err)
	assert.Nil(t, patches, "no partial-success mode")
	assert.Contains(t, err.Error(), "src/components/B.tsx", "the error names the failing file")
	assert.Equal(t, 2, backend.calls, "the third file is never attempted")
}

func TestUnifiedDiff_Headers(t *testing.T) {
	text := unifiedDiff("a\nb\n", "a\nc\n", "src/components/X.tsx")

	lines := strings.Split(text, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "--- a/src/components/X.tsx"))
	assert.True(t, strings.HasPrefix(lines[1], "+++ b/src/components/X.tsx"))
	assert.Contains(t, text, "-b")
	assert.Contains(t, text, "+c")
}

func TestDiffStat(t *testing.T) {
	text := unifiedDiff("a\nb\n", "a\nc\nd\n", "x.tsx")

	added, deleted, ok := diffStat(text)
	require.True(t, ok)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, deleted)
}

func TestDiffStat_EmptyDiff(t *testing.T) {
	_, _, ok := diffStat("")
	assert.False(t, ok)
}
