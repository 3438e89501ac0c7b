// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package guardrail is the final validation pass over generated patches.
//
// It enforces the frontend-only boundary with two checks per file: a blocked
// extension/name check on the path, and an ordered, case-insensitive regex
// scan of the patched content for dangerous constructs. Validation is
// fail-closed: the first violation found anywhere rejects the entire batch.
package guardrail

import (
	"log/slog"
	"strings"

	"github.com/markuplabs/markup-agent/services/guardrail/enforcement"
)

// Engine holds the compiled guardrail rules. Construct once at startup;
// safe for concurrent use, it keeps no per-validation state.
type Engine struct {
	rules *rulesFile
}

// NewEngine parses and compiles the rules embedded in the binary.
func NewEngine() (*Engine, error) {
	rules, err := parseRules(enforcement.GuardrailPatterns)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: rules}, nil
}

// ValidateBatch checks every file and returns an all-or-nothing verdict.
// The first violation aborts the scan; no partially-validated result exists.
func (e *Engine) ValidateBatch(files []File) Verdict {
	for i, f := range files {
		if v := e.check(f); v != nil {
			slog.Warn("Guardrail violation, rejecting the whole batch",
				"path", v.Path, "category", v.Category, "checked", i)
			return Verdict{Checked: i, Violation: v}
		}
		slog.Info("Validated", "path", f.Path)
	}
	return Verdict{OK: true, Checked: len(files)}
}

// check runs both passes on a single file.
func (e *Engine) check(f File) *Violation {
	// Pass 1: the path must not target a blocked file type or infra file.
	for _, ext := range e.rules.BlockedFiles.Extensions {
		if strings.HasSuffix(f.Path, ext) || strings.Contains(f.Path, ext) {
			return &Violation{Path: f.Path, Category: "blocked file type", Detail: ext}
		}
	}
	for _, name := range e.rules.BlockedFiles.Names {
		if strings.Contains(f.Path, name) {
			return &Violation{Path: f.Path, Category: "blocked file type", Detail: name}
		}
	}

	// Pass 2: the content must not contain a dangerous construct.
	for _, p := range e.rules.Patterns {
		if p.compiled.MatchString(f.Content) {
			return &Violation{Path: f.Path, Category: p.Category, Detail: p.Id}
		}
	}
	return nil
}
