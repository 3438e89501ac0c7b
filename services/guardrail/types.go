// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guardrail

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk (embedded) shape of the guardrail rules.
type rulesFile struct {
	BlockedFiles blockedFiles `yaml:"blocked_files"`
	Patterns     []Pattern    `yaml:"patterns"`
}

type blockedFiles struct {
	Extensions []string `yaml:"extensions"`
	Names      []string `yaml:"names"`
}

// Pattern is one dangerous-construct rule. Patterns are evaluated in file
// order; the first match wins.
type Pattern struct {
	Id       string `yaml:"id"`
	Category string `yaml:"category"`
	Regex    string `yaml:"regex"`

	compiled *regexp.Regexp `yaml:"-"`
}

// compile builds the case-insensitive matcher for every pattern.
func (f *rulesFile) compile() error {
	for i := range f.Patterns {
		p := &f.Patterns[i]
		re, err := regexp.Compile("(?i)" + p.Regex)
		if err != nil {
			return fmt.Errorf("failed to compile the guardrail regex %s: %w", p.Id, err)
		}
		p.compiled = re
	}
	return nil
}

// parseRules decodes and compiles an embedded rules document.
func parseRules(raw []byte) (*rulesFile, error) {
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded guardrail file: %w", err)
	}
	if len(f.Patterns) == 0 {
		return nil, fmt.Errorf("guardrail rules contain no patterns")
	}
	if err := f.compile(); err != nil {
		return nil, err
	}
	return &f, nil
}

// File is a unit of validation: a patched file path plus its full content.
type File struct {
	Path    string
	Content string
}

// Violation identifies the first guardrail breach found in a batch.
type Violation struct {
	// Path is the offending file.
	Path string `json:"path"`
	// Category is the human-readable class of the breach
	// ("hardcoded secret", "blocked file type", ...).
	Category string `json:"category"`
	// Detail carries the matched rule id or file-rule entry.
	Detail string `json:"detail"`
}

// Verdict is the explicit result of validating a batch. Exactly one of
// OK=true or Violation != nil holds.
type Verdict struct {
	OK        bool
	Checked   int
	Violation *Violation
}

// ViolationError adapts a Violation into the pipeline's error taxonomy.
// It is fatal for the run, never retried, and surfaced to the caller as a
// rejection rather than a generic failure.
type ViolationError struct {
	Violation Violation
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("guardrail violation in %q: %s", e.Violation.Path, e.Violation.Category)
}
