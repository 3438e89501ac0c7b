// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/awnumar/memguard"
)

// ErrNoCredentials is returned when the credential pool has no usable keys.
// It is a configuration error: the caller must not retry.
var ErrNoCredentials = errors.New("llm: no API credentials configured")

// CredentialPool holds an ordered pool of provider API keys and hands them
// out in process-wide round-robin order.
//
// The pool is the only mutable state shared across pipeline runs. The cursor
// is advanced atomically so concurrent runs never observe a stale or
// duplicated index; callers must not expect sticky key assignment.
//
// Keys are sealed in memguard enclaves so they do not sit in plain heap
// memory between calls.
type CredentialPool struct {
	envVars []string

	loadOnce sync.Once
	loadErr  error
	keys     []*memguard.Enclave
	cursor   atomic.Uint64
}

// NewCredentialPoolFromEnv builds a pool that lazily reads the given
// environment variables, in order, on first use. Unset variables are skipped.
func NewCredentialPoolFromEnv(envVars ...string) *CredentialPool {
	return &CredentialPool{envVars: envVars}
}

// NewCredentialPool builds a pool from explicit keys. Used by tests.
func NewCredentialPool(keys ...string) *CredentialPool {
	p := &CredentialPool{}
	p.loadOnce.Do(func() {
		for _, k := range keys {
			if k != "" {
				p.keys = append(p.keys, memguard.NewEnclave([]byte(k)))
			}
		}
		if len(p.keys) == 0 {
			p.loadErr = ErrNoCredentials
		}
	})
	return p
}

func (p *CredentialPool) load() {
	for _, name := range p.envVars {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			continue
		}
		p.keys = append(p.keys, memguard.NewEnclave([]byte(value)))
	}
	if len(p.keys) == 0 {
		slog.Error("No provider API keys found", "env_vars", p.envVars)
		p.loadErr = ErrNoCredentials
		return
	}
	slog.Info("Loaded provider credential pool", "keys", len(p.keys))
}

// Size returns the number of keys in the pool, loading it if needed.
func (p *CredentialPool) Size() int {
	p.loadOnce.Do(p.load)
	return len(p.keys)
}

// Next returns the next key in round-robin order. Every call advances the
// shared cursor by exactly one position, regardless of which run is asking.
func (p *CredentialPool) Next() (string, error) {
	p.loadOnce.Do(p.load)
	if p.loadErr != nil {
		return "", p.loadErr
	}

	idx := (p.cursor.Add(1) - 1) % uint64(len(p.keys))
	buf, err := p.keys[idx].Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()

	// The key escapes the locked buffer here by necessity: the HTTP layer
	// needs a plain string. strings.Clone detaches it from the buffer
	// before Destroy wipes the enclave view.
	return strings.Clone(buf.String()), nil
}
