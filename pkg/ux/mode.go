// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Output modes. Machine mode strips all styling so output stays parseable
// when piped or redirected.
var (
	machineMode bool
	modeMu      sync.RWMutex
)

// InitMode decides the output mode from the environment: MARKUP_MACHINE=1
// forces machine mode, otherwise a non-terminal stdout does.
func InitMode() {
	if os.Getenv("MARKUP_MACHINE") == "1" {
		SetMachineMode(true)
		return
	}
	SetMachineMode(!isTerminal())
}

// SetMachineMode overrides the mode decision, for flags and tests.
func SetMachineMode(on bool) {
	modeMu.Lock()
	defer modeMu.Unlock()
	machineMode = on
}

// MachineMode reports whether styled output is suppressed.
func MachineMode() bool {
	modeMu.RLock()
	defer modeMu.RUnlock()
	return machineMode
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
