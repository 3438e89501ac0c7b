// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides rich terminal output styling for the MarkUp CLI.
package ux

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MarkUp color palette - indigo and violet inks
var (
	ColorIndigoBright  = lipgloss.Color("#818CF8") // Bright indigo - highlights
	ColorIndigoPrimary = lipgloss.Color("#6366F1") // Primary indigo - main brand color
	ColorVioletDeep    = lipgloss.Color("#7C3AED") // Deep violet - borders, accents
	ColorSlate         = lipgloss.Color("#64748B") // Slate - muted text

	// Semantic colors
	ColorSuccess = lipgloss.Color("#34D399") // Green for success and added lines
	ColorWarning = lipgloss.Color("#FBBF24") // Amber for warnings
	ColorError   = lipgloss.Color("#F87171") // Red for errors and deleted lines
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Box lipgloss.Style

	DiffAdd  lipgloss.Style
	DiffDel  lipgloss.Style
	DiffHunk lipgloss.Style
	DiffFile lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorIndigoBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorVioletDeep).
		Padding(0, 1),

	DiffAdd:  lipgloss.NewStyle().Foreground(ColorSuccess),
	DiffDel:  lipgloss.NewStyle().Foreground(ColorError),
	DiffHunk: lipgloss.NewStyle().Foreground(ColorIndigoPrimary),
	DiffFile: lipgloss.NewStyle().Bold(true).Foreground(ColorIndigoBright),
}

// Title prints a styled title
func Title(text string) {
	if MachineMode() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	if MachineMode() {
		fmt.Fprintf(os.Stdout, "OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Success.Render("✓"), Styles.Success.Render(text))
}

// Warning prints a warning message
func Warning(text string) {
	if MachineMode() {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Warning.Render("⚠"), Styles.Warning.Render(text))
}

// Error prints an error message
func Error(text string) {
	if MachineMode() {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Error.Render("✗"), Styles.Error.Render(text))
}

// Muted prints muted/secondary text
func Muted(text string) {
	if MachineMode() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	if MachineMode() {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(72)
	titleLine := Styles.Title.Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// RenderDiff colorizes a unified diff line by line. In machine mode the
// text passes through untouched so it stays pipeable into patch tooling.
func RenderDiff(diff string) string {
	if MachineMode() {
		return diff
	}
	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = Styles.DiffFile.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = Styles.DiffHunk.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = Styles.DiffAdd.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = Styles.DiffDel.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// PatchSummary prints the per-run patch counts.
func PatchSummary(ready, total int) {
	if MachineMode() {
		fmt.Printf("SUMMARY: patches=%d total_files=%d\n", ready, total)
		return
	}
	fmt.Printf("\n%s %s  %s %s\n",
		Styles.Success.Render(fmt.Sprintf("%d", ready)), Styles.Muted.Render("patches"),
		Styles.Bold.Render(fmt.Sprintf("%d", total)), Styles.Muted.Render("files"),
	)
}
