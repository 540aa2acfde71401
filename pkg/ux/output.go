// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the codesmith CLI.
package ux

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Codesmith color palette - forge ambers and cooled steel
var (
	// Primary palette (brightest to darkest)
	ColorEmberBright  = lipgloss.Color("#FFB347") // Bright ember - highlights
	ColorEmberPrimary = lipgloss.Color("#E8943A") // Primary amber - brand color
	ColorEmberDeep    = lipgloss.Color("#C26E2B") // Deep amber - borders, accents
	ColorForgeGlow    = lipgloss.Color("#F4A259") // Forge glow - interactive elements

	// Dark palette (backgrounds, muted elements)
	ColorSteel    = lipgloss.Color("#5C6B73") // Cooled steel - muted text
	ColorAnvil    = lipgloss.Color("#2F3E46") // Anvil gray - deep backgrounds
	ColorCharcoal = lipgloss.Color("#1C2321") // Charcoal - near black

	// Semantic colors
	ColorSuccess = lipgloss.Color("#7FB069") // Green for success
	ColorWarning = lipgloss.Color("#F4D03F") // Gold for warnings
	ColorError   = lipgloss.Color("#E74C3C") // Red for errors
	ColorMuted   = lipgloss.Color("#5C6B73") // Steel for muted text
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box lipgloss.Style

	DiffAdd    lipgloss.Style
	DiffRemove lipgloss.Style
	DiffHeader lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorEmberBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorEmberPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorEmberBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorEmberDeep).
		Padding(0, 1),

	DiffAdd:    lipgloss.NewStyle().Foreground(ColorSuccess),
	DiffRemove: lipgloss.NewStyle().Foreground(ColorError),
	DiffHeader: lipgloss.NewStyle().Foreground(ColorEmberPrimary).Bold(true),
}

// colorEnabled reports whether stdout is a terminal that should receive
// styled output. NO_COLOR is honored.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

// Header prints a section title.
func Header(format string, a ...any) {
	fmt.Println(render(Styles.Title, fmt.Sprintf(format, a...)))
}

// Success prints a success line with a check mark.
func Success(format string, a ...any) {
	fmt.Println(render(Styles.Success, "✓ "+fmt.Sprintf(format, a...)))
}

// Warning prints a warning line.
func Warning(format string, a ...any) {
	fmt.Println(render(Styles.Warning, "! "+fmt.Sprintf(format, a...)))
}

// Error prints an error line to stderr.
func Error(format string, a ...any) {
	fmt.Fprintln(os.Stderr, render(Styles.Error, "✗ "+fmt.Sprintf(format, a...)))
}

// Info prints a plain informational line.
func Info(format string, a ...any) {
	fmt.Println(fmt.Sprintf(format, a...))
}

// Muted prints a de-emphasized line.
func Muted(format string, a ...any) {
	fmt.Println(render(Styles.Muted, fmt.Sprintf(format, a...)))
}

// RenderDiff colorizes a unified diff for terminal display. The input
// text is returned unchanged when color is disabled.
func RenderDiff(unified string) string {
	if !colorEnabled() {
		return unified
	}
	lines := strings.Split(unified, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = Styles.DiffHeader.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = Styles.Subtitle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = Styles.DiffAdd.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = Styles.DiffRemove.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
