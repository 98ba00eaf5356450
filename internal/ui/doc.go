// Package ui holds lipgloss styles for CLI output.
package ui
