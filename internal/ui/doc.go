// Package ui styles CLI status output with [lipgloss].
//
// [Palette] renders titles, success and failure lines, warnings and hints. Styles degrade to
// plain text when the output is not a terminal.
package ui
