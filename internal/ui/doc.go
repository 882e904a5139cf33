// Package ui styles terminal output for the chatify CLI with lipgloss.
//
// The [Palette] holds the named styles used for titles, status lines and hints,
// and [SessionsTable] renders stored sessions for `chatify sessions list`.
package ui
