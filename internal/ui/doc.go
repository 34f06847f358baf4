// Package ui provides semantic text formatting for agekeeper's CLI output.
//
// Formatters colorize content when the terminal supports it and fall back
// to plain-text decorations when NO_COLOR is set or colors are unavailable.
//
//	ui.Code.Sprint("agekeeper keys create") // Commands
//	ui.Path.Sprint("keys.txt")              // File paths
//	ui.Key.Sprint("age1...")                // Public keys
//	ui.Muted.Sprint("created 2024-01-02")   // Secondary text
//
// Status lines are built with Done, Fail and Hint so every command prints
// the same markers.
package ui
