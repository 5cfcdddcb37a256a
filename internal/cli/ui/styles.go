// Package ui holds terminal styles and print helpers for the swift CLI.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Styles defines all lipgloss styles used in the CLI.
var Styles = struct {
	Bold      lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Muted     lipgloss.Style
	Stage     lipgloss.Style
	Error     lipgloss.Style
	ErrorBox  lipgloss.Style
}{
	Bold:      lipgloss.NewStyle().Bold(true),
	User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	Stage:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(0, 1),
}

// PrintTurn prints one labelled conversation line.
func PrintTurn(label string, style lipgloss.Style, text string) {
	fmt.Printf("%s %s\n", style.Render(label+":"), text)
}

// PrintMuted prints secondary information.
func PrintMuted(format string, args ...any) {
	fmt.Println(Styles.Muted.Render(fmt.Sprintf(format, args...)))
}

// PrintError prints an error box to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, Styles.ErrorBox.Render(fmt.Sprintf(format, args...)))
}
