// Package ui renders human-facing progress and result lines. Machine
// output (list --output json) bypasses this package entirely.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

const (
	glyphOK   = "✓"
	glyphFail = "✗"
	glyphSkip = "•"
)

// Printer writes styled result lines. Quiet mode drops everything except
// failures so scripts still see what went wrong.
type Printer struct {
	w     io.Writer
	quiet bool
}

// NewPrinter writes to w. With quiet set, only Failf produces output.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, quiet: quiet}
}

// Successf prints a green check line.
func (p *Printer) Successf(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", successStyle.Render(glyphOK), fmt.Sprintf(format, args...))
}

// Skipf prints a muted line for work that was not needed.
func (p *Printer) Skipf(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", mutedStyle.Render(glyphSkip), mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Failf prints a red cross line. It is never suppressed.
func (p *Printer) Failf(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", errorStyle.Render(glyphFail), fmt.Sprintf(format, args...))
}

// Warnf prints an amber line.
func (p *Printer) Warnf(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", warnStyle.Render("!"), fmt.Sprintf(format, args...))
}

// Plainf prints an unstyled line.
func (p *Printer) Plainf(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Bold wraps s in the bold style.
func Bold(s string) string {
	return boldStyle.Render(s)
}

// Muted wraps s in the muted style.
func Muted(s string) string {
	return mutedStyle.Render(s)
}
