package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/cdmschema/cdmschema/internal/engine"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	summaryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
)

// consoleReporter prints one line per generated table.
type consoleReporter struct {
	w io.Writer
}

func (r *consoleReporter) TableWritten(t engine.TableResult) {
	line := fmt.Sprintf("  %s %s %s", successStyle.Render("✓"), t.Table, dimStyle.Render(fmt.Sprintf("(%d fields)", t.Fields)))
	if len(t.Duplicates) > 0 {
		line += " " + warnStyle.Render(fmt.Sprintf("%d duplicate field(s)", len(t.Duplicates)))
	}
	fmt.Fprintln(r.w, line)
}

func printSummary(w io.Writer, s *engine.Summary) {
	fmt.Fprintln(w)
	if s.DryRun {
		fmt.Fprintln(w, summaryStyle.Render(fmt.Sprintf("Dry run: built %d schemas, nothing written.", len(s.Tables))))
		return
	}
	fmt.Fprintln(w, summaryStyle.Render(fmt.Sprintf("Success! Generated %d schema files in %s/", len(s.Tables), s.OutputDir)))
	if s.Vocabulary == nil {
		fmt.Fprintln(w, dimStyle.Render("No vocabulary loaded; oneOf constraints omitted."))
	}
}
