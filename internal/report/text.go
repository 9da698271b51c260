package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/verdict"
)

// TextReporter renders a styled, human-readable summary.
type TextReporter struct {
	w io.Writer

	header  lipgloss.Style
	path    lipgloss.Style
	detail  lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

// NewText creates a TextReporter whose colors follow w's capabilities.
func NewText(w io.Writer) *TextReporter {
	r := lipgloss.NewRenderer(w)
	return &TextReporter{
		w:       w,
		header:  r.NewStyle().Bold(true),
		path:    r.NewStyle().Width(32),
		detail:  r.NewStyle().Faint(true),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Report implements pipeline.Reporter.
func (t *TextReporter) Report(_ context.Context, rep verdict.Report) error {
	var b strings.Builder
	fmt.Fprintln(&b, t.header.Render(fmt.Sprintf("Pipeline %s (run %s)", displayName(rep.Pipeline), rep.RunID)))
	for _, o := range rep.Outcomes {
		line := fmt.Sprintf("  %s %s %s", t.statusStyle(o).Render(statusLabel(o)), t.path.Render(o.Path), formatDuration(o))
		if o.Detail != "" {
			line += " " + t.detail.Render(o.Detail)
		}
		fmt.Fprintln(&b, line)
		for _, w := range o.Warnings {
			fmt.Fprintln(&b, "      "+t.warn.Render("warning: "+w))
		}
	}

	counts := rep.Counts()
	fmt.Fprintf(&b, "\n  %d succeeded, %d failed, %d timed out, %d skipped\n",
		counts[stage.Success], counts[stage.Failed], counts[stage.TimedOut], counts[stage.Skipped])
	if rep.Error != "" {
		fmt.Fprintln(&b, "  "+t.fail.Render("error: "+rep.Error))
	}
	fmt.Fprintln(&b, t.header.Render("Verdict: ")+t.verdictStyle(rep.Verdict).Render(strings.ToUpper(rep.Verdict.String())))

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *TextReporter) statusStyle(o stage.Outcome) lipgloss.Style {
	switch {
	case o.Tolerated():
		return t.warn
	case o.Status.IsFailure():
		return t.fail
	case o.Status == stage.Skipped:
		return t.muted
	case len(o.Warnings) > 0:
		return t.warn
	default:
		return t.success
	}
}

func (t *TextReporter) verdictStyle(v verdict.Verdict) lipgloss.Style {
	switch v {
	case verdict.Success:
		return t.success
	case verdict.Unstable:
		return t.warn
	default:
		return t.fail
	}
}

func statusLabel(o stage.Outcome) string {
	label := strings.ToUpper(o.Status.String())
	if o.Tolerated() {
		label += " (allowed)"
	}
	return fmt.Sprintf("%-20s", label)
}

func formatDuration(o stage.Outcome) string {
	if !o.Ran() {
		return "      -"
	}
	return fmt.Sprintf("%7s", o.Duration.Round(time.Millisecond))
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}
