package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/juev/hledger-complete/internal/completion"
	"github.com/juev/hledger-complete/internal/model"
)

var (
	warnSymbol = "!"

	labelStyle  = lipgloss.NewStyle().Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#A8A8A8"})
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FFAF00", Dark: "#FFAF00"})
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"}).Align(lipgloss.Right)
)

func printWarning(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", warnStyle.Render(warnSymbol), message)
}

func renderResult(w io.Writer, res completion.Result) {
	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s → %s  %q", res.Context, res.Domain, res.Query)))
	if len(res.Items) == 0 {
		return
	}

	labelWidth, scoreWidth := 0, 0
	for _, item := range res.Items {
		labelWidth = max(labelWidth, lipgloss.Width(item.Label))
		scoreWidth = max(scoreWidth, len(fmt.Sprint(item.Score)))
	}

	for _, item := range res.Items {
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			scoreStyle.Width(scoreWidth).Render(fmt.Sprint(item.Score)),
			"  ",
			labelStyle.Width(labelWidth).Render(item.Label),
			"  ",
			detailStyle.Render(item.Detail),
		)
		_, _ = fmt.Fprintln(w, row)
		if item.InsertText != "" && item.InsertText != item.Label {
			_, _ = fmt.Fprintln(w, detailStyle.Render(indent(item.InsertText)))
		}
	}
}

func renderTemplates(w io.Writer, templates []model.TransactionTemplate, recent map[model.TemplateKey]int) {
	for i, t := range templates {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		header := fmt.Sprintf("%s  used %d×, last %s, %d of the recent", t.Payee, t.UsageCount, t.LastUsedDate, recent[t.Key])
		_, _ = fmt.Fprintln(w, headerStyle.Render(header))
		_, _ = fmt.Fprint(w, completion.RenderTemplate(t.Payee, t.Postings, false))
	}
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "      " + line
	}
	return strings.Join(lines, "\n")
}
