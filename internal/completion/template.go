package completion

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/juev/hledger-complete/internal/model"
)

const (
	postingIndent = "    "
	// minAmountGap is the separator an amount needs after its account.
	minAmountGap = 2
)

// RenderTemplate writes a payee followed by the template's postings, with
// amounts aligned in one column by display width. As a snippet each
// account and amount becomes a tab stop.
func RenderTemplate(payee string, postings []model.TemplatePosting, snippet bool) string {
	width := 0
	for _, p := range postings {
		if p.Amount != "" {
			width = max(width, runewidth.StringWidth(p.Account))
		}
	}

	var sb strings.Builder
	if snippet {
		sb.WriteString(escapeSnippetText(payee))
	} else {
		sb.WriteString(payee)
	}
	sb.WriteString("\n")

	tabstop := 1
	for _, p := range postings {
		sb.WriteString(postingIndent)
		if snippet {
			fmt.Fprintf(&sb, "${%d:%s}", tabstop, escapeSnippetText(p.Account))
			tabstop++
		} else {
			sb.WriteString(p.Account)
		}
		if p.Amount != "" {
			gap := width - runewidth.StringWidth(p.Account) + minAmountGap
			sb.WriteString(strings.Repeat(" ", gap))
			if snippet {
				fmt.Fprintf(&sb, "${%d:%s}", tabstop, escapeSnippetText(p.Amount))
				tabstop++
			} else {
				sb.WriteString(p.Amount)
			}
		}
		sb.WriteString("\n")
	}
	if snippet {
		sb.WriteString("$0")
	}
	return sb.String()
}

func escapeSnippetText(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"$", "\\$",
		"}", "\\}",
	)
	return replacer.Replace(s)
}

// bestTemplate picks the payee's template used most among recent
// transactions; ties keep the overall ranking.
func bestTemplate(data *model.ParsedData, payee string) (model.TransactionTemplate, bool) {
	templates := data.TransactionTemplates(payee)
	if len(templates) == 0 {
		return model.TransactionTemplate{}, false
	}
	recent := data.RecentFrequency(payee)
	best := 0
	for i := 1; i < len(templates); i++ {
		if recent[templates[i].Key] > recent[templates[best].Key] {
			best = i
		}
	}
	return templates[best], true
}
