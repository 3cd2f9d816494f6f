package completion

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/juev/hledger-complete/internal/parser"
	"github.com/juev/hledger-complete/internal/position"
)

// span is the text a completion replaces: from rune column Start up to the
// cursor. Query is that text as the matcher sees it.
type span struct {
	Start int
	Query string
	// Tag is the tag whose value is being typed.
	Tag string
}

var (
	tagKeyTailRe   = regexp.MustCompile(`[\p{L}\p{N}_-]*$`)
	tagValueTailRe = regexp.MustCompile(`([\p{L}\p{N}_-]+):([ \t]*)([^,;]*)$`)
)

// extractSpan finds what the user is typing in prefix, the line up to the
// cursor, for a classified context.
func extractSpan(ctx position.Context, prefix string) span {
	switch ctx {
	case position.LineStart:
		return span{Start: 0, Query: strings.TrimLeft(prefix, " \t")}
	case position.AfterDate:
		return tail(prefix, payeeStart(prefix))
	case position.InPosting:
		return accountSpan(prefix)
	case position.AfterAmount:
		return commoditySpan(prefix)
	case position.InComment:
		loc := tagKeyTailRe.FindStringIndex(prefix)
		return tail(prefix, loc[0])
	case position.InTagValue:
		m := tagValueTailRe.FindStringSubmatchIndex(prefix)
		if m == nil {
			return tail(prefix, len(prefix))
		}
		sp := tail(prefix, m[6])
		sp.Tag = prefix[m[2]:m[3]]
		return sp
	}
	return tail(prefix, len(prefix))
}

// tail is the span from byte offset start to the end of prefix.
func tail(prefix string, start int) span {
	return span{Start: utf8.RuneCountInString(prefix[:start]), Query: prefix[start:]}
}

// payeeStart skips the date, secondary date, status and code of a
// transaction header.
func payeeStart(prefix string) int {
	i := parser.LeadingDate(prefix)
	if i < len(prefix) && prefix[i] == '=' {
		if n := parser.LeadingDate(prefix[i+1:]); n > 0 {
			i += 1 + n
		}
	}
	i = skipBlanks(prefix, i)
	if i+1 < len(prefix) && (prefix[i] == '*' || prefix[i] == '!') && isBlank(prefix[i+1]) {
		i = skipBlanks(prefix, i+1)
	}
	if i < len(prefix) && prefix[i] == '(' {
		if end := strings.IndexByte(prefix[i:], ')'); end >= 0 && i+end+1 < len(prefix) {
			i = skipBlanks(prefix, i+end+1)
		}
	}
	return i
}

// accountSpan covers the account of a posting line; once the account is
// followed by its separator the whole name is the query.
func accountSpan(prefix string) span {
	i := skipBlanks(prefix, 0)
	if i+1 < len(prefix) && (prefix[i] == '*' || prefix[i] == '!') && isBlank(prefix[i+1]) {
		i = skipBlanks(prefix, i+1)
	}
	sp := tail(prefix, i)
	for j := i; j < len(prefix); j++ {
		if prefix[j] == '\t' || (prefix[j] == ' ' && j+1 < len(prefix) && isBlank(prefix[j+1])) {
			sp.Query = prefix[i:j]
			break
		}
	}
	return sp
}

// commoditySpan covers the commodity typed after an amount. An opening
// quote belongs to the span but not to the query.
func commoditySpan(prefix string) span {
	if strings.Count(prefix, `"`)%2 == 1 {
		i := strings.LastIndexByte(prefix, '"')
		sp := tail(prefix, i)
		sp.Query = prefix[i+1:]
		return sp
	}
	i := strings.LastIndexAny(prefix, " \t") + 1
	sp := tail(prefix, i)
	sp.Query = strings.TrimPrefix(sp.Query, `"`)
	return sp
}

func skipBlanks(s string, i int) int {
	for i < len(s) && isBlank(s[i]) {
		i++
	}
	return i
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}
