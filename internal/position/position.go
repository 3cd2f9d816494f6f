// Package position classifies where a cursor sits inside a journal line.
package position

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/juev/hledger-complete/internal/parser"
)

var ErrNegativeColumn = errors.New("negative column")

// Context is the editing context at a cursor. The zero value is Forbidden.
type Context int

const (
	// Forbidden means no suggestion fits here.
	Forbidden Context = iota
	LineStart
	AfterDate
	InPosting
	AfterAmount
	InComment
	InTagValue
)

func (c Context) String() string {
	switch c {
	case LineStart:
		return "LineStart"
	case AfterDate:
		return "AfterDate"
	case InPosting:
		return "InPosting"
	case AfterAmount:
		return "AfterAmount"
	case InComment:
		return "InComment"
	case InTagValue:
		return "InTagValue"
	default:
		return "Forbidden"
	}
}

// tagValueRe matches comment text ending inside a tag value.
var tagValueRe = regexp.MustCompile(`(?:^|[\s,])[\p{L}\p{N}_-]+:[^,;]*$`)

// Classify reports the context at column, counted in runes, of line. Only
// the text before the cursor is considered. A column past the end of the
// line is Forbidden.
func Classify(line string, column int) (Context, error) {
	if column < 0 {
		return Forbidden, ErrNegativeColumn
	}
	runes := []rune(line)
	if column > len(runes) {
		return Forbidden, nil
	}
	if column == 0 {
		return LineStart, nil
	}
	prefix := string(runes[:column])

	indented := prefix[0] == ' ' || prefix[0] == '\t'

	if start := commentStart(prefix); start >= 0 {
		if tagValueRe.MatchString(prefix[start+1:]) {
			return InTagValue, nil
		}
		return InComment, nil
	}

	if indented {
		return classifyPosting(strings.TrimLeft(prefix, " \t")), nil
	}
	return classifyHeader(prefix), nil
}

// commentStart returns the byte offset of the comment marker in prefix, or
// -1. ';' starts a comment anywhere. '#' and '*' do only at the start of a
// line; elsewhere '#' is part of a payee or an account name.
func commentStart(prefix string) int {
	switch prefix[0] {
	case ';', '#', '*':
		return 0
	}
	return strings.IndexByte(prefix, ';')
}

func classifyHeader(prefix string) Context {
	if isPartialDate(prefix) {
		return LineStart
	}
	n := parser.LeadingDate(prefix)
	if n == 0 || n >= len(prefix) {
		return Forbidden
	}
	// The secondary date of "date=date2" is still part of the date.
	rest := prefix[n:]
	if strings.HasPrefix(rest, "=") {
		if m := parser.LeadingDate(rest[1:]); m > 0 {
			rest = rest[1+m:]
		}
	}
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return Forbidden
	}
	if strings.ContainsRune(rest, '|') {
		return Forbidden
	}
	return AfterDate
}

// isPartialDate reports whether s could still grow into a date.
func isPartialDate(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' && r != '/' && r != '.' && r != '=' {
			return false
		}
	}
	return true
}

func classifyPosting(content string) Context {
	// A status marker may precede the account.
	if len(content) >= 2 && (content[0] == '*' || content[0] == '!') && (content[1] == ' ' || content[1] == '\t') {
		content = strings.TrimLeft(content[1:], " \t")
	}
	if content == "" {
		return InPosting
	}

	sep := accountEnd(content)
	if sep < 0 {
		return InPosting
	}
	amountZone := strings.TrimLeft(content[sep:], " \t")
	if amountZone == "" {
		return InPosting
	}
	return classifyAmount(amountZone)
}

// accountEnd finds the two-space or tab separator that ends the account
// name, or -1 while the account is still being typed.
func accountEnd(content string) int {
	for i := 0; i < len(content); i++ {
		switch {
		case content[i] == '\t':
			return i
		case content[i] == ' ' && i+1 < len(content) && (content[i+1] == ' ' || content[i+1] == '\t'):
			return i
		}
	}
	return -1
}

func classifyAmount(zone string) Context {
	rest := skipSignAndCommodity(zone)
	n := parser.LeadingQuantity(rest)
	if n == 0 {
		return Forbidden
	}
	tail := rest[n:]

	switch {
	case tail == "" || (tail[0] != ' ' && tail[0] != '\t'):
		return Forbidden
	case len(tail) >= 2 && (tail[1] == ' ' || tail[1] == '\t'):
		// Two blanks lead to an aligned inline comment.
		return Forbidden
	case isWord(tail[1:]):
		return AfterAmount
	}
	return Forbidden
}

func skipSignAndCommodity(s string) string {
	s = strings.TrimLeft(s, "-+")
	if strings.HasPrefix(s, `"`) {
		if end := strings.IndexByte(s[1:], '"'); end >= 0 {
			s = s[end+2:]
		}
	} else {
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.Is(unicode.Sc, r) || r == '_'
		})
	}
	s = strings.TrimLeft(s, " ")
	return strings.TrimLeft(s, "-+")
}

// isWord reports whether s is empty or a partially typed commodity.
func isWord(s string) bool {
	if strings.HasPrefix(s, `"`) {
		return !strings.ContainsRune(s[1:], '"')
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.Is(unicode.Sc, r) && r != '_' {
			return false
		}
	}
	return true
}
