package parser

import (
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

// lexState selects the rule table applied at the current position. A line
// always starts in stateLineStart; the first rule that matches decides which
// table handles the rest of the line.
type lexState int

const (
	stateLineStart lexState = iota
	stateHeader
	stateHeaderTail
	stateNote
	statePosting
	stateAmount
	stateArg
	stateAccountArg
	stateAliasArg
	statePriceArg
	statePayeeArg
	stateTagArg
	stateTrailing
)

const stay lexState = -1

type rule struct {
	typ     TokenType
	pattern *regexp.Regexp
	next    lexState
	// group, when non-zero, selects the submatch used as the token value.
	group int
	// keyword rules pick the next state from directiveStates.
	keyword bool
}

const (
	datePattern = `\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{4}|\d{1,2}[-/.]\d{1,2}`
	// quantityPattern accepts either separator in either role; the parser
	// decides which one is the decimal mark.
	quantityPattern = `[-+]?(?:\d(?:[\d,.']*\d)?(?: \d{3}(?:[\d,.']*\d)?)*[.,]?|[.,]\d+)`
	accountPattern  = `[^\s;]+(?: [^\s;]+)*`
	tagPattern      = `(?:^|[\s,])([\p{L}\p{N}_-]+):([^,]*)`
)

var (
	dateRe     = regexp.MustCompile(`^(?:` + datePattern + `)`)
	quantityRe = regexp.MustCompile(`^` + quantityPattern)
	tagRe      = regexp.MustCompile(tagPattern)
)

func re(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + pattern + `)`)
}

var directiveStates = map[string]lexState{
	"account":      stateAccountArg,
	"alias":        stateAliasArg,
	"commodity":    stateAmount,
	"D":            stateAmount,
	"P":            statePriceArg,
	"payee":        statePayeeArg,
	"tag":          stateTagArg,
	"decimal-mark": stateArg,
	"include":      stateArg,
	"Y":            stateArg,
	"year":         stateArg,
	"apply":        stateArg,
	"end":          stateArg,
	"comment":      stateArg,
}

var (
	commentRule  = rule{typ: TokenComment, pattern: re(`;(.*)`), next: stateTrailing, group: 1}
	catchAllRule = rule{typ: TokenText, pattern: re(`\S+`), next: stay}
)

// rules is the lexer's pattern table. Order inside a state is priority.
var rules = map[lexState][]rule{
	stateLineStart: {
		{typ: TokenComment, pattern: re(`[;#*](.*)`), next: stateTrailing, group: 1},
		{typ: TokenIndent, pattern: re(`[ \t]+`), next: statePosting},
		{typ: TokenDate, pattern: re(datePattern), next: stateHeader},
		{typ: TokenDirective, pattern: re(`(account|alias|apply|commodity|comment|decimal-mark|end|include|payee|tag|year|D|P|Y)(?:[ \t]+|$)`), group: 1, keyword: true},
		{typ: TokenText, pattern: re(`.+`), next: stateTrailing},
	},
	stateHeader: {
		{typ: TokenDate, pattern: re(`=(` + datePattern + `)`), next: stay, group: 1},
		{typ: TokenStatus, pattern: re(`[*!]`), next: stay},
		{typ: TokenCode, pattern: re(`\(([^)\n]*)\)`), next: stay, group: 1},
		commentRule,
		{typ: TokenOperator, pattern: re(`\|`), next: stateNote},
		{typ: TokenPayee, pattern: re(`[^|;]*[^|;\s]`), next: stateHeaderTail},
	},
	stateHeaderTail: {
		{typ: TokenOperator, pattern: re(`\|`), next: stateNote},
		commentRule,
		catchAllRule,
	},
	stateNote: {
		commentRule,
		{typ: TokenNote, pattern: re(`[^;]*[^;\s]`), next: stateHeaderTail},
	},
	statePosting: {
		commentRule,
		{typ: TokenStatus, pattern: re(`([*!])(?:[ \t]+|$)`), next: stay, group: 1},
		{typ: TokenAccount, pattern: re(accountPattern), next: stateAmount},
	},
	stateAmount: {
		commentRule,
		{typ: TokenOperator, pattern: re(`@@|@|==?\*?`), next: stay},
		{typ: TokenCommodity, pattern: re(`"([^"]*)"`), next: stay, group: 1},
		{typ: TokenText, pattern: re(`".*`), next: stateTrailing},
		{typ: TokenAmount, pattern: re(quantityPattern), next: stay},
		{typ: TokenOperator, pattern: re(`[-+]`), next: stay},
		{typ: TokenCommodity, pattern: re(`\p{Sc}|[\p{L}_]+`), next: stay},
		catchAllRule,
	},
	stateArg: {
		commentRule,
		{typ: TokenText, pattern: re(`[^;]*[^;\s]`), next: stateTrailing},
	},
	stateAccountArg: {
		commentRule,
		{typ: TokenAccount, pattern: re(accountPattern), next: stateTrailing},
	},
	stateAliasArg: {
		commentRule,
		{typ: TokenOperator, pattern: re(`=`), next: stay},
		{typ: TokenAccount, pattern: re(`[^=;]*[^=;\s]`), next: stay},
	},
	statePriceArg: {
		{typ: TokenDate, pattern: re(datePattern), next: stateAmount},
		catchAllRule,
	},
	statePayeeArg: {
		commentRule,
		{typ: TokenPayee, pattern: re(`[^;]*[^;\s]`), next: stateTrailing},
	},
	stateTagArg: {
		commentRule,
		{typ: TokenTagKey, pattern: re(`[^\s;]+`), next: stateTrailing},
	},
	stateTrailing: {
		commentRule,
		catchAllRule,
	},
}

// Lexer turns journal text into tokens. It never fails: input no rule
// recognizes comes out as TokenText.
type Lexer struct {
	input   string
	pos     int
	line    int
	column  int
	state   lexState
	pending []Token
}

func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		column: 1,
		state:  stateLineStart,
	}
}

// Tokenize returns a lazy token sequence ending with TokenEOF. Every range
// over the sequence starts a fresh lexer.
func Tokenize(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		l := NewLexer(text)
		for {
			tok := l.Next()
			if !yield(tok) || tok.Type == TokenEOF {
				return
			}
		}
	}
}

func (l *Lexer) Next() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\n':
			return l.scanNewline()
		case ch == '\r':
			l.advance(1)
			continue
		case l.state != stateLineStart && (ch == ' ' || ch == '\t'):
			l.advance(1)
			continue
		}
		return l.scan(rules[l.state])
	}

	pos := l.position()
	return Token{Type: TokenEOF, Pos: pos, End: pos}
}

func (l *Lexer) scanNewline() Token {
	start := l.position()
	l.pos++
	l.line++
	l.column = 1
	l.state = stateLineStart
	return Token{Type: TokenNewline, Value: "\n", Pos: start, End: l.position()}
}

func (l *Lexer) scan(table []rule) Token {
	rest := l.input[l.pos:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimSuffix(rest, "\r")

	for _, r := range table {
		loc := r.pattern.FindStringSubmatchIndex(rest)
		if loc == nil || loc[1] == 0 {
			continue
		}
		return l.emit(r, rest, loc)
	}

	// Tables end in a catch-all, so this only triggers on a lone '\r'
	// or similar; keep moving.
	start := l.position()
	_, size := utf8.DecodeRuneInString(rest)
	if size == 0 {
		size = 1
	}
	value := l.input[l.pos : l.pos+size]
	l.advance(size)
	return Token{Type: TokenText, Value: value, Pos: start, End: l.position()}
}

func (l *Lexer) emit(r rule, rest string, loc []int) Token {
	valueStart, valueEnd := loc[0], loc[1]
	if r.group > 0 && loc[2*r.group] >= 0 {
		valueStart, valueEnd = loc[2*r.group], loc[2*r.group+1]
	}

	start := l.position()
	valuePos := l.offsetPosition(rest, valueStart)
	endPos := l.offsetPosition(rest, valueEnd)
	value := rest[valueStart:valueEnd]

	tok := Token{Type: r.typ, Value: value, Pos: start, End: endPos}
	l.advance(loc[1])

	switch {
	case r.keyword:
		l.state = directiveStates[value]
	case r.next != stay:
		l.state = r.next
	}

	if r.typ == TokenComment || r.typ == TokenNote {
		l.pending = append(l.pending, scanTags(value, valuePos)...)
	}
	return tok
}

// scanTags finds key:value pairs inside comment or note text.
func scanTags(text string, base Position) []Token {
	var tokens []Token
	for _, m := range tagRe.FindAllStringSubmatchIndex(text, -1) {
		keyStart, keyEnd := m[2], m[3]
		tokens = append(tokens, Token{
			Type:  TokenTagKey,
			Value: text[keyStart:keyEnd],
			Pos:   shift(base, text, keyStart),
			End:   shift(base, text, keyEnd),
		})

		raw := text[m[4]:m[5]]
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		valueStart := m[4] + strings.Index(raw, value)
		tokens = append(tokens, Token{
			Type:  TokenTagValue,
			Value: value,
			Pos:   shift(base, text, valueStart),
			End:   shift(base, text, valueStart+len(value)),
		})
	}
	return tokens
}

func shift(base Position, text string, byteOffset int) Position {
	return Position{
		Line:   base.Line,
		Column: base.Column + utf8.RuneCountInString(text[:byteOffset]),
		Offset: base.Offset + byteOffset,
	}
}

func (l *Lexer) offsetPosition(rest string, byteOffset int) Position {
	return shift(l.position(), rest, byteOffset)
}

func (l *Lexer) advance(n int) {
	l.column += utf8.RuneCountInString(l.input[l.pos : l.pos+n])
	l.pos += n
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.pos}
}

// LeadingDate reports the length in bytes of a date at the start of s, or 0.
func LeadingDate(s string) int {
	loc := dateRe.FindStringIndex(s)
	if loc == nil {
		return 0
	}
	return loc[1]
}

// LeadingQuantity reports the length in bytes of a number at the start of s, or 0.
func LeadingQuantity(s string) int {
	loc := quantityRe.FindStringIndex(s)
	if loc == nil {
		return 0
	}
	return loc[1]
}
