package parser

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNewline
	TokenIndent
	TokenDate
	TokenStatus
	TokenCode
	TokenPayee
	TokenNote
	TokenComment
	TokenDirective
	TokenAccount
	TokenAmount
	TokenCommodity
	TokenTagKey
	TokenTagValue
	TokenOperator
	// TokenText is the catch-all for input no other pattern recognizes.
	TokenText
)

type Position struct {
	Line   int
	Column int
	Offset int
}

type Token struct {
	Type  TokenType
	Value string
	Pos   Position
	End   Position
}

func (t TokenType) String() string {
	names := []string{
		"EOF", "Newline", "Indent", "Date", "Status", "Code",
		"Payee", "Note", "Comment", "Directive", "Account", "Amount",
		"Commodity", "TagKey", "TagValue", "Operator", "Text",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}
