package parser

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/juev/hledger-complete/internal/ast"
)

const DefaultChunkLines = 1000

type ParseError struct {
	Message string
	Pos     Position
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Options tune parsing. The zero value is usable.
type Options struct {
	// ChunkLines is how many lines are processed between cancellation
	// checks and calls to Yield.
	ChunkLines int
	// Yield is called between chunks; runtime.Gosched when nil.
	Yield func()
	// MonthFirst reads year-last dates as MM/DD/YYYY.
	MonthFirst bool
	// Now supplies the current year for MM-DD dates without a Y directive.
	Now func() time.Time
}

type Parser struct {
	opts    Options
	journal *ast.Journal
	errors  []ParseError

	current      *ast.Transaction
	skipping     bool
	lastDir      ast.Directive
	commentBlock bool

	defaultYear      int
	decimalMark      rune
	commodityMarks   map[string]rune
	defaultCommodity *ast.Commodity
	aliases          []ast.AliasDirective
}

func Parse(input string) (*ast.Journal, []ParseError) {
	journal, errs, _ := ParseContext(context.Background(), Tokenize(input), Options{})
	return journal, errs
}

func ParseTokens(tokens iter.Seq[Token], opts Options) (*ast.Journal, []ParseError) {
	journal, errs, _ := ParseContext(context.Background(), tokens, opts)
	return journal, errs
}

// ParseContext groups the token stream into line records and builds the
// journal. Between chunks of lines it checks ctx and yields; a cancelled
// context returns what was parsed so far together with ctx.Err().
func ParseContext(ctx context.Context, tokens iter.Seq[Token], opts Options) (*ast.Journal, []ParseError, error) {
	if opts.ChunkLines <= 0 {
		opts.ChunkLines = DefaultChunkLines
	}
	if opts.Yield == nil {
		opts.Yield = runtime.Gosched
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p := &Parser{
		opts:           opts,
		journal:        &ast.Journal{},
		commodityMarks: make(map[string]rune),
	}

	var (
		line  []Token
		lines int
		err   error
	)
	for tok := range tokens {
		if tok.Type != TokenNewline && tok.Type != TokenEOF {
			line = append(line, tok)
			continue
		}
		p.parseLine(line, tok.Pos)
		line = line[:0]
		if tok.Type == TokenEOF {
			break
		}
		lines++
		if lines%opts.ChunkLines == 0 {
			if err = ctx.Err(); err != nil {
				break
			}
			opts.Yield()
		}
	}
	if len(line) > 0 {
		p.parseLine(line, line[len(line)-1].End)
	}
	p.finishTransaction(Position{})

	return p.journal, p.errors, err
}

func (p *Parser) parseLine(tokens []Token, end Position) {
	if len(tokens) == 0 {
		p.finishTransaction(end)
		return
	}

	first := tokens[0]
	if p.commentBlock {
		if first.Type == TokenDirective && first.Value == "end" &&
			len(tokens) > 1 && strings.HasPrefix(tokens[1].Value, "comment") {
			p.commentBlock = false
		}
		return
	}

	switch first.Type {
	case TokenIndent:
		if len(tokens) == 1 {
			p.finishTransaction(end)
			return
		}
		p.parseIndented(tokens[1:], end)
	case TokenDate:
		p.finishTransaction(first.Pos)
		p.parseHeader(tokens, end)
	case TokenDirective:
		p.finishTransaction(first.Pos)
		p.parseDirective(tokens, end)
	case TokenComment:
		p.finishTransaction(first.Pos)
		p.journal.Comments = append(p.journal.Comments, commentFrom(first, tokens[1:]))
	default:
		p.finishTransaction(first.Pos)
		p.errorAt(first.Pos, "unexpected token: %s", first.Type)
	}
}

func (p *Parser) parseHeader(tokens []Token, end Position) {
	date, err := ParseDate(tokens[0].Value, p.dateContext())
	if err != nil {
		p.errorAt(tokens[0].Pos, "%v", err)
		p.skipping = true
		return
	}
	date.Range = ast.Range{Start: toASTPosition(tokens[0].Pos), End: toASTPosition(tokens[0].End)}

	tx := &ast.Transaction{Date: date}
	tx.Range.Start = toASTPosition(tokens[0].Pos)

	afterPipe := false
	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case TokenDate:
			if d2, err := ParseDate(tok.Value, p.dateContext()); err == nil {
				tx.Date2 = &d2
			} else {
				p.errorAt(tok.Pos, "%v", err)
			}
		case TokenStatus:
			tx.Status = statusOf(tok.Value)
		case TokenCode:
			tx.Code = strings.TrimSpace(tok.Value)
		case TokenPayee:
			tx.Payee = tok.Value
		case TokenOperator:
			afterPipe = tok.Value == "|"
		case TokenNote:
			if afterPipe {
				tx.Note = tok.Value
			}
		case TokenComment:
			tx.Comments = append(tx.Comments, commentFrom(tok, tokens[i+1:]))
		case TokenTagKey:
			tx.Tags = append(tx.Tags, tagAt(tokens, i))
		}
	}

	tx.Description = tx.Payee
	if tx.Note != "" {
		tx.Description = tx.Payee + " | " + tx.Note
	}
	tx.Range.End = toASTPosition(end)

	p.current = tx
	p.skipping = false
}

func (p *Parser) parseIndented(tokens []Token, end Position) {
	if p.skipping {
		return
	}
	if p.current == nil {
		p.parseSubdirective(tokens)
		return
	}

	tx := p.current
	tx.Range.End = toASTPosition(end)

	if tokens[0].Type == TokenComment {
		tx.Comments = append(tx.Comments, commentFrom(tokens[0], tokens[1:]))
		for i := range tokens {
			if tokens[i].Type == TokenTagKey {
				tx.Tags = append(tx.Tags, tagAt(tokens, i))
			}
		}
		return
	}

	posting, err := p.parsePosting(tokens, end)
	if err != nil {
		p.errorAt(err.Pos, "%s", err.Message)
		tx.Malformed = true
		return
	}
	tx.Postings = append(tx.Postings, *posting)
}

func (p *Parser) parsePosting(tokens []Token, end Position) (*ast.Posting, *ParseError) {
	posting := &ast.Posting{}
	posting.Range = ast.Range{Start: toASTPosition(tokens[0].Pos), End: toASTPosition(end)}

	i := 0
	if tokens[i].Type == TokenStatus {
		posting.Status = statusOf(tokens[i].Value)
		i++
	}
	if i >= len(tokens) || tokens[i].Type != TokenAccount {
		at := end
		if i < len(tokens) {
			at = tokens[i].Pos
		}
		return nil, &ParseError{Message: "expected account name", Pos: at}
	}

	name, virtual := splitVirtual(tokens[i].Value)
	posting.Virtual = virtual
	posting.Account = ast.Account{
		Name: p.applyAliases(name),
		Range: ast.Range{
			Start: toASTPosition(tokens[i].Pos),
			End:   toASTPosition(tokens[i].End),
		},
	}
	i++

	rest := tokens[i:]
	amountTokens, comment := splitComment(rest)

	if len(amountTokens) > 0 && !isPostingOperator(amountTokens[0]) {
		amount, n, perr := p.parseAmount(amountTokens)
		if perr != nil {
			return nil, perr
		}
		posting.Amount = amount
		amountTokens = amountTokens[n:]
	}

	for len(amountTokens) > 0 {
		op := amountTokens[0]
		if op.Type != TokenOperator {
			return nil, &ParseError{Message: fmt.Sprintf("unexpected %s in posting: %s", op.Type, op.Value), Pos: op.Pos}
		}
		amount, n, perr := p.parseAmount(amountTokens[1:])
		if perr != nil {
			return nil, perr
		}
		r := ast.Range{Start: toASTPosition(op.Pos), End: amount.Range.End}
		switch op.Value {
		case "@", "@@":
			posting.Cost = &ast.Cost{Amount: *amount, IsTotal: op.Value == "@@", Range: r}
		case "=", "=*", "==", "==*":
			posting.BalanceAssertion = &ast.BalanceAssertion{Amount: *amount, IsStrict: strings.HasPrefix(op.Value, "=="), Range: r}
		default:
			return nil, &ParseError{Message: "unexpected operator: " + op.Value, Pos: op.Pos}
		}
		amountTokens = amountTokens[1+n:]
	}

	if len(comment) > 0 {
		posting.Comment = comment[0].Value
		for j := range comment {
			if comment[j].Type == TokenTagKey {
				posting.Tags = append(posting.Tags, tagAt(comment, j))
			}
		}
	}

	return posting, nil
}

// parseAmount reads [sign] [commodity] [sign] quantity [commodity] and
// reports how many tokens it consumed.
func (p *Parser) parseAmount(tokens []Token) (*ast.Amount, int, *ParseError) {
	if len(tokens) == 0 {
		return nil, 0, &ParseError{Message: "expected amount"}
	}

	amount := &ast.Amount{}
	amount.Range.Start = toASTPosition(tokens[0].Pos)
	negative := false
	i := 0

	if tokens[i].Type == TokenOperator && (tokens[i].Value == "-" || tokens[i].Value == "+") {
		negative = tokens[i].Value == "-"
		i++
	}
	if i < len(tokens) && tokens[i].Type == TokenCommodity {
		amount.Commodity = p.commodityFrom(tokens[i], ast.CommodityLeft)
		if i+1 < len(tokens) {
			amount.Commodity.Spaced = tokens[i+1].Pos.Offset > tokens[i].End.Offset+quoteWidth(tokens[i])
		}
		i++
		if i < len(tokens) && tokens[i].Type == TokenOperator && (tokens[i].Value == "-" || tokens[i].Value == "+") {
			negative = tokens[i].Value == "-"
			i++
		}
	}

	if i >= len(tokens) || tokens[i].Type != TokenAmount {
		at := tokens[len(tokens)-1].Pos
		if i < len(tokens) {
			at = tokens[i].Pos
		}
		return nil, 0, &ParseError{Message: "expected number", Pos: at}
	}

	numTok := tokens[i]
	mark := p.decimalMark
	i++
	if amount.Commodity.Symbol == "" && i < len(tokens) && tokens[i].Type == TokenCommodity {
		amount.Commodity = p.commodityFrom(tokens[i], ast.CommodityRight)
		i++
	}
	markSymbol := amount.Commodity.Symbol
	if markSymbol == "" && p.defaultCommodity != nil {
		markSymbol = p.defaultCommodity.Symbol
	}
	if m, ok := p.commodityMarks[markSymbol]; ok && m != 0 {
		mark = m
	}

	qty, err := ParseQuantity(numTok.Value, mark)
	if err != nil {
		return nil, 0, &ParseError{Message: err.Error(), Pos: numTok.Pos}
	}
	if negative {
		qty = qty.Neg()
	}
	amount.Quantity = qty
	amount.Raw = numTok.Value
	if negative && !strings.HasPrefix(amount.Raw, "-") {
		amount.Raw = "-" + amount.Raw
	}
	if amount.Commodity.Symbol == "" && p.defaultCommodity != nil {
		amount.Commodity = *p.defaultCommodity
	}
	amount.Range.End = toASTPosition(tokens[i-1].End)

	return amount, i, nil
}

func (p *Parser) parseDirective(tokens []Token, end Position) {
	keyword := tokens[0]
	args := tokens[1:]
	r := ast.Range{Start: toASTPosition(keyword.Pos), End: toASTPosition(end)}
	p.lastDir = nil

	argAt := func(typ TokenType) (Token, bool) {
		for _, tok := range args {
			if tok.Type == typ {
				return tok, true
			}
		}
		return Token{}, false
	}

	switch keyword.Value {
	case "account":
		acc, ok := argAt(TokenAccount)
		if !ok {
			p.errorAt(keyword.End, "expected account name")
			return
		}
		dir := ast.AccountDirective{
			Account: ast.Account{
				Name:  acc.Value,
				Range: ast.Range{Start: toASTPosition(acc.Pos), End: toASTPosition(acc.End)},
			},
			Range: r,
		}
		if c, ok := argAt(TokenComment); ok {
			dir.Comment = c.Value
		}
		for i := range args {
			if args[i].Type == TokenTagKey {
				dir.Tags = append(dir.Tags, tagAt(args, i))
			}
		}
		p.addDirective(dir)

	case "commodity":
		p.parseCommodityDirective(args, r)

	case "D":
		amountTokens, _ := splitComment(args)
		amount, _, perr := p.parseAmount(amountTokens)
		if perr != nil {
			p.errorAt(keyword.End, "%s", perr.Message)
			return
		}
		sym := amount.Commodity
		p.defaultCommodity = &sym
		p.commodityMarks[sym.Symbol] = ParseNumberFormat(amount.Raw).DecimalMark
		p.addDirective(ast.DefaultCommodityDirective{Amount: *amount, Range: r})

	case "decimal-mark":
		arg, ok := argAt(TokenText)
		if !ok || (arg.Value != "." && arg.Value != ",") {
			p.errorAt(keyword.End, "expected decimal mark '.' or ','")
			return
		}
		mark, _ := utf8.DecodeRuneInString(arg.Value)
		p.decimalMark = mark
		p.addDirective(ast.DecimalMarkDirective{Mark: mark, Range: r})

	case "include":
		arg, ok := argAt(TokenText)
		if !ok || strings.TrimSpace(arg.Value) == "" {
			p.errorAt(keyword.End, "expected file path")
			return
		}
		p.journal.Includes = append(p.journal.Includes, ast.Include{Path: strings.TrimSpace(arg.Value), Range: r})

	case "P":
		p.parsePriceDirective(args, r, keyword.End)

	case "payee":
		arg, ok := argAt(TokenPayee)
		if !ok {
			p.errorAt(keyword.End, "expected payee name")
			return
		}
		p.addDirective(ast.PayeeDirective{Name: arg.Value, Range: r})

	case "tag":
		arg, ok := argAt(TokenTagKey)
		if !ok {
			p.errorAt(keyword.End, "expected tag name")
			return
		}
		p.addDirective(ast.TagDirective{Name: arg.Value, Range: r})

	case "alias":
		p.parseAliasDirective(args, r, keyword.End)

	case "comment":
		p.commentBlock = true

	case "Y", "year":
		arg, ok := argAt(TokenText)
		year, err := strconv.Atoi(strings.TrimSpace(arg.Value))
		if !ok || err != nil || year < 1900 || year > 2200 {
			p.errorAt(keyword.End, "invalid year: %s", arg.Value)
			return
		}
		p.defaultYear = year
		p.addDirective(ast.YearDirective{Year: year, Range: r})
	}
}

func (p *Parser) parseCommodityDirective(args []Token, r ast.Range) {
	amountTokens, _ := splitComment(args)
	dir := ast.CommodityDirective{Range: r}

	if amount, _, perr := p.parseAmount(amountTokens); perr == nil {
		dir.Commodity = amount.Commodity
		dir.Sample = amount.Text()
	} else {
		for _, tok := range amountTokens {
			if tok.Type == TokenCommodity {
				dir.Commodity = p.commodityFrom(tok, ast.CommodityRight)
				break
			}
		}
	}
	if dir.Commodity.Symbol == "" && dir.Sample == "" {
		p.errorAt(toParserPosition(r.Start), "expected commodity")
		return
	}
	if dir.Sample != "" {
		dir.Format = dir.Sample
		p.commodityMarks[dir.Commodity.Symbol] = ParseNumberFormat(dir.Sample).DecimalMark
	}
	p.addDirective(dir)
}

func (p *Parser) parsePriceDirective(args []Token, r ast.Range, at Position) {
	if len(args) == 0 || args[0].Type != TokenDate {
		p.errorAt(at, "expected date")
		return
	}
	date, err := ParseDate(args[0].Value, p.dateContext())
	if err != nil {
		p.errorAt(args[0].Pos, "%v", err)
		return
	}
	amountTokens, _ := splitComment(args[1:])
	if len(amountTokens) < 2 || amountTokens[0].Type != TokenCommodity {
		p.errorAt(args[0].End, "expected commodity")
		return
	}
	price, _, perr := p.parseAmount(amountTokens[1:])
	if perr != nil {
		p.errorAt(perr.Pos, "%s", perr.Message)
		return
	}
	p.addDirective(ast.PriceDirective{
		Date:      date,
		Commodity: p.commodityFrom(amountTokens[0], ast.CommodityRight),
		Price:     *price,
		Range:     r,
	})
}

func (p *Parser) parseAliasDirective(args []Token, r ast.Range, at Position) {
	var names []string
	sawEquals := false
	for _, tok := range args {
		switch tok.Type {
		case TokenAccount:
			names = append(names, strings.TrimSpace(tok.Value))
		case TokenOperator:
			sawEquals = tok.Value == "="
		}
	}
	if !sawEquals || len(names) != 2 || names[0] == "" || names[1] == "" {
		p.errorAt(at, "expected alias OLD = NEW")
		return
	}
	alias := ast.AliasDirective{From: names[0], To: names[1], Range: r}
	p.aliases = append(p.aliases, alias)
	p.addDirective(alias)
}

// parseSubdirective handles indented lines under a directive; only the
// commodity "format" subdirective carries information.
func (p *Parser) parseSubdirective(tokens []Token) {
	cd, ok := p.lastDir.(ast.CommodityDirective)
	if !ok || tokens[0].Type != TokenAccount {
		return
	}
	sample, found := strings.CutPrefix(tokens[0].Value, "format ")
	if !found {
		return
	}
	cd.Format = strings.TrimSpace(sample)
	p.commodityMarks[cd.Commodity.Symbol] = ParseNumberFormat(cd.Format).DecimalMark
	p.journal.Directives[len(p.journal.Directives)-1] = cd
	p.lastDir = cd
}

func (p *Parser) addDirective(dir ast.Directive) {
	p.journal.Directives = append(p.journal.Directives, dir)
	p.lastDir = dir
}

func (p *Parser) finishTransaction(end Position) {
	p.skipping = false
	if p.current == nil {
		return
	}
	tx := p.current
	p.current = nil
	if tx.Malformed {
		tx.Postings = nil
	}
	p.journal.Transactions = append(p.journal.Transactions, *tx)
	p.lastDir = nil
}

func (p *Parser) dateContext() DateContext {
	year := p.defaultYear
	if year == 0 {
		year = p.opts.Now().Year()
	}
	return DateContext{DefaultYear: year, MonthFirst: p.opts.MonthFirst}
}

func (p *Parser) applyAliases(name string) string {
	for _, a := range p.aliases {
		if name == a.From {
			name = a.To
		} else if strings.HasPrefix(name, a.From+":") {
			name = a.To + name[len(a.From):]
		}
	}
	return name
}

func (p *Parser) commodityFrom(tok Token, pos ast.CommodityPosition) ast.Commodity {
	return ast.Commodity{
		Symbol:   tok.Value,
		Position: pos,
		Quoted:   quoteWidth(tok) > 0,
		Range:    ast.Range{Start: toASTPosition(tok.Pos), End: toASTPosition(tok.End)},
	}
}

// quoteWidth is 1 for a quoted commodity token: its End stops before the
// closing quote.
func quoteWidth(tok Token) int {
	if tok.Type == TokenCommodity && tok.End.Offset-tok.Pos.Offset != len(tok.Value) {
		return 1
	}
	return 0
}

func (p *Parser) errorAt(pos Position, format string, args ...any) {
	p.errors = append(p.errors, ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	})
}

func isPostingOperator(tok Token) bool {
	return tok.Type == TokenOperator && tok.Value != "-" && tok.Value != "+"
}

func splitComment(tokens []Token) (before, comment []Token) {
	for i, tok := range tokens {
		if tok.Type == TokenComment {
			return tokens[:i], tokens[i:]
		}
	}
	return tokens, nil
}

func splitVirtual(name string) (string, ast.VirtualType) {
	switch {
	case strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")"):
		return name[1 : len(name)-1], ast.VirtualUnbalanced
	case strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]"):
		return name[1 : len(name)-1], ast.VirtualBalanced
	}
	return name, ast.VirtualNone
}

func statusOf(s string) ast.Status {
	switch s {
	case "*":
		return ast.StatusCleared
	case "!":
		return ast.StatusPending
	}
	return ast.StatusNone
}

func commentFrom(tok Token, following []Token) ast.Comment {
	c := ast.Comment{
		Text:  tok.Value,
		Range: ast.Range{Start: toASTPosition(tok.Pos), End: toASTPosition(tok.End)},
	}
	for i := range following {
		if following[i].Type == TokenTagKey {
			c.Tags = append(c.Tags, tagAt(following, i))
		}
	}
	return c
}

// tagAt builds the tag whose key is tokens[i]; a directly following
// TagValue token is its value.
func tagAt(tokens []Token, i int) ast.Tag {
	tag := ast.Tag{
		Name:  tokens[i].Value,
		Range: ast.Range{Start: toASTPosition(tokens[i].Pos), End: toASTPosition(tokens[i].End)},
	}
	if i+1 < len(tokens) && tokens[i+1].Type == TokenTagValue {
		tag.Value = tokens[i+1].Value
		tag.Range.End = toASTPosition(tokens[i+1].End)
	}
	return tag
}

func toASTPosition(pos Position) ast.Position {
	return ast.Position{
		Line:   pos.Line,
		Column: pos.Column,
		Offset: pos.Offset,
	}
}

func toParserPosition(pos ast.Position) Position {
	return Position{
		Line:   pos.Line,
		Column: pos.Column,
		Offset: pos.Offset,
	}
}
