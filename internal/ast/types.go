package ast

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Range struct {
	Start Position
	End   Position
}

type Position struct {
	Line   int
	Column int
	Offset int
}

type Journal struct {
	Transactions []Transaction
	Directives   []Directive
	Comments     []Comment
	Includes     []Include
}

type Transaction struct {
	Date        Date
	Date2       *Date
	Status      Status
	Code        string
	Description string
	Payee       string
	Note        string
	Postings    []Posting
	Tags        []Tag
	Comments    []Comment
	Range       Range
	// Malformed is set when at least one posting line could not be parsed;
	// Postings is empty in that case.
	Malformed bool
}

// Date is a calendar date; String renders it as YYYY-MM-DD. Raw keeps the
// text as written.
type Date struct {
	Year  int
	Month int
	Day   int
	Raw   string
	Range Range
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

type Status int

const (
	StatusNone Status = iota
	StatusPending
	StatusCleared
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCleared:
		return "cleared"
	default:
		return "none"
	}
}

type Posting struct {
	Status           Status
	Account          Account
	Amount           *Amount
	BalanceAssertion *BalanceAssertion
	Cost             *Cost
	Comment          string
	Tags             []Tag
	Virtual          VirtualType
	Range            Range
}

type VirtualType int

const (
	VirtualNone VirtualType = iota
	VirtualBalanced
	VirtualUnbalanced
)

type Account struct {
	Name  string
	Range Range
}

// Amount keeps the quantity as written (Raw) next to its parsed value.
type Amount struct {
	Quantity  decimal.Decimal
	Raw       string
	Commodity Commodity
	Range     Range
}

// Text renders the amount the way it was written, commodity included.
func (a Amount) Text() string {
	sym := a.Commodity.Display()
	switch {
	case sym == "":
		return a.Raw
	case a.Commodity.Position == CommodityLeft:
		if a.Commodity.Spaced {
			return sym + " " + a.Raw
		}
		return sym + a.Raw
	default:
		return a.Raw + " " + sym
	}
}

type Commodity struct {
	Symbol   string
	Position CommodityPosition
	Quoted   bool
	Spaced   bool
	Range    Range
}

// Display quotes symbols that need it.
func (c Commodity) Display() string {
	if c.Quoted {
		return `"` + c.Symbol + `"`
	}
	return c.Symbol
}

type CommodityPosition int

const (
	CommodityRight CommodityPosition = iota
	CommodityLeft
)

type Cost struct {
	Amount  Amount
	IsTotal bool
	Range   Range
}

type BalanceAssertion struct {
	Amount   Amount
	IsStrict bool
	Range    Range
}

type Directive interface {
	directive()
	GetRange() Range
}

type AccountDirective struct {
	Account Account
	Comment string
	Tags    []Tag
	Range   Range
}

func (AccountDirective) directive()        {}
func (d AccountDirective) GetRange() Range { return d.Range }

// CommodityDirective declares a commodity, optionally with a sample amount
// describing its display format.
type CommodityDirective struct {
	Commodity Commodity
	Sample    string
	Format    string
	Range     Range
}

func (CommodityDirective) directive()        {}
func (d CommodityDirective) GetRange() Range { return d.Range }

type DefaultCommodityDirective struct {
	Amount Amount
	Range  Range
}

func (DefaultCommodityDirective) directive()        {}
func (d DefaultCommodityDirective) GetRange() Range { return d.Range }

type DecimalMarkDirective struct {
	Mark  rune
	Range Range
}

func (DecimalMarkDirective) directive()        {}
func (d DecimalMarkDirective) GetRange() Range { return d.Range }

type Include struct {
	Path  string
	Range Range
}

func (Include) directive()        {}
func (i Include) GetRange() Range { return i.Range }

type PriceDirective struct {
	Date      Date
	Commodity Commodity
	Price     Amount
	Range     Range
}

func (PriceDirective) directive()        {}
func (d PriceDirective) GetRange() Range { return d.Range }

type PayeeDirective struct {
	Name  string
	Range Range
}

func (PayeeDirective) directive()        {}
func (d PayeeDirective) GetRange() Range { return d.Range }

type TagDirective struct {
	Name  string
	Range Range
}

func (TagDirective) directive()        {}
func (d TagDirective) GetRange() Range { return d.Range }

type AliasDirective struct {
	From  string
	To    string
	Range Range
}

func (AliasDirective) directive()        {}
func (d AliasDirective) GetRange() Range { return d.Range }

type YearDirective struct {
	Year  int
	Range Range
}

func (YearDirective) directive()        {}
func (d YearDirective) GetRange() Range { return d.Range }

type Comment struct {
	Text  string
	Tags  []Tag
	Range Range
}

type Tag struct {
	Name  string
	Value string
	Range Range
}
