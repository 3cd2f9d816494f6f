package model

import (
	"github.com/juev/hledger-complete/internal/ast"
	"github.com/juev/hledger-complete/internal/parser"
)

// CommodityFormat is the display format declared for a commodity, by a
// commodity directive, its format subdirective or a D directive.
type CommodityFormat struct {
	// Sample is the amount as written in the declaration.
	Sample   string
	Number   parser.NumberFormat
	Position ast.CommodityPosition
}

func newCommodityFormat(sample string) CommodityFormat {
	return CommodityFormat{
		Sample:   sample,
		Number:   parser.ParseNumberFormat(sample),
		Position: parser.SymbolPosition(sample),
	}
}
