package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juev/hledger-complete/internal/ast"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw  string
		mark rune
		want string
	}{
		{raw: "100", want: "100"},
		{raw: "-12.50", want: "-12.5"},
		{raw: "+7", want: "7"},
		{raw: "1,000.50", want: "1000.5"},
		{raw: "1.000,50", want: "1000.5"},
		{raw: "1,000,000", want: "1000000"},
		{raw: "1.000.000", want: "1000000"},
		{raw: "1,5", want: "1.5"},
		{raw: "1'000'000.25", want: "1000000.25"},
		{raw: "1 000,50", want: "1000.5"},
		{raw: "10.", want: "10"},
		{raw: ".5", want: "0.5"},
		{raw: "1,000", mark: '.', want: "1000"},
		{raw: "1.000", mark: ',', want: "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseQuantity(tt.raw, tt.mark)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseQuantity_Invalid(t *testing.T) {
	for _, raw := range []string{"1.2.3,4", "1.5,000", "abc", ""} {
		_, err := ParseQuantity(raw, '.')
		assert.Error(t, err, raw)
	}
}

func TestParseNumberFormat(t *testing.T) {
	tests := []struct {
		sample string
		want   NumberFormat
	}{
		{sample: "$1,000.00", want: NumberFormat{DecimalMark: '.', ThousandsSep: ",", DecimalPlaces: 2, HasDecimal: true}},
		{sample: "1.000,00 EUR", want: NumberFormat{DecimalMark: ',', ThousandsSep: ".", DecimalPlaces: 2, HasDecimal: true}},
		{sample: "1 000,00 RUB", want: NumberFormat{DecimalMark: ',', ThousandsSep: " ", DecimalPlaces: 2, HasDecimal: true}},
		{sample: "1,000,000 JPY", want: NumberFormat{DecimalMark: '.', ThousandsSep: ","}},
		{sample: "100 USD", want: NumberFormat{DecimalMark: '.'}},
		{sample: "EUR", want: NumberFormat{DecimalMark: '.'}},
	}

	for _, tt := range tests {
		t.Run(tt.sample, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumberFormat(tt.sample))
		})
	}
}

func TestSymbolPosition(t *testing.T) {
	tests := map[string]ast.CommodityPosition{
		"$1,000.00":     ast.CommodityLeft,
		"-€5":           ast.CommodityLeft,
		"\"AB C\" 10":   ast.CommodityLeft,
		"1.000,00 EUR":  ast.CommodityRight,
		"-1 000,00 RUB": ast.CommodityRight,
		"EUR":           ast.CommodityRight,
		"":              ast.CommodityRight,
	}
	for sample, want := range tests {
		assert.Equal(t, want, SymbolPosition(sample), sample)
	}
}
