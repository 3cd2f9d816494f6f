package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/juev/hledger-complete/internal/ast"
)

// NumberFormat describes how a commodity writes its quantities.
type NumberFormat struct {
	DecimalMark   rune
	ThousandsSep  string
	DecimalPlaces int
	HasDecimal    bool
}

// ParseNumberFormat derives the format from a sample amount such as
// "1.000,00 EUR" or "$1,000.00".
func ParseNumberFormat(sample string) NumberFormat {
	nf := NumberFormat{DecimalMark: '.'}

	numberPart := extractNumberPart(sample)
	if numberPart == "" {
		return nf
	}

	lastDot := strings.LastIndex(numberPart, ".")
	lastComma := strings.LastIndex(numberPart, ",")

	switch {
	case lastDot > lastComma:
		nf.DecimalMark = '.'
		nf.HasDecimal = true
		if lastComma >= 0 {
			nf.ThousandsSep = ","
		} else if strings.Contains(numberPart[:lastDot], " ") {
			nf.ThousandsSep = " "
		}
		nf.DecimalPlaces = len(numberPart) - lastDot - 1
	case lastComma > lastDot:
		nf.DecimalMark = ','
		nf.HasDecimal = true
		if lastDot >= 0 {
			nf.ThousandsSep = "."
		} else if strings.Contains(numberPart[:lastComma], " ") {
			nf.ThousandsSep = " "
		}
		nf.DecimalPlaces = len(numberPart) - lastComma - 1
	default:
		if strings.Contains(numberPart, " ") {
			nf.ThousandsSep = " "
		}
	}

	// "1,000" alone is a grouped integer, not one with three decimals.
	if nf.HasDecimal && strings.Count(numberPart, string(nf.DecimalMark)) > 1 {
		nf.ThousandsSep = string(nf.DecimalMark)
		nf.HasDecimal = false
		nf.DecimalPlaces = 0
		nf.DecimalMark = '.'
		if nf.ThousandsSep == "." {
			nf.DecimalMark = ','
		}
	}

	return nf
}

// SymbolPosition reports on which side of the quantity a sample amount
// writes its commodity. A bare number or symbol counts as right.
func SymbolPosition(sample string) ast.CommodityPosition {
	s := strings.TrimLeft(strings.TrimSpace(sample), "-+")
	r, _ := utf8.DecodeRuneInString(s)
	if unicode.IsDigit(r) || r == '.' || r == ',' || !strings.ContainsFunc(s, unicode.IsDigit) {
		return ast.CommodityRight
	}
	return ast.CommodityLeft
}

func extractNumberPart(s string) string {
	var start, end int
	inNumber := false
	lastDigitPos := -1

	for i, r := range s {
		isNumberChar := unicode.IsDigit(r) || r == '.' || r == ',' || r == ' '
		if isNumberChar {
			if !inNumber {
				start = i
				inNumber = true
			}
			if unicode.IsDigit(r) {
				lastDigitPos = i
			}
			end = i + utf8.RuneLen(r)
		} else if inNumber {
			break
		}
	}

	if !inNumber || lastDigitPos < 0 {
		return ""
	}
	return strings.TrimSpace(s[start:end])
}

// ParseQuantity parses a quantity written with either separator convention.
// A zero mark means the decimal mark is not known and is inferred: with
// both separators present the last one is the decimal mark, a separator
// repeated more than once is grouping, and a single one is the decimal mark.
func ParseQuantity(raw string, mark rune) (decimal.Decimal, error) {
	s := strings.NewReplacer("'", "", " ", "").Replace(raw)
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if sign == "+" {
		sign = ""
	}

	if mark == 0 {
		mark = inferDecimalMark(s)
	}
	group := ','
	if mark == ',' {
		group = '.'
	}

	if i := strings.IndexRune(s, mark); i >= 0 {
		if strings.ContainsRune(s[i+1:], mark) || strings.ContainsRune(s[i+1:], group) {
			return decimal.Decimal{}, fmt.Errorf("invalid number: %s", raw)
		}
	}

	s = strings.ReplaceAll(s, string(group), "")
	s = strings.Replace(s, string(mark), ".", 1)
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}

	qty, err := decimal.NewFromString(sign + s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid number: %s", raw)
	}
	return qty, nil
}

func inferDecimalMark(s string) rune {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return ','
		}
		return '.'
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return '.'
		}
		return ','
	default:
		if strings.Count(s, ".") > 1 {
			return ','
		}
		return '.'
	}
}
