package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/juev/hledger-complete/internal/ast"
)

var ErrPartialDate = errors.New("partial date without a year")

// DateContext supplies what a date needs beyond its own text.
type DateContext struct {
	// DefaultYear completes MM-DD dates; zero means "no year known".
	DefaultYear int
	// MonthFirst reads year-last dates as MM/DD/YYYY instead of DD.MM.YYYY.
	MonthFirst bool
}

// ParseDate reads any of the accepted date shapes: YYYY-MM-DD, MM-DD and
// DD.MM.YYYY, each with '-', '/' or '.' as separator.
func ParseDate(raw string, dc DateContext) (ast.Date, error) {
	sep := strings.IndexAny(raw, "-/.")
	if sep < 0 {
		return ast.Date{}, fmt.Errorf("invalid date format: %s", raw)
	}
	parts := strings.Split(raw, raw[sep:sep+1])

	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || part == "" {
			return ast.Date{}, fmt.Errorf("invalid date format: %s", raw)
		}
		nums[i] = n
	}

	var year, month, day int
	switch {
	case len(parts) == 2:
		if dc.DefaultYear == 0 {
			return ast.Date{}, fmt.Errorf("%w: %s", ErrPartialDate, raw)
		}
		year, month, day = dc.DefaultYear, nums[0], nums[1]
	case len(parts) == 3 && len(parts[0]) == 4:
		year, month, day = nums[0], nums[1], nums[2]
	case len(parts) == 3 && len(parts[2]) == 4:
		year, month, day = nums[2], nums[1], nums[0]
		if dc.MonthFirst {
			month, day = nums[0], nums[1]
		}
	default:
		return ast.Date{}, fmt.Errorf("invalid date format: %s", raw)
	}

	if month < 1 || month > 12 {
		return ast.Date{}, fmt.Errorf("invalid month: %s", raw)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if day < 1 || t.Day() != day {
		return ast.Date{}, fmt.Errorf("invalid day: %s", raw)
	}

	return ast.Date{Year: year, Month: month, Day: day, Raw: raw}, nil
}

// NormalizeDate renders raw as YYYY-MM-DD.
func NormalizeDate(raw string, dc DateContext) (string, error) {
	d, err := ParseDate(raw, dc)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}
