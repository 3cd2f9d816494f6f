package completion

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat describes how a journal writes its dates.
type DateFormat struct {
	Separator    string
	HasYear      bool
	YearLast     bool
	DayFirst     bool
	LeadingZeros bool
}

var defaultDateFormat = DateFormat{Separator: "-", HasYear: true, LeadingZeros: true}

// DetectDateFormat infers the format from a date as written, such as
// "2024/1/5" or "05.01.2024". dayFirst decides year-last dates.
func DetectDateFormat(sample string, dayFirst bool) DateFormat {
	for _, sep := range []string{"-", "/", "."} {
		if format, ok := tryParseDateWithSep(sample, sep, dayFirst); ok {
			return format
		}
	}
	return defaultDateFormat
}

func tryParseDateWithSep(sample, sep string, dayFirst bool) (DateFormat, bool) {
	parts := strings.Split(sample, sep)
	for _, p := range parts {
		if !isAllDigits(p) {
			return DateFormat{}, false
		}
	}

	switch {
	case len(parts) == 3 && len(parts[0]) == 4:
		return DateFormat{
			Separator:    sep,
			HasYear:      true,
			LeadingZeros: len(parts[1]) == 2 && len(parts[2]) == 2,
		}, true
	case len(parts) == 3 && len(parts[2]) == 4:
		return DateFormat{
			Separator:    sep,
			HasYear:      true,
			YearLast:     true,
			DayFirst:     dayFirst,
			LeadingZeros: len(parts[0]) == 2 && len(parts[1]) == 2,
		}, true
	case len(parts) == 2 && len(parts[0]) <= 2:
		return DateFormat{
			Separator:    sep,
			LeadingZeros: len(parts[0]) == 2 && len(parts[1]) == 2,
		}, true
	}
	return DateFormat{}, false
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Format renders t in f.
func (f DateFormat) Format(t time.Time) string {
	month := int(t.Month())
	day := t.Day()

	var monthStr, dayStr string
	if f.LeadingZeros {
		monthStr = fmt.Sprintf("%02d", month)
		dayStr = fmt.Sprintf("%02d", day)
	} else {
		monthStr = fmt.Sprintf("%d", month)
		dayStr = fmt.Sprintf("%d", day)
	}

	md := monthStr + f.Separator + dayStr
	if f.DayFirst {
		md = dayStr + f.Separator + monthStr
	}

	switch {
	case !f.HasYear:
		return md
	case f.YearLast:
		return fmt.Sprintf("%s%s%04d", md, f.Separator, t.Year())
	}
	return fmt.Sprintf("%04d%s%s", t.Year(), f.Separator, md)
}

type dateCandidate struct {
	label  string
	detail string
}

// dateCandidates lists today, yesterday and tomorrow followed by the
// journal's own dates, newest first, all in format f.
func dateCandidates(now time.Time, history []string, f DateFormat) []dateCandidate {
	out := []dateCandidate{
		{label: f.Format(now), detail: "today"},
		{label: f.Format(now.AddDate(0, 0, -1)), detail: "yesterday"},
		{label: f.Format(now.AddDate(0, 0, 1)), detail: "tomorrow"},
	}
	seen := map[string]bool{out[0].label: true, out[1].label: true, out[2].label: true}

	for _, date := range history {
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			continue
		}
		label := f.Format(t)
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, dateCandidate{label: label, detail: "from history"})
	}
	return out
}
