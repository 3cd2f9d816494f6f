package include

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolvePath makes includePath absolute relative to the directory of the
// including file, expanding a leading ~.
func ResolvePath(basePath, includePath string) string {
	if strings.HasPrefix(includePath, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			if includePath == "~" {
				return home
			}
			includePath = filepath.Join(home, includePath[2:])
		}
	}

	if filepath.IsAbs(includePath) {
		return filepath.Clean(includePath)
	}

	baseDir := filepath.Dir(basePath)
	resolved := filepath.Join(baseDir, includePath)
	return filepath.Clean(resolved)
}

// IsGlob reports whether an include path is a pattern.
func IsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{") || strings.Contains(path, "<->")
}

// numericRange is hledger's <-> pattern: one or more digits.
const numericRange = "<->"

// ExpandGlob returns the files matching pattern, sorted. hledger's <->
// matches a run of digits; the rest is doublestar syntax.
func ExpandGlob(pattern string) ([]string, error) {
	var filter *regexp.Regexp
	if strings.Contains(pattern, numericRange) {
		filter = numericFilter(pattern)
		pattern = strings.ReplaceAll(pattern, numericRange, "*")
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	if filter != nil {
		matches = slices.DeleteFunc(matches, func(m string) bool {
			return !filter.MatchString(filepath.ToSlash(m))
		})
	}
	slices.Sort(matches)
	return matches, nil
}

func numericFilter(pattern string) *regexp.Regexp {
	parts := strings.Split(filepath.ToSlash(pattern), numericRange)
	for i, part := range parts {
		part = regexp.QuoteMeta(part)
		part = strings.ReplaceAll(part, `\*\*/`, `(?:.*/)?`)
		part = strings.ReplaceAll(part, `\*`, `[^/]*`)
		part = strings.ReplaceAll(part, `\?`, `[^/]`)
		parts[i] = part
	}
	return regexp.MustCompile("^" + strings.Join(parts, `\d+`) + "$")
}
