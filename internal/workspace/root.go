package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/juev/hledger-complete/internal/include"
	"github.com/juev/hledger-complete/internal/parser"
)

var journalExts = []string{".journal", ".j", ".hledger", ".ledger"}

func isJournalFile(path string) bool {
	return slices.Contains(journalExts, filepath.Ext(path))
}

// FindRoot picks the journal that completion data is loaded from: the file
// named by LEDGER_FILE or HLEDGER_JOURNAL, then main.journal or
// .hledger.journal in dir, then the journal in dir that no other journal
// includes. It returns "" when dir holds no journal.
func FindRoot(dir string) (string, error) {
	for _, env := range []string{"LEDGER_FILE", "HLEDGER_JOURNAL"} {
		if envPath := os.Getenv(env); envPath != "" {
			if _, err := os.Stat(envPath); err == nil {
				return envPath, nil
			}
		}
	}

	for _, name := range []string{"main.journal", ".hledger.journal"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return findRootByIncludeGraph(dir)
}

func findRootByIncludeGraph(dir string) (string, error) {
	journalFiles, err := findJournalFiles(dir)
	if err != nil {
		return "", err
	}
	if len(journalFiles) == 0 {
		return "", nil
	}

	included := includedFiles(journalFiles)

	var rootCandidates []string
	for _, file := range journalFiles {
		if !included[file] {
			rootCandidates = append(rootCandidates, file)
		}
	}
	if len(rootCandidates) == 0 {
		return journalFiles[0], nil
	}

	slices.Sort(rootCandidates)
	return rootCandidates[0], nil
}

func findJournalFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip inaccessible entries
		}
		if !d.IsDir() && isJournalFile(path) {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// includedFiles returns every file some journal in files includes.
func includedFiles(files []string) map[string]bool {
	included := make(map[string]bool)
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		journal, _ := parser.Parse(string(content))
		for _, inc := range journal.Includes {
			target := include.ResolvePath(file, inc.Path)
			if !include.IsGlob(inc.Path) {
				included[target] = true
				continue
			}
			matches, err := include.ExpandGlob(target)
			if err != nil {
				continue
			}
			for _, m := range matches {
				if m != file {
					included[m] = true
				}
			}
		}
	}
	return included
}
