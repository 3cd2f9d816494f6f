package include

import (
	"errors"

	"github.com/juev/hledger-complete/internal/ast"
	"github.com/juev/hledger-complete/internal/model"
)

var (
	ErrNotFound = errors.New("include target not found")
	ErrCycle    = errors.New("include cycle")
	ErrTooLarge = errors.New("file too large")
	ErrTooDeep  = errors.New("include depth exceeded")
	ErrRead     = errors.New("cannot read file")
	ErrParse    = errors.New("parse error")
)

type ErrorKind int

const (
	ErrorFileNotFound ErrorKind = iota
	ErrorCycleDetected
	ErrorParseError
	ErrorReadError
	ErrorFileTooLarge
	ErrorDepthExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorFileNotFound:
		return "not-found"
	case ErrorCycleDetected:
		return "cycle"
	case ErrorParseError:
		return "parse"
	case ErrorReadError:
		return "read"
	case ErrorFileTooLarge:
		return "too-large"
	case ErrorDepthExceeded:
		return "too-deep"
	}
	return "unknown"
}

// LoadError is a warning attached to a load. None of them abort it.
type LoadError struct {
	Kind    ErrorKind
	Path    string
	Message string
	Range   ast.Range
}

func (e LoadError) Error() string {
	return e.Message
}

// Unwrap maps the kind onto a sentinel so callers can use errors.Is.
func (e LoadError) Unwrap() error {
	switch e.Kind {
	case ErrorFileNotFound:
		return ErrNotFound
	case ErrorCycleDetected:
		return ErrCycle
	case ErrorFileTooLarge:
		return ErrTooLarge
	case ErrorDepthExceeded:
		return ErrTooDeep
	case ErrorReadError:
		return ErrRead
	case ErrorParseError:
		return ErrParse
	}
	return nil
}

type Limits struct {
	MaxIncludeDepth  int
	MaxFileSizeBytes int64
}

func DefaultLimits() Limits {
	return Limits{
		MaxIncludeDepth:  50,
		MaxFileSizeBytes: 10 * 1024 * 1024,
	}
}

// File is one loaded journal file.
type File struct {
	Path     string
	Journal  *ast.Journal
	Data     *model.ParsedData
	Includes []string
}

// ResolvedJournal is the result of loading a root file and everything it
// includes. Files are in load order, the root first.
type ResolvedJournal struct {
	Root   string
	Files  []*File
	Errors []LoadError
}

func (r *ResolvedJournal) Primary() *File {
	if r == nil || len(r.Files) == 0 {
		return nil
	}
	return r.Files[0]
}

func (r *ResolvedJournal) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// Data merges the snapshots of every loaded file.
func (r *ResolvedJournal) Data() *model.ParsedData {
	parts := make([]*model.ParsedData, len(r.Files))
	for i, f := range r.Files {
		parts[i] = f.Data
	}
	return model.MergeAll(parts...)
}

func (r *ResolvedJournal) AllTransactions() []ast.Transaction {
	var result []ast.Transaction
	for _, f := range r.Files {
		result = append(result, f.Journal.Transactions...)
	}
	return result
}

func (r *ResolvedJournal) AllDirectives() []ast.Directive {
	var result []ast.Directive
	for _, f := range r.Files {
		result = append(result, f.Journal.Directives...)
	}
	return result
}
