// Package config resolves settings from defaults, a YAML file, the
// environment and editor-supplied options, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/juev/hledger-complete/internal/completion"
	"github.com/juev/hledger-complete/internal/fuzzy"
	"github.com/juev/hledger-complete/internal/include"
	"github.com/juev/hledger-complete/internal/parser"
	"github.com/juev/hledger-complete/internal/workspace"
)

// FileName is looked up in the workspace root when no file is given.
const FileName = ".hledger-complete.yaml"

const defaultChunkLines = 1000

type Completion struct {
	MaxResults int    `yaml:"maxResults"`
	Locale     string `yaml:"locale"`
	Snippets   bool   `yaml:"snippets"`
}

type Parser struct {
	ChunkLines int `yaml:"chunkLines"`
	// DayFirst reads year-last dates as DD.MM.YYYY.
	DayFirst bool `yaml:"dayFirst"`
}

type Cache struct {
	FuzzyCeiling int           `yaml:"fuzzyCeiling"`
	WatchFiles   bool          `yaml:"watchFiles"`
	Debounce     time.Duration `yaml:"debounce"`
}

type Limits struct {
	MaxIncludeDepth  int   `yaml:"maxIncludeDepth"`
	MaxFileSizeBytes int64 `yaml:"maxFileSizeBytes"`
}

type Settings struct {
	Completion Completion `yaml:"completion"`
	Parser     Parser     `yaml:"parser"`
	Cache      Cache      `yaml:"cache"`
	Limits     Limits     `yaml:"limits"`
}

func Default() Settings {
	limits := include.DefaultLimits()
	return Settings{
		Completion: Completion{MaxResults: completion.DefaultMaxResults},
		Parser:     Parser{ChunkLines: defaultChunkLines, DayFirst: true},
		Cache: Cache{
			FuzzyCeiling: fuzzy.DefaultCacheCeiling,
			WatchFiles:   true,
			Debounce:     workspace.DefaultDebounce,
		},
		Limits: Limits{
			MaxIncludeDepth:  limits.MaxIncludeDepth,
			MaxFileSizeBytes: limits.MaxFileSizeBytes,
		},
	}
}

// Normalize puts non-positive numbers back to their defaults.
func Normalize(s Settings) Settings {
	d := Default()
	if s.Completion.MaxResults <= 0 {
		s.Completion.MaxResults = d.Completion.MaxResults
	}
	if s.Parser.ChunkLines <= 0 {
		s.Parser.ChunkLines = d.Parser.ChunkLines
	}
	if s.Cache.FuzzyCeiling <= 0 {
		s.Cache.FuzzyCeiling = d.Cache.FuzzyCeiling
	}
	if s.Cache.Debounce <= 0 {
		s.Cache.Debounce = d.Cache.Debounce
	}
	if s.Limits.MaxIncludeDepth <= 0 {
		s.Limits.MaxIncludeDepth = d.Limits.MaxIncludeDepth
	}
	if s.Limits.MaxFileSizeBytes <= 0 {
		s.Limits.MaxFileSizeBytes = d.Limits.MaxFileSizeBytes
	}
	return s
}

// LoadOptions says where Load looks.
type LoadOptions struct {
	// Dir is the workspace root holding FileName and .env.
	Dir string
	// File overrides Dir/FileName and must exist.
	File string
	// Environ is the process environment; os.LookupEnv when nil.
	Environ func(key string) (string, bool)
}

// Load reads defaults, then the YAML file, then .env values, then the
// process environment. Later sources win.
func Load(opts LoadOptions) (Settings, error) {
	s := Default()

	path, required := opts.File, true
	if path == "" && opts.Dir != "" {
		path, required = filepath.Join(opts.Dir, FileName), false
	}
	if path != "" {
		if err := readFile(path, &s); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return Settings{}, err
			}
		}
	}

	dotenv := map[string]string{}
	if opts.Dir != "" {
		vals, err := godotenv.Read(filepath.Join(opts.Dir, ".env"))
		switch {
		case err == nil:
			dotenv = vals
		case !errors.Is(err, fs.ErrNotExist):
			return Settings{}, fmt.Errorf("read .env: %w", err)
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.LookupEnv
	}
	lookup := func(key string) (string, bool) {
		if v, ok := environ(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	s, err := applyEnv(s, lookup)
	if err != nil {
		return Settings{}, err
	}
	return Normalize(s), nil
}

func readFile(path string, s *Settings) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, s); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (s Settings) ParserOptions() parser.Options {
	return parser.Options{
		ChunkLines: s.Parser.ChunkLines,
		MonthFirst: !s.Parser.DayFirst,
	}
}

func (s Settings) IncludeLimits() include.Limits {
	return include.Limits{
		MaxIncludeDepth:  s.Limits.MaxIncludeDepth,
		MaxFileSizeBytes: s.Limits.MaxFileSizeBytes,
	}
}

func (s Settings) EngineConfig() completion.Config {
	return completion.Config{
		MaxResults:   s.Completion.MaxResults,
		Locale:       s.Completion.Locale,
		CacheCeiling: s.Cache.FuzzyCeiling,
		DayFirst:     s.Parser.DayFirst,
		Snippets:     s.Completion.Snippets,
	}
}
