package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "HLEDGER_COMPLETE_"

type envVar struct {
	name  string
	apply func(s *Settings, value string) error
}

var envVars = []envVar{
	{"MAX_RESULTS", func(s *Settings, v string) error { return setInt(&s.Completion.MaxResults, v) }},
	{"LOCALE", func(s *Settings, v string) error { s.Completion.Locale = v; return nil }},
	{"SNIPPETS", func(s *Settings, v string) error { return setBool(&s.Completion.Snippets, v) }},
	{"CHUNK_LINES", func(s *Settings, v string) error { return setInt(&s.Parser.ChunkLines, v) }},
	{"DAY_FIRST", func(s *Settings, v string) error { return setBool(&s.Parser.DayFirst, v) }},
	{"FUZZY_CEILING", func(s *Settings, v string) error { return setInt(&s.Cache.FuzzyCeiling, v) }},
	{"WATCH", func(s *Settings, v string) error { return setBool(&s.Cache.WatchFiles, v) }},
	{"DEBOUNCE", func(s *Settings, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		s.Cache.Debounce = d
		return nil
	}},
	{"MAX_INCLUDE_DEPTH", func(s *Settings, v string) error { return setInt(&s.Limits.MaxIncludeDepth, v) }},
	{"MAX_FILE_SIZE", func(s *Settings, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		s.Limits.MaxFileSizeBytes = n
		return nil
	}},
}

func applyEnv(s Settings, lookup func(string) (string, bool)) (Settings, error) {
	for _, ev := range envVars {
		key := EnvPrefix + ev.name
		value, ok := lookup(key)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if err := ev.apply(&s, value); err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
	}
	return s, nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
