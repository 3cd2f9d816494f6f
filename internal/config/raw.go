package config

import (
	"strconv"
	"strings"
	"time"
)

// ApplyRaw overlays editor options, as decoded from JSON, on base. Both
// nested objects and dotted keys are accepted, optionally under a
// top-level "hledger" key. Unknown keys are ignored.
func ApplyRaw(base Settings, raw any) Settings {
	settings := base
	rawMap, ok := raw.(map[string]any)
	if !ok {
		return Normalize(settings)
	}
	if nested, ok := rawMap["hledger"]; ok {
		return ApplyRaw(settings, nested)
	}
	settings = applySettingsMap(settings, rawMap)
	return Normalize(settings)
}

// lookupRaw finds section.key either nested or dotted; dotted wins.
func lookupRaw(raw map[string]any, section, key string) (any, bool) {
	value, found := any(nil), false
	if nested, ok := raw[section].(map[string]any); ok {
		value, found = nested[key]
	}
	if v, ok := raw[section+"."+key]; ok {
		value, found = v, true
	}
	return value, found
}

func applySettingsMap(settings Settings, raw map[string]any) Settings {
	get := func(section, key string) any {
		v, _ := lookupRaw(raw, section, key)
		return v
	}

	if value, ok := toInt(get("completion", "maxResults")); ok {
		settings.Completion.MaxResults = value
	}
	if value, ok := get("completion", "locale").(string); ok {
		settings.Completion.Locale = value
	}
	if value, ok := toBool(get("completion", "snippets")); ok {
		settings.Completion.Snippets = value
	}

	if value, ok := toInt(get("parser", "chunkLines")); ok {
		settings.Parser.ChunkLines = value
	}
	if value, ok := toBool(get("parser", "dayFirst")); ok {
		settings.Parser.DayFirst = value
	}

	if value, ok := toInt(get("cache", "fuzzyCeiling")); ok {
		settings.Cache.FuzzyCeiling = value
	}
	if value, ok := toBool(get("cache", "watchFiles")); ok {
		settings.Cache.WatchFiles = value
	}
	if value, ok := toDuration(get("cache", "debounce")); ok {
		settings.Cache.Debounce = value
	}

	if value, ok := toInt64(get("limits", "maxFileSizeBytes")); ok {
		settings.Limits.MaxFileSizeBytes = value
	}
	if value, ok := toInt64(get("limits", "maxFileSize")); ok {
		settings.Limits.MaxFileSizeBytes = value
	}
	if value, ok := toInt(get("limits", "maxIncludeDepth")); ok {
		settings.Limits.MaxIncludeDepth = value
	}

	return settings
}

func toInt(value any) (int, bool) {
	n, ok := toInt64(value)
	return int(n), ok
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false
		}
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	return false, false
}

// toDuration takes a Go duration string or a number of milliseconds.
func toDuration(value any) (time.Duration, bool) {
	if s, ok := value.(string); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	if ms, ok := toInt64(value); ok {
		return time.Duration(ms) * time.Millisecond, true
	}
	return 0, false
}
