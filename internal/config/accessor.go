package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// kind is the JSON shape of a settable value.
type kind int

const (
	kindString kind = iota
	kindInt
	kindBool
	kindList
)

func (k kind) String() string {
	switch k {
	case kindInt:
		return "an integer"
	case kindBool:
		return "true or false"
	case kindList:
		return "a comma-separated list"
	default:
		return "a string"
	}
}

// setting describes one settable leaf. Integer settings are checked against
// min and, when max is non-zero, max.
type setting struct {
	kind     kind
	min, max int
	doc      string
}

// settings lists every path "config set" accepts.
var settings = map[string]setting{
	"general.logLevel": {kind: kindString, doc: "debug, info, warn or error"},
	"general.logFile":  {kind: kindString, doc: "optional log file, also written to stderr"},

	"routing.defaultCapabilityEnv": {kind: kindString, doc: "environment variable holding the operator's preferred capability ID"},
	"routing.browserMarkers":       {kind: kindList, doc: "server ID fragments that mark browser-automation capabilities"},
	"routing.searchMarkers":        {kind: kindList, doc: "server ID fragments that mark web-search capabilities"},
	"routing.fuzzyMinScore":        {kind: kindInt, min: 0, doc: "minimum fuzzy score for matching a tool hint to a tool name"},

	"extraction.windowBefore":    {kind: kindInt, min: 1, doc: "nodes scanned before a subject anchor"},
	"extraction.windowAfter":     {kind: kindInt, min: 1, doc: "nodes scanned after a subject anchor"},
	"extraction.maxResults":      {kind: kindInt, min: 1, max: 50, doc: "events or listing lines in one reply"},
	"extraction.minContentNodes": {kind: kindInt, min: 1, doc: "content nodes below which a page with search controls is empty"},

	"catalog.file":   {kind: kindString, doc: "YAML catalog imported on every start"},
	"catalog.dbPath": {kind: kindString, doc: "SQLite registry database"},

	"browser.profileDir":     {kind: kindString, doc: "Chrome profile reused across snapshots"},
	"browser.headless":       {kind: kindBool, doc: "run Chrome without a window"},
	"browser.timeoutSeconds": {kind: kindInt, min: 1, doc: "snapshot timeout"},

	"metrics.enabled":  {kind: kindBool, doc: "mount the metrics endpoint in 'toolroute serve'"},
	"metrics.endpoint": {kind: kindString, doc: "metrics endpoint path, starting with /"},
}

// checkRange reports an integer setting outside its bounds.
func (s setting) checkRange(path string, n int) error {
	switch {
	case s.max != 0 && (n < s.min || n > s.max):
		return fmt.Errorf("%s must be between %d and %d", path, s.min, s.max)
	case n < s.min:
		return fmt.Errorf("%s must be >= %d", path, s.min)
	}
	return nil
}

// convert turns a command-line string into the setting's JSON value.
// Non-string values are passed through for the JSON round trip to check.
func (s setting) convert(path string, v any) (any, error) {
	str, ok := v.(string)
	if !ok {
		return v, nil
	}
	switch s.kind {
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return nil, fmt.Errorf("%s expects %s (%s)", path, s.kind, s.doc)
		}
		if err := s.checkRange(path, n); err != nil {
			return nil, err
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(str))
		if err != nil {
			return nil, fmt.Errorf("%s expects %s (%s)", path, s.kind, s.doc)
		}
		return b, nil
	case kindList:
		items := []string{}
		for _, item := range strings.Split(str, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return str, nil
	}
}

// lookupSetting resolves path to its section and key.
func lookupSetting(path string) (section, key string, s setting, err error) {
	section, key, ok := strings.Cut(path, ".")
	if !ok {
		return "", "", setting{}, fmt.Errorf("config path %q must name a section and a key", path)
	}
	s, ok = settings[section+"."+key]
	if !ok {
		return "", "", setting{}, fmt.Errorf("unknown config path %q", path)
	}
	return section, key, s, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByPath retrieves a config value by dot-notation path, such as
// "extraction.windowAfter", a whole section such as "routing", or a list item
// such as "routing.browserMarkers.0".
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toMap(cfg)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(path, ".")
	if len(parts) >= 2 {
		if _, _, _, err := lookupSetting(parts[0] + "." + parts[1]); err != nil {
			return nil, err
		}
	}

	var current any = m
	for _, key := range parts {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid list index %q in %s", key, path)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("%s: cannot index into %T", path, current)
		}
	}
	return current, nil
}

// SetByPath sets one known setting. String values are parsed into the
// setting's type and integer bounds are checked; the full config is not
// validated, callers run Validate before saving.
func SetByPath(cfg *Config, path string, value any) error {
	section, key, s, err := lookupSetting(path)
	if err != nil {
		return err
	}
	v, err := s.convert(path, value)
	if err != nil {
		return err
	}

	m, err := toMap(cfg)
	if err != nil {
		return err
	}
	sec, ok := m[section].(map[string]any)
	if !ok {
		sec = make(map[string]any)
		m[section] = sec
	}
	sec[key] = v

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%s expects %s: %w", path, s.kind, err)
	}
	return nil
}

// ListPaths returns every setting with its current value. Unset optional
// settings are listed with an empty value.
func ListPaths(cfg *Config) map[string]any {
	m, err := toMap(cfg)
	if err != nil {
		return nil
	}
	result := make(map[string]any, len(settings))
	for path := range settings {
		section, key, _ := strings.Cut(path, ".")
		sec, _ := m[section].(map[string]any)
		val, ok := sec[key]
		if !ok {
			val = ""
		}
		result[path] = val
	}
	return result
}

// rangeErrors checks every integer setting against its bounds.
func rangeErrors(cfg *Config) []string {
	values := ListPaths(cfg)
	paths := make([]string, 0, len(settings))
	for path, s := range settings {
		if s.kind == kindInt {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	var errs []string
	for _, path := range paths {
		n, ok := values[path].(float64)
		if !ok {
			continue
		}
		if err := settings[path].checkRange(path, int(n)); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
