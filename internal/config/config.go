package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for toolroute.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Routing    RoutingConfig    `json:"routing"`
	Extraction ExtractionConfig `json:"extraction"`
	Catalog    CatalogConfig    `json:"catalog"`
	Browser    BrowserConfig    `json:"browser"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`          // "debug" | "info" | "warn" | "error"
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

// RoutingConfig tunes capability selection.
type RoutingConfig struct {
	// DefaultCapabilityEnv names the environment variable holding the
	// operator's preferred capability ID. It is read on every routing call.
	DefaultCapabilityEnv string   `json:"defaultCapabilityEnv"`
	BrowserMarkers       []string `json:"browserMarkers"`
	SearchMarkers        []string `json:"searchMarkers"`
	FuzzyMinScore        int      `json:"fuzzyMinScore"`
}

// ExtractionConfig tunes the windowed response parser and the formatter.
type ExtractionConfig struct {
	WindowBefore    int `json:"windowBefore"`
	WindowAfter     int `json:"windowAfter"`
	MaxResults      int `json:"maxResults"`
	MinContentNodes int `json:"minContentNodes"`
}

// CatalogConfig locates the capability sources.
type CatalogConfig struct {
	File   string `json:"file,omitempty"` // YAML catalog imported at startup
	DBPath string `json:"dbPath"`         // SQLite registry
}

// BrowserConfig configures the accessibility snapshotter.
type BrowserConfig struct {
	ProfileDir     string `json:"profileDir"`
	Headless       bool   `json:"headless"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// MetricsConfig configures the Prometheus text metrics.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.toolroute).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".toolroute"
	}
	return filepath.Join(home, ".toolroute")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Catalog.File = ExpandPath(cfg.Catalog.File)
	cfg.Catalog.DBPath = ExpandPath(cfg.Catalog.DBPath)
	cfg.Browser.ProfileDir = ExpandPath(cfg.Browser.ProfileDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if !envNamePattern.MatchString(cfg.Routing.DefaultCapabilityEnv) {
		errs = append(errs, "routing.defaultCapabilityEnv must be a valid environment variable name")
	}
	for _, m := range cfg.Routing.BrowserMarkers {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, "routing.browserMarkers must not contain empty entries")
			break
		}
	}
	for _, m := range cfg.Routing.SearchMarkers {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, "routing.searchMarkers must not contain empty entries")
			break
		}
	}

	errs = append(errs, rangeErrors(cfg)...)

	if cfg.Catalog.DBPath == "" {
		errs = append(errs, "catalog.dbPath is required")
	}
	if !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
		errs = append(errs, "metrics.endpoint must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
