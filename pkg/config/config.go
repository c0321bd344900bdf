package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the optional config file read from the working directory.
const FileName = "cpg-explorer.toml"

// EnvPrefix prefixes environment overrides, e.g. CPG_EXPLORER_PORT=9090.
const EnvPrefix = "CPG_EXPLORER_"

// Config holds all configuration for the application
type Config struct {
	API               string        `koanf:"api"`
	Port              int           `koanf:"port"`
	State             string        `koanf:"state"`
	URL               string        `koanf:"url"`
	SearchDebounce    time.Duration `koanf:"search-debounce"`
	TypeDebounce      time.Duration `koanf:"type-debounce"`
	ViewportDebounce  time.Duration `koanf:"viewport-debounce"`
	SecondaryFitDelay time.Duration `koanf:"secondary-fit-delay"`
	Print             string        `koanf:"print"`
	OpenBrowser       bool          `koanf:"open"`
	Verbosity         string        `koanf:"verbosity"`
	VerboseCnt        int           `koanf:"verbose"`
	JSONLogs          bool          `koanf:"json-logs"`
}

// Defaults are the lowest-priority configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"api":                 "http://localhost:8080/api",
		"port":                7070,
		"state":               "cpg-explorer-state.json",
		"url":                 "",
		"search-debounce":     "250ms",
		"type-debounce":       "200ms",
		"viewport-debounce":   "180ms",
		"secondary-fit-delay": "130ms",
		"print":               "",
		"open":                false,
		"verbosity":           "",
		"verbose":             0,
		"json-logs":           false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return load(f, FileName)
}

func load(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider(path), toml.Parser())

	// 3. Environment Variables, CPG_EXPLORER_SEARCH_DEBOUNCE -> search-debounce
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return &cfg, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]any
}

func makeMapProvider(m map[string]any) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]any, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
