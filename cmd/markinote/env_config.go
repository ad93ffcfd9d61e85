package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/markinote/markinote/internal/config"
)

// Environment variable names.
const (
	envConfig    = "MARKINOTE_CONFIG"
	envRoot      = "MARKINOTE_ROOT"
	envAddr      = "MARKINOTE_ADDR"
	envLogLevel  = "MARKINOTE_LOG_LEVEL"
	envLogFormat = "MARKINOTE_LOG_FORMAT"
	envStyle     = "MARKINOTE_STYLE"
	envTimeout   = "MARKINOTE_TIMEOUT"
)

// envPrefix marks the variables this program reads.
const envPrefix = "MARKINOTE_"

// envSettings holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envSettings struct {
	ConfigPath string        // MARKINOTE_CONFIG: config file name or path
	Root       string        // MARKINOTE_ROOT: library root
	Addr       string        // MARKINOTE_ADDR: listen address
	LogLevel   string        // MARKINOTE_LOG_LEVEL: debug, info, warn, error
	LogFormat  string        // MARKINOTE_LOG_FORMAT: text, json
	Style      string        // MARKINOTE_STYLE: highlight style
	Timeout    time.Duration // MARKINOTE_TIMEOUT: PDF export timeout
}

// knownEnvVars lists valid MARKINOTE_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	envConfig:    true,
	envRoot:      true,
	envAddr:      true,
	envLogLevel:  true,
	envLogFormat: true,
	envStyle:     true,
	envTimeout:   true,
}

// loadEnvSettings reads configuration from environment variables.
// An unparsable or non-positive MARKINOTE_TIMEOUT is ignored.
func loadEnvSettings() *envSettings {
	s := &envSettings{
		ConfigPath: os.Getenv(envConfig),
		Root:       os.Getenv(envRoot),
		Addr:       os.Getenv(envAddr),
		LogLevel:   os.Getenv(envLogLevel),
		LogFormat:  os.Getenv(envLogFormat),
		Style:      os.Getenv(envStyle),
	}

	if timeout := os.Getenv(envTimeout); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			s.Timeout = d
		}
	}

	return s
}

// warnUnknownEnvVars prints a warning for each unrecognized MARKINOTE_* variable.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			printWarning(w, fmt.Sprintf("unknown environment variable %s (typo?)", name))
		}
	}
}

// applyEnvSettings overrides config values with the environment.
// Resulting priority: CLI flags > env vars > config file > defaults
// (CLI flags are applied afterwards by each command).
func applyEnvSettings(env *envSettings, cfg *config.Config) {
	if env.Root != "" {
		cfg.Library.Root = env.Root
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.Style != "" {
		cfg.Render.HighlightStyle = env.Style
	}
	if env.Timeout > 0 {
		cfg.Export.Timeout = config.Duration(env.Timeout)
	}
}

// loadConfig builds the effective config from defaults, the config file named
// by the flag or MARKINOTE_CONFIG, and the environment.
func loadConfig(name string, env *envSettings) (*config.Config, error) {
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvSettings(env, cfg)
	return cfg, nil
}
