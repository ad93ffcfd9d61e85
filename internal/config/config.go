package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markinote/markinote/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// AppName names the per-user config directory.
const AppName = "markinote"

// Field length limits.
const (
	MaxPathLength      = 4096
	MaxAddrLength      = 255
	MaxExtensionLength = 16
	MaxExtensions      = 32
	MaxLanguageLength  = 32
	MaxStyleLength     = 64
)

// Defaults.
const (
	DefaultRoot            = "lib"
	DefaultMaxUploadSize   = 16 << 20
	DefaultAddr            = ":5000"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultDiagramLanguage = "mermaid"
	DefaultHighlightStyle  = "github"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultExportTimeout   = 30 * time.Second
)

// DefaultExtensions lists the note extensions the library shows by default.
var DefaultExtensions = []string{"md", "markdown", "txt"}

var (
	extensionPattern = regexp.MustCompile(`^[a-z0-9]+$`)
	languagePattern  = regexp.MustCompile(`^[A-Za-z0-9_+-]+$`)
)

// Config holds the server, library and rendering settings.
type Config struct {
	Library LibraryConfig `yaml:"library"`
	Server  ServerConfig  `yaml:"server"`
	Render  RenderConfig  `yaml:"render"`
	Log     LogConfig     `yaml:"log"`
	Export  ExportConfig  `yaml:"export"`
}

// LibraryConfig defines the note store.
type LibraryConfig struct {
	Root              string   `yaml:"root"`              // Relative paths resolve against the working directory
	AllowedExtensions []string `yaml:"allowedExtensions"` // Lowercase, without the dot
	MaxUploadSize     int64    `yaml:"maxUploadSize"`     // Bytes
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"readTimeout"`
	WriteTimeout Duration `yaml:"writeTimeout"`
}

// RenderConfig defines Markdown rendering options.
type RenderConfig struct {
	DiagramLanguage string `yaml:"diagramLanguage"` // Fence info string protected as a diagram
	HighlightStyle  string `yaml:"highlightStyle"`  // Chroma style name
	AssetsDir       string `yaml:"assetsDir"`       // Empty = embedded assets
}

// LogConfig defines diagnostic output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// ExportConfig defines PDF export options.
type ExportConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts a duration string or a bare integer of seconds.
func (d *Duration) UnmarshalYAML(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"'`)
	if s == "" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	return fmt.Errorf("%w: duration %q", ErrInvalidValue, s)
}

// MarshalYAML writes d as a duration string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Validate checks enums, ranges and field lengths.
// Called automatically by LoadConfig, but available for callers
// who construct Config manually.
func (c *Config) Validate() error {
	if c.Library.Root == "" {
		return fmt.Errorf("%w: library.root is required", ErrInvalidValue)
	}
	if err := validateFieldLength("library.root", c.Library.Root, MaxPathLength); err != nil {
		return err
	}
	if len(c.Library.AllowedExtensions) == 0 {
		return fmt.Errorf("%w: library.allowedExtensions must not be empty", ErrInvalidValue)
	}
	if len(c.Library.AllowedExtensions) > MaxExtensions {
		return fmt.Errorf("%w: library.allowedExtensions (%d entries, max %d)",
			ErrFieldTooLong, len(c.Library.AllowedExtensions), MaxExtensions)
	}
	for i, ext := range c.Library.AllowedExtensions {
		field := fmt.Sprintf("library.allowedExtensions[%d]", i)
		if err := validateFieldLength(field, ext, MaxExtensionLength); err != nil {
			return err
		}
		if !extensionPattern.MatchString(ext) {
			return fmt.Errorf("%w: %s: %q (lowercase letters and digits, no dot)", ErrInvalidValue, field, ext)
		}
	}
	if c.Library.MaxUploadSize <= 0 {
		return fmt.Errorf("%w: library.maxUploadSize must be positive, got %d", ErrInvalidValue, c.Library.MaxUploadSize)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalidValue)
	}
	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("%w: server.readTimeout must not be negative", ErrInvalidValue)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("%w: server.writeTimeout must not be negative", ErrInvalidValue)
	}

	if err := validateFieldLength("render.diagramLanguage", c.Render.DiagramLanguage, MaxLanguageLength); err != nil {
		return err
	}
	if c.Render.DiagramLanguage != "" && !languagePattern.MatchString(c.Render.DiagramLanguage) {
		return fmt.Errorf("%w: render.diagramLanguage: %q", ErrInvalidValue, c.Render.DiagramLanguage)
	}
	if err := validateFieldLength("render.highlightStyle", c.Render.HighlightStyle, MaxStyleLength); err != nil {
		return err
	}
	if err := validateFieldLength("render.assetsDir", c.Render.AssetsDir, MaxPathLength); err != nil {
		return err
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
		// valid
	default:
		return fmt.Errorf("%w: log.format: %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}

	if c.Export.Timeout < 0 {
		return fmt.Errorf("%w: export.timeout must not be negative", ErrInvalidValue)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// ParseLevel maps a log.level value to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: log.level: %q (must be debug, info, warn, or error)", ErrInvalidValue, level)
	}
}

// NewLogger builds the slog logger described by l, writing to w.
// Invalid values fall back to info level and text output.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(l.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			Root:              DefaultRoot,
			AllowedExtensions: append([]string(nil), DefaultExtensions...),
			MaxUploadSize:     DefaultMaxUploadSize,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			ReadTimeout:  Duration(DefaultReadTimeout),
			WriteTimeout: Duration(DefaultWriteTimeout),
		},
		Render: RenderConfig{
			DiagramLanguage: DefaultDiagramLanguage,
			HighlightStyle:  DefaultHighlightStyle,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Export: ExportConfig{
			Timeout: Duration(DefaultExportTimeout),
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in SearchPaths.
// Keys missing from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFile(configPath, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, yamlutil.Describe(err))
	}

	// An explicit empty list in the file means the defaults.
	if len(cfg.Library.AllowedExtensions) == 0 {
		cfg.Library.AllowedExtensions = append([]string(nil), DefaultExtensions...)
	}
	for i, ext := range cfg.Library.AllowedExtensions {
		cfg.Library.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SearchPaths lists where a config name is looked up, in order:
// the current directory, then the user config directory.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, AppName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing SearchPaths entry.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
