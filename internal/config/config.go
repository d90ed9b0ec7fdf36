package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alnah/go-docpack/internal/dateutil"
	"github.com/alnah/go-docpack/internal/fileutil"
	"github.com/alnah/go-docpack/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength      = 4096 // PATH_MAX on Linux
	MaxPatternLength   = 256  // Single glob
	MaxPatternCount    = 64   // Globs per list
	MaxUserAgentLength = 256
	MaxBinLength       = 1024 // Executable name or path
	MaxAttributeLength = 1024 // asciidoctor -a value
	MaxStyleLength     = 64   // Chroma or document style name
	MaxDurationLength  = 32   // "30s", "1m30s"
	MaxWorkers         = 32
)

// Default values applied to fields left empty in the config file.
const (
	DefaultRoot           = "."
	DefaultTimeout        = "30s"
	DefaultImagesDir      = "images"
	DefaultMaxBytes       = 32 << 20
	DefaultAsciidoctorBin = "asciidoctor"
	DefaultRevealJS       = "@asciidoctor/reveal.js"
	DefaultHighlightStyle = "github"
	DefaultDocumentStyle  = "default"
	DefaultDebounce       = "500ms"
)

// Default glob lists. Copied on use so callers cannot mutate them.
var (
	defaultPatterns = []string{"**/*.adoc"} // Markdown is opt-in
	defaultMatch    = []string{"*slides*"}
)

// Config holds all configuration for a docpack build.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Package     PackageConfig     `yaml:"package"`
	Asciidoctor AsciidoctorConfig `yaml:"asciidoctor"`
	Markdown    MarkdownConfig    `yaml:"markdown"`
	Watch       WatchConfig       `yaml:"watch"`
	Build       BuildConfig       `yaml:"build"`
}

// SourceConfig selects the documents to convert.
type SourceConfig struct {
	Root     string   `yaml:"root"`     // Directory walked for sources (default ".")
	Patterns []string `yaml:"patterns"` // Doublestar globs relative to root
	Ignore   []string `yaml:"ignore"`   // Globs excluded after matching
}

// PackageConfig controls embedding of resources into generated documents.
type PackageConfig struct {
	Enabled   *bool    `yaml:"enabled"`   // nil = true
	Match     []string `yaml:"match"`     // Basename globs of documents to package
	Timeout   string   `yaml:"timeout"`   // Per remote fetch
	ImagesDir string   `yaml:"imagesDir"` // Searched first for data-background-image
	MaxBytes  int64    `yaml:"maxBytes"`  // Remote body limit
	UserAgent string   `yaml:"userAgent"` // Empty = library default
}

// AsciidoctorConfig defines how AsciiDoc sources are converted.
type AsciidoctorConfig struct {
	Bin        string            `yaml:"bin"`
	RevealJS   string            `yaml:"revealjs"` // Ruby require path of the reveal.js backend
	Attributes map[string]string `yaml:"attributes"` // "auto" / "auto:FORMAT" values become the build date
}

// MarkdownConfig defines how Markdown sources are converted.
type MarkdownConfig struct {
	HighlightStyle string `yaml:"highlightStyle"` // Chroma style name
	Style          string `yaml:"style"`          // Stylesheet name, looked up in Assets then built-ins
	Assets         string `yaml:"assets"`         // Directory with styles/ and templates/ (empty = built-ins only)
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// BuildConfig tunes batch builds.
type BuildConfig struct {
	Workers int `yaml:"workers"` // 0 = auto
}

// IsEnabled reports whether packaging is on. Unset means on.
func (p PackageConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// TimeoutDuration parses Timeout. Call after Validate.
func (p PackageConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(p.Timeout)
	return d
}

// DebounceDuration parses Debounce. Call after Validate.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(w.Debounce)
	return d
}

// Matches reports whether the base name of path matches one of the package
// globs.
func (p PackageConfig) Matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range p.Match {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Validate checks durations, globs, ranges and field lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("source.root", c.Source.Root, MaxPathLength); err != nil {
		return err
	}
	if err := validatePatterns("source.patterns", c.Source.Patterns); err != nil {
		return err
	}
	if err := validatePatterns("source.ignore", c.Source.Ignore); err != nil {
		return err
	}

	if err := validatePatterns("package.match", c.Package.Match); err != nil {
		return err
	}
	if err := validateDuration("package.timeout", c.Package.Timeout); err != nil {
		return err
	}
	if err := validateFieldLength("package.imagesDir", c.Package.ImagesDir, MaxPathLength); err != nil {
		return err
	}
	if filepath.IsAbs(c.Package.ImagesDir) {
		return fmt.Errorf("%w: package.imagesDir: must be relative to the document, got %q", ErrInvalidValue, c.Package.ImagesDir)
	}
	if c.Package.MaxBytes < 0 {
		return fmt.Errorf("%w: package.maxBytes: must not be negative, got %d", ErrInvalidValue, c.Package.MaxBytes)
	}
	if err := validateFieldLength("package.userAgent", c.Package.UserAgent, MaxUserAgentLength); err != nil {
		return err
	}

	if err := validateFieldLength("asciidoctor.bin", c.Asciidoctor.Bin, MaxBinLength); err != nil {
		return err
	}
	if err := validateFieldLength("asciidoctor.revealjs", c.Asciidoctor.RevealJS, MaxPathLength); err != nil {
		return err
	}
	for k, v := range c.Asciidoctor.Attributes {
		if k == "" || strings.ContainsAny(k, "= \t") {
			return fmt.Errorf("%w: asciidoctor.attributes: invalid name %q", ErrInvalidValue, k)
		}
		if err := validateFieldLength("asciidoctor.attributes."+k, v, MaxAttributeLength); err != nil {
			return err
		}
		if _, err := dateutil.ResolveDate(v, time.Time{}); err != nil {
			return fmt.Errorf("%w: asciidoctor.attributes.%s: %v", ErrInvalidValue, k, err)
		}
	}

	if err := validateFieldLength("markdown.highlightStyle", c.Markdown.HighlightStyle, MaxStyleLength); err != nil {
		return err
	}
	if err := validateFieldLength("markdown.style", c.Markdown.Style, MaxStyleLength); err != nil {
		return err
	}
	if err := validateFieldLength("markdown.assets", c.Markdown.Assets, MaxPathLength); err != nil {
		return err
	}

	if err := validateDuration("watch.debounce", c.Watch.Debounce); err != nil {
		return err
	}

	if c.Build.Workers < 0 || c.Build.Workers > MaxWorkers {
		return fmt.Errorf("%w: build.workers: must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Build.Workers)
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

func validatePatterns(fieldName string, patterns []string) error {
	if len(patterns) > MaxPatternCount {
		return fmt.Errorf("%w: %s (%d patterns, max %d)", ErrFieldTooLong, fieldName, len(patterns), MaxPatternCount)
	}
	for i, p := range patterns {
		name := fmt.Sprintf("%s[%d]", fieldName, i)
		if err := validateFieldLength(name, p, MaxPatternLength); err != nil {
			return err
		}
		if p == "" || !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %s: bad glob %q", ErrInvalidValue, name, p)
		}
	}
	return nil
}

func validateDuration(fieldName, value string) error {
	if value == "" {
		return nil
	}
	if err := validateFieldLength(fieldName, value, MaxDurationLength); err != nil {
		return err
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, fieldName, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidValue, fieldName, value)
	}
	return nil
}

// DefaultConfig returns a configuration with every default filled in.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every empty field with its default. Fields set by the
// user are left alone.
func (c *Config) ApplyDefaults() {
	if c.Source.Root == "" {
		c.Source.Root = DefaultRoot
	}
	if len(c.Source.Patterns) == 0 {
		c.Source.Patterns = append([]string(nil), defaultPatterns...)
	}
	if len(c.Package.Match) == 0 {
		c.Package.Match = append([]string(nil), defaultMatch...)
	}
	if c.Package.Timeout == "" {
		c.Package.Timeout = DefaultTimeout
	}
	if c.Package.ImagesDir == "" {
		c.Package.ImagesDir = DefaultImagesDir
	}
	if c.Package.MaxBytes == 0 {
		c.Package.MaxBytes = DefaultMaxBytes
	}
	if c.Asciidoctor.Bin == "" {
		c.Asciidoctor.Bin = DefaultAsciidoctorBin
	}
	if c.Asciidoctor.RevealJS == "" {
		c.Asciidoctor.RevealJS = DefaultRevealJS
	}
	if c.Markdown.HighlightStyle == "" {
		c.Markdown.HighlightStyle = DefaultHighlightStyle
	}
	if c.Markdown.Style == "" {
		c.Markdown.Style = DefaultDocumentStyle
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = DefaultDebounce
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
// The returned config has defaults applied and is validated.
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

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return fileutil.IsFilePath(s) || strings.HasSuffix(s, ".yaml") || strings.HasSuffix(s, ".yml")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <user config dir>/docpack/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "docpack", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

