package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-docpack/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath  string        // DOCPACK_CONFIG: config file name or path
	Root        string        // DOCPACK_ROOT: source root
	Timeout     time.Duration // DOCPACK_TIMEOUT: remote fetch timeout
	Workers     int           // DOCPACK_WORKERS: parallel builds
	Asciidoctor string        // DOCPACK_ASCIIDOCTOR: asciidoctor executable
	ImagesDir   string        // DOCPACK_IMAGES_DIR: background image directory
	NoPackage   bool          // DOCPACK_NO_PACKAGE: convert only
}

// knownEnvVars lists valid DOCPACK_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"DOCPACK_CONFIG":      true,
	"DOCPACK_ROOT":        true,
	"DOCPACK_TIMEOUT":     true,
	"DOCPACK_WORKERS":     true,
	"DOCPACK_ASCIIDOCTOR": true,
	"DOCPACK_IMAGES_DIR":  true,
	"DOCPACK_NO_PACKAGE":  true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:  os.Getenv("DOCPACK_CONFIG"),
		Root:        os.Getenv("DOCPACK_ROOT"),
		Asciidoctor: os.Getenv("DOCPACK_ASCIIDOCTOR"),
		ImagesDir:   os.Getenv("DOCPACK_IMAGES_DIR"),
	}

	if timeout := os.Getenv("DOCPACK_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := os.Getenv("DOCPACK_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	if v := os.Getenv("DOCPACK_NO_PACKAGE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.NoPackage = b
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized DOCPACK_* variables.
// Helps catch typos like DOCPACK_TIMOUT.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "DOCPACK_") {
			name, _, _ := strings.Cut(env, "=")
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to a loaded config.
// The config already holds file values and defaults, so every variable that
// is set wins over it. CLI flags are applied afterwards and win over both.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Root != "" {
		cfg.Source.Root = env.Root
	}
	if env.Timeout > 0 {
		cfg.Package.Timeout = env.Timeout.String()
	}
	if env.Workers > 0 {
		cfg.Build.Workers = env.Workers
	}
	if env.Asciidoctor != "" {
		cfg.Asciidoctor.Bin = env.Asciidoctor
	}
	if env.ImagesDir != "" {
		cfg.Package.ImagesDir = env.ImagesDir
	}
	if env.NoPackage {
		disabled := false
		cfg.Package.Enabled = &disabled
	}
}
