package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/hints"
)

// defaultConfigName is looked up when neither --config nor DOCPACK_CONFIG
// names a file. Its absence is not an error.
const defaultConfigName = "docpack"

// errorf wraps sentinel with a formatted message.
func errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// loadSettings resolves the effective configuration:
// flags > environment > config file > defaults. Flags are merged by the
// caller through apply, then the result is validated.
func loadSettings(configFlag string, apply func(*config.Config) error) (*config.Config, error) {
	env := loadEnvConfig()

	name := configFlag
	if name == "" {
		name = env.ConfigPath
	}

	var cfg *config.Config
	var err error
	switch {
	case name != "":
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, withConfigHint(name, err)
		}
	default:
		cfg, err = config.LoadConfig(defaultConfigName)
		if errors.Is(err, config.ErrConfigNotFound) {
			cfg, err = config.DefaultConfig(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(env, cfg)
	if apply != nil {
		if err := apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withConfigHint wraps a config loading error, adding a hint when the file
// could not be found.
func withConfigHint(name string, err error) error {
	if !errors.Is(err, config.ErrConfigNotFound) {
		return fmt.Errorf("loading config: %w", err)
	}
	var searched []string
	if dir, dirErr := os.UserConfigDir(); dirErr == nil && filepath.Base(name) == name {
		searched = append(searched, filepath.Join(dir, "docpack", name+".yaml"))
	}
	return fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(searched))
}

// parseTimeoutFlag validates a --timeout value. Empty means unset.
func parseTimeoutFlag(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return "", errorf(ErrUsage, "invalid --timeout %q: %v", s, err)
	}
	if d <= 0 {
		return "", errorf(ErrUsage, "--timeout must be positive, got %s", s)
	}
	return d.String(), nil
}
