package main

import (
	"fmt"

	"github.com/alnah/go-docpack/internal/yamlutil"
)

// runConfig prints the effective configuration as YAML.
func runConfig(args []string, env *Environment) error {
	fs := newFlagSet("config", env.Stderr, printConfigUsage)
	var configName string
	fs.StringVarP(&configName, "config", "c", "", "config file name or path")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if fs.NArg() > 0 {
		return errorf(ErrUsage, "config takes no arguments")
	}

	cfg, err := loadSettings(configName, nil)
	if err != nil {
		return err
	}
	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = env.Stdout.Write(out)
	return err
}
