package main

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// newLogger returns the stderr logger for a command. --quiet keeps warnings
// and errors, --verbose adds timings and debug detail.
func (e *Environment) newLogger(quiet, verbose bool) *log.Logger {
	level := log.InfoLevel
	switch {
	case quiet:
		level = log.WarnLevel
	case verbose:
		level = log.DebugLevel
	}
	return log.NewWithOptions(e.Stderr, log.Options{
		Prefix: "docpack",
		Level:  level,
	})
}
