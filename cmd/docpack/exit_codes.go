package main

import (
	"errors"
	"os"

	docpack "github.com/alnah/go-docpack"
	"github.com/alnah/go-docpack/internal/assets"
	"github.com/alnah/go-docpack/internal/build"
	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/convert"
	"github.com/alnah/go-docpack/internal/watch"
)

// Exit codes for the docpack CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess   = 0 // Everything built or packaged
	ExitGeneral   = 1 // General/unexpected error, or some documents failed
	ExitUsage     = 2 // Invalid flags, config, or validation
	ExitIO        = 3 // File not found, permission denied
	ExitConverter = 4 // asciidoctor missing or failing
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Converter errors (exit 4)
	if errors.Is(err, convert.ErrConverterNotFound) ||
		errors.Is(err, convert.ErrRevealJSMissing) ||
		errors.Is(err, convert.ErrConvert) {
		return ExitConverter
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrTemplateNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, convert.ErrUnknownHighlightStyle) ||
		errors.Is(err, build.ErrTargetConflict) ||
		errors.Is(err, watch.ErrInvalidPattern) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, build.ErrNoRoot) ||
		errors.Is(err, docpack.ErrEmptyPath) ||
		errors.Is(err, docpack.ErrDocumentRead) ||
		errors.Is(err, docpack.ErrDocumentWrite) {
		return ExitIO
	}

	return ExitGeneral
}
