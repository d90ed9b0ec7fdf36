package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/hints"
)

// ErrPackageFailed reports that at least one document could not be packaged.
var ErrPackageFailed = errors.New("packaging failed")

// runPackage packages the given HTML documents in place, without any
// conversion. Documents are processed one after another; a failure does not
// stop the remaining ones.
func runPackage(ctx context.Context, args []string, env *Environment) error {
	flags, files, err := parsePackageFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errorf(ErrUsage, "package needs at least one HTML document")
	}
	for _, f := range files {
		if !isHTMLFile(f) {
			return errorf(ErrUsage, "%s: not an HTML document (.html or .htm)", f)
		}
	}

	cfg, err := loadSettings(flags.common.config, func(cfg *config.Config) error {
		return mergePackageFlags(flags, cfg)
	})
	if err != nil {
		return err
	}

	logger := env.newLogger(flags.common.quiet, flags.common.verbose)
	p := newPackager(cfg, logger)

	var (
		firstErr  error
		failed    int
		timedOut  bool
		embedded  int
		remaining int
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := p.Package(ctx, f)
		if err != nil {
			logger.Error("Packaging failed", "path", f, "error", err)
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		embedded += res.Embedded
		remaining += len(res.Warnings)
		for _, w := range res.Warnings {
			timedOut = timedOut || isTimeout(w.Err)
		}
		if !flags.common.quiet {
			fmt.Fprintf(env.Stdout, "Packaged %s (%s -> %s)\n",
				filepath.Clean(f), formatSize(res.SizeBefore), formatSize(res.SizeAfter))
		}
	}

	logger.Debug("Package summary", "documents", len(files), "embedded", embedded, "warnings", remaining)
	if timedOut {
		logger.Warn("Some remote resources timed out" + hints.ForTimeout())
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d document(s): %w", ErrPackageFailed, failed, len(files), firstErr)
	}
	return nil
}

// mergePackageFlags applies package flags over cfg (CLI wins).
func mergePackageFlags(flags *packageFlags, cfg *config.Config) error {
	timeout, err := parseTimeoutFlag(flags.timeout)
	if err != nil {
		return err
	}
	if timeout != "" {
		cfg.Package.Timeout = timeout
	}
	if flags.imagesDir != "" {
		cfg.Package.ImagesDir = flags.imagesDir
	}
	return nil
}

func isHTMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

// formatSize renders a byte count for humans.
func formatSize(n int) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	}
}
