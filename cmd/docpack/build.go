package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/charmbracelet/log"

	docpack "github.com/alnah/go-docpack"
	"github.com/alnah/go-docpack/internal/assets"
	"github.com/alnah/go-docpack/internal/build"
	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/convert"
	"github.com/alnah/go-docpack/internal/hints"
	"github.com/alnah/go-docpack/internal/watch"
)

// ErrBuildFailed reports that at least one document failed to build.
var ErrBuildFailed = errors.New("build failed")

// buildError carries the first document failure so exit codes and hints
// reflect its cause.
type buildError struct {
	failed int
	total  int
	cause  error
}

func (e *buildError) Error() string {
	return fmt.Sprintf("%s: %d of %d document(s) failed", ErrBuildFailed, e.failed, e.total)
}

func (e *buildError) Unwrap() []error {
	return []error{ErrBuildFailed, e.cause}
}

// runBuild converts stale sources below the root and packages the matching
// outputs, then optionally keeps rebuilding on changes.
func runBuild(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseBuildFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return errorf(ErrUsage, "build takes at most one root directory, got %d", len(positional))
	}

	cfg, err := loadSettings(flags.common.config, func(cfg *config.Config) error {
		return mergeBuildFlags(flags, positional, cfg)
	})
	if err != nil {
		return err
	}

	logger := env.newLogger(flags.common.quiet, flags.common.verbose)
	converter, err := newConverterSet(cfg, env)
	if err != nil {
		return err
	}
	builder := build.New(cfg, converter,
		build.WithPackager(newPackager(cfg, logger)),
		build.WithLogger(logger),
		build.WithWorkers(cfg.Build.Workers),
	)

	err = buildOnce(ctx, builder, flags.force, cfg, logger, env)
	if !flags.watch {
		return err
	}
	if err != nil && !errors.Is(err, ErrBuildFailed) {
		return err
	}

	w, err := watch.New(watch.Config{
		Root:     cfg.Source.Root,
		Patterns: cfg.Source.Patterns,
		Ignore:   cfg.Source.Ignore,
		Debounce: cfg.Watch.DebounceDuration(),
		Logger:   logger,
		OnChange: func(ctx context.Context, _ []string) error {
			return buildOnce(ctx, builder, false, cfg, logger, env)
		},
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// mergeBuildFlags applies build flags over cfg (CLI wins).
func mergeBuildFlags(flags *buildFlags, positional []string, cfg *config.Config) error {
	if len(positional) == 1 {
		cfg.Source.Root = positional[0]
	}
	if flags.noPackage {
		disabled := false
		cfg.Package.Enabled = &disabled
	}
	if flags.workers < 0 {
		return errorf(ErrUsage, "--workers must be >= 0, got %d", flags.workers)
	}
	if flags.workers > 0 {
		cfg.Build.Workers = flags.workers
	}
	timeout, err := parseTimeoutFlag(flags.timeout)
	if err != nil {
		return err
	}
	if timeout != "" {
		cfg.Package.Timeout = timeout
	}
	return nil
}

// newConverterSet builds the AsciiDoc and Markdown converters for cfg.
func newConverterSet(cfg *config.Config, env *Environment) (*convert.Set, error) {
	md, err := convert.NewMarkdown(cfg.Markdown)
	if err != nil {
		if errors.Is(err, assets.ErrStyleNotFound) {
			return nil, fmt.Errorf("markdown.style: %w%s", err, hints.ForStyleNotFound(assets.Styles()))
		}
		return nil, fmt.Errorf("markdown: %w", err)
	}
	return &convert.Set{
		AsciiDoc: convert.NewAsciidoctor(cfg.Asciidoctor, convert.WithClock(env.Now)),
		Markdown: md,
	}, nil
}

// newPackager builds a packager from the package section of cfg.
func newPackager(cfg *config.Config, logger *log.Logger) *docpack.Packager {
	opts := []docpack.Option{
		docpack.WithLogger(logger),
		docpack.WithImagesDir(cfg.Package.ImagesDir),
		docpack.WithUserAgent(cfg.Package.UserAgent),
	}
	if d := cfg.Package.TimeoutDuration(); d > 0 {
		opts = append(opts, docpack.WithTimeout(d))
	}
	if cfg.Package.MaxBytes > 0 {
		opts = append(opts, docpack.WithMaxBytes(cfg.Package.MaxBytes))
	}
	return docpack.NewPackager(opts...)
}

// buildOnce runs one build pass and prints its outcome.
func buildOnce(ctx context.Context, b *build.Builder, force bool, cfg *config.Config, logger *log.Logger, env *Environment) error {
	start := env.Now()
	results, err := b.Run(ctx, force)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	summary := build.Summarize(results)
	logger.Info("Build finished",
		"converted", summary.Converted,
		"packaged", summary.Packaged,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"elapsed", env.Now().Sub(start).Round(time.Millisecond),
	)
	if hasTimeoutWarning(results) {
		logger.Warn("Some remote resources timed out" + hints.ForTimeout())
	}

	if summary.Failed == 0 {
		return nil
	}
	cause := firstFailure(results)
	berr := &buildError{failed: summary.Failed, total: len(results), cause: cause}
	return withConverterHint(berr, cause, cfg)
}

// withConverterHint appends installation hints when cause shows asciidoctor
// or its reveal.js backend is unavailable.
func withConverterHint(err, cause error, cfg *config.Config) error {
	switch {
	case errors.Is(cause, convert.ErrConverterNotFound):
		return fmt.Errorf("%w%s", err, hints.ForAsciidoctorMissing(cfg.Asciidoctor.Bin))
	case errors.Is(cause, convert.ErrRevealJSMissing):
		return fmt.Errorf("%w%s", err, hints.ForRevealJSMissing(cfg.Asciidoctor.RevealJS))
	}
	return err
}

func firstFailure(results []build.Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// hasTimeoutWarning reports whether any packaging warning was a timeout.
func hasTimeoutWarning(results []build.Result) bool {
	for _, r := range results {
		if r.Package == nil {
			continue
		}
		for _, w := range r.Package.Warnings {
			if isTimeout(w.Err) {
				return true
			}
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
