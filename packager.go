package docpack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-docpack/internal/fileutil"
	"github.com/alnah/go-docpack/internal/pipeline"
	"github.com/alnah/go-docpack/internal/resource"
)

// Packager rewrites HTML documents so every reachable resource is embedded.
// Create with NewPackager. A Packager is safe for concurrent use.
type Packager struct {
	cfg     packagerConfig
	logger  *log.Logger
	fetcher *resource.Fetcher
}

// NewPackager creates a Packager with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithImagesDir).
func NewPackager(opts ...Option) *Packager {
	p := &Packager{
		cfg: packagerConfig{
			timeout:   DefaultTimeout,
			maxBytes:  DefaultMaxBytes,
			imagesDir: DefaultImagesDir,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "docpack"})
	}

	p.fetcher = resource.NewFetcher(resource.Config{
		Timeout:   p.cfg.timeout,
		MaxBytes:  p.cfg.maxBytes,
		UserAgent: p.cfg.userAgent,
		Client:    p.cfg.client,
	})
	return p
}

// Package embeds the resources of the HTML document at path and writes the
// result back to the same path.
//
// Only read and write failures are errors (ErrDocumentRead,
// ErrDocumentWrite). If ctx is canceled the document is left untouched and
// ctx.Err() is returned. Recovers from internal panics to prevent crashes
// from propagating to callers.
func (p *Packager) Package(ctx context.Context, path string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if path == "" {
		return nil, ErrEmptyPath
	}

	start := time.Now()
	p.logger.Info("Packaging", "path", path)

	data, err := os.ReadFile(path) // #nosec G304 -- path is the document to package
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDocumentRead, path, err)
	}

	before := string(data)
	after, stats := p.PackageHTML(ctx, before, filepath.Dir(path))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Stats:      stats,
		Path:       path,
		SizeBefore: len(before),
		SizeAfter:  len(after),
		Changed:    after != before,
	}

	if res.Changed {
		if err := fileutil.WriteFileAtomic(path, []byte(after)); err != nil {
			p.logger.Error("Write failed, document state unknown", "path", path, "error", err)
			return nil, fmt.Errorf("%w: %s: %w", ErrDocumentWrite, path, err)
		}
	}

	res.Duration = time.Since(start)
	p.logger.Info(fmt.Sprintf("Done (%d KB)", (res.SizeAfter+1023)/1024),
		"path", path, "embedded", res.Embedded, "warnings", len(res.Warnings))
	p.logger.Debug("Packaging time", "path", path, "duration", res.Duration)
	return res, nil
}

// PackageHTML runs the packaging passes over html, resolving relative
// references against baseDir, and returns the new text. Nothing is written.
func (p *Packager) PackageHTML(ctx context.Context, html, baseDir string) (string, Stats) {
	var stats Stats
	rw := pipeline.NewRewriter(pipeline.RewriterOptions{
		Fetcher:   p.fetcher,
		ImagesDir: p.cfg.imagesDir,
		Report: func(w resource.Warning) {
			stats.Warnings = append(stats.Warnings, w)
			p.logWarning(w)
		},
	})

	out, n := rw.Stylesheets(ctx, html, baseDir)
	stats.Embedded += n
	out, n = rw.Scripts(ctx, out)
	stats.Embedded += n
	out, n = rw.Images(ctx, out, baseDir)
	stats.Embedded += n

	return out, stats
}

func (p *Packager) logWarning(w Warning) {
	msg := "Could not fetch"
	if w.Kind == WarnEncode {
		msg = "Could not encode"
	}
	p.logger.Warn(msg, "category", w.Category, "ref", w.Ref, "error", w.Err)
}
