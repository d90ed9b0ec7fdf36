package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/dateutil"
	"github.com/alnah/go-docpack/internal/process"
)

// RunFunc executes an external command. process.Run is the default;
// tests substitute a fake.
type RunFunc func(ctx context.Context, dir, name string, args ...string) (process.Output, error)

// Asciidoctor converts AsciiDoc sources by running the asciidoctor executable.
type Asciidoctor struct {
	bin      string
	revealjs string
	attrs    map[string]string
	run      RunFunc
	now      func() time.Time
}

// AsciidoctorOption configures an Asciidoctor.
type AsciidoctorOption func(*Asciidoctor)

// WithRunner replaces the command runner.
func WithRunner(run RunFunc) AsciidoctorOption {
	return func(a *Asciidoctor) {
		a.run = run
	}
}

// WithClock sets the time used to expand "auto" date attributes.
func WithClock(now func() time.Time) AsciidoctorOption {
	return func(a *Asciidoctor) {
		a.now = now
	}
}

// NewAsciidoctor creates an Asciidoctor from its config section. Empty
// fields fall back to config defaults.
func NewAsciidoctor(cfg config.AsciidoctorConfig, opts ...AsciidoctorOption) *Asciidoctor {
	a := &Asciidoctor{
		bin:      cfg.Bin,
		revealjs: cfg.RevealJS,
		attrs:    cfg.Attributes,
		run:      process.Run,
		now:      time.Now,
	}
	if a.bin == "" {
		a.bin = config.DefaultAsciidoctorBin
	}
	if a.revealjs == "" {
		a.revealjs = config.DefaultRevealJS
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bin returns the executable name or path.
func (a *Asciidoctor) Bin() string {
	return a.bin
}

// RevealJS returns the require path of the reveal.js backend.
func (a *Asciidoctor) RevealJS() string {
	return a.revealjs
}

// Args builds the asciidoctor argument list for one conversion.
// Attributes are passed in name order so runs are reproducible.
func (a *Asciidoctor) Args(src, dst string, opts Options) ([]string, error) {
	args := make([]string, 0, 6+2*len(a.attrs))
	if opts.Slides {
		args = append(args, "-r", a.revealjs, "-b", "revealjs")
	}

	names := make([]string, 0, len(a.attrs))
	for k := range a.attrs {
		names = append(names, k)
	}
	sort.Strings(names)

	now := a.now()
	for _, k := range names {
		v, err := dateutil.ResolveDate(a.attrs[k], now)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		if v == "" {
			args = append(args, "-a", k)
			continue
		}
		args = append(args, "-a", k+"="+v)
	}

	return append(args, src, "-o", dst), nil
}

// Convert runs asciidoctor on src. A non-zero exit is ErrConvert with the
// tool's own message; a missing executable is ErrConverterNotFound.
func (a *Asciidoctor) Convert(ctx context.Context, src, dst string, opts Options) (string, error) {
	args, err := a.Args(src, dst, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConvert, src, err)
	}

	out, err := a.run(ctx, "", a.bin, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if missingExecutable(err) {
			return "", fmt.Errorf("%w: %s", ErrConverterNotFound, a.bin)
		}
		return "", fmt.Errorf("%w: %s: %s", ErrConvert, src, detail(out, err))
	}

	return strings.TrimSpace(string(out.Stderr)), nil
}

// Version returns the first line of `asciidoctor --version`.
func (a *Asciidoctor) Version(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "", a.bin, "--version")
	if err != nil {
		if missingExecutable(err) {
			return "", fmt.Errorf("%w: %s", ErrConverterNotFound, a.bin)
		}
		return "", fmt.Errorf("%s --version: %s", a.bin, detail(out, err))
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out.Stdout)), "\n")
	return strings.TrimSpace(line), nil
}

// CheckRevealJS verifies asciidoctor can load the reveal.js backend.
func (a *Asciidoctor) CheckRevealJS(ctx context.Context) error {
	out, err := a.run(ctx, "", a.bin, "-r", a.revealjs, "--version")
	if err != nil {
		if missingExecutable(err) {
			return fmt.Errorf("%w: %s", ErrConverterNotFound, a.bin)
		}
		return fmt.Errorf("%w: %s: %s", ErrRevealJSMissing, a.revealjs, detail(out, err))
	}
	return nil
}

// missingExecutable reports a bare name absent from PATH or a path that
// does not exist.
func missingExecutable(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// detail picks the most useful text describing a failed run.
func detail(out process.Output, err error) string {
	if msg := bytes.TrimSpace(out.Stderr); len(msg) > 0 {
		return string(msg)
	}
	if msg := bytes.TrimSpace(out.Stdout); len(msg) > 0 {
		return string(msg)
	}
	return err.Error()
}

// Compile-time interface check.
var _ Converter = (*Asciidoctor)(nil)
