package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	docpack "github.com/alnah/go-docpack"
	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/convert"
	"github.com/alnah/go-docpack/internal/fileutil"
)

// ErrTargetConflict reports two sources that would write the same page,
// such as intro.adoc and intro.md.
var ErrTargetConflict = errors.New("target conflict")

// Packager embeds the resources of a generated page. *docpack.Packager
// implements it.
type Packager interface {
	Package(ctx context.Context, path string) (*docpack.Result, error)
}

// Compile-time interface check.
var _ Packager = (*docpack.Packager)(nil)

// Job is one source to convert.
type Job struct {
	Source string
	Target string
	// Slides selects the presentation backend and packaging.
	Slides bool
}

// Result holds the outcome of one source.
type Result struct {
	Job
	Skipped   bool   // target was up to date
	Converted bool   // target was written
	Warnings  string // converter diagnostics on success
	Package   *docpack.Result
	Err       error
	Duration  time.Duration
}

// Packaged reports whether the target was packaged.
func (r Result) Packaged() bool {
	return r.Package != nil
}

// Summary counts results by outcome.
type Summary struct {
	Converted int
	Packaged  int
	Skipped   int
	Failed    int
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case r.Skipped:
			s.Skipped++
		default:
			s.Converted++
		}
		if r.Packaged() {
			s.Packaged++
		}
	}
	return s
}

// Builder runs builds for one configuration.
type Builder struct {
	cfg       *config.Config
	converter convert.Converter
	packager  Packager
	logger    *log.Logger
	workers   int
}

// Option configures a Builder.
type Option func(*Builder)

// WithPackager enables packaging of matching targets. Without it, or with
// a nil packager, targets are only converted.
func WithPackager(p Packager) Option {
	return func(b *Builder) {
		b.packager = p
	}
}

// WithLogger sets the logger used for progress and diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithWorkers sets the number of documents built in parallel.
// 0 uses docpack.ResolveWorkers.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		b.workers = n
	}
}

// New creates a Builder. cfg must have defaults applied.
func New(cfg *config.Config, converter convert.Converter, opts ...Option) *Builder {
	b := &Builder{
		cfg:       cfg,
		converter: converter,
		workers:   cfg.Build.Workers,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "docpack"})
	}
	return b
}

// Run discovers, plans and executes a build of the configured source root.
// Only discovery failures are returned as errors; per-document failures
// are in the results.
func (b *Builder) Run(ctx context.Context, force bool) ([]Result, error) {
	sources, err := Discover(b.cfg.Source.Root, b.cfg.Source.Patterns, b.cfg.Source.Ignore)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("Discovered sources", "root", b.cfg.Source.Root, "count", len(sources))

	jobs, decided := b.Plan(sources, force)
	return append(decided, b.Execute(ctx, jobs)...), nil
}

// Plan splits sources into jobs to run and results decided up front:
// up-to-date sources, and sources whose target an earlier source already
// claims. The first source in order owns a target; later ones fail with
// ErrTargetConflict and are never converted. A source is stale when force
// is set or its target is older than it; a missing target counts as
// infinitely old.
func (b *Builder) Plan(sources []string, force bool) (jobs []Job, decided []Result) {
	owners := make(map[string]string, len(sources))
	for _, src := range sources {
		target := fileutil.ReplaceExt(src, ".html")
		job := Job{Source: src, Target: target, Slides: b.cfg.Package.Matches(target)}
		key := filepath.Clean(target)
		if owner, taken := owners[key]; taken {
			err := fmt.Errorf("%w: %s is also built from %s", ErrTargetConflict, target, owner)
			b.logger.Error("Source skipped", "source", src, "error", err)
			decided = append(decided, Result{Job: job, Err: err})
			continue
		}
		owners[key] = src
		if force || fileutil.ModTime(job.Target).Before(fileutil.ModTime(src)) {
			jobs = append(jobs, job)
			continue
		}
		decided = append(decided, Result{Job: job, Skipped: true})
	}
	return jobs, decided
}

// Execute runs jobs concurrently and returns their results in job order.
func (b *Builder) Execute(ctx context.Context, jobs []Job) []Result {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := docpack.ResolveWorkers(b.workers)
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	results := make([]Result, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Job: jobs[idx], Err: err}
					continue
				}
				results[idx] = b.buildOne(ctx, jobs[idx])
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

// buildOne converts one source and packages its target when it matches.
func (b *Builder) buildOne(ctx context.Context, job Job) Result {
	start := time.Now()
	res := Result{Job: job}

	b.logger.Info("Converting", "source", job.Source)
	warnings, err := b.converter.Convert(ctx, job.Source, job.Target, convert.Options{Slides: job.Slides})
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		if !errors.Is(err, context.Canceled) {
			b.logger.Error("Conversion failed", "source", job.Source, "error", err)
		}
		return res
	}
	res.Converted = true
	res.Warnings = warnings
	if warnings != "" {
		b.logger.Warn("Converter reported problems", "source", job.Source, "output", warnings)
	}

	if job.Slides && b.packager != nil && b.cfg.Package.IsEnabled() {
		pkg, err := b.packager.Package(ctx, job.Target)
		if err != nil {
			res.Err = fmt.Errorf("packaging %s: %w", job.Target, err)
			res.Duration = time.Since(start)
			return res
		}
		res.Package = pkg
	}

	res.Duration = time.Since(start)
	return res
}
