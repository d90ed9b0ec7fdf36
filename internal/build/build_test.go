package build

// Notes:
// - The converter is a fake that writes a small page; asciidoctor is never
//   run here. The packaging path uses the real docpack.Packager.
// - Staleness relies on explicit os.Chtimes so tests do not depend on the
//   file system's timestamp resolution.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	docpack "github.com/alnah/go-docpack"
	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/convert"
)

// fakeConverter writes an HTML page referencing logo.png, or fails for
// sources whose name contains "broken".
type fakeConverter struct {
	mu    sync.Mutex
	calls map[string]convert.Options
}

func (f *fakeConverter) Convert(ctx context.Context, src, dst string, opts convert.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]convert.Options)
	}
	f.calls[filepath.Base(src)] = opts
	f.mu.Unlock()

	if strings.Contains(src, "broken") {
		return "", fmt.Errorf("%w: %s: syntax error", convert.ErrConvert, src)
	}
	page := `<html><body><img src="logo.png"></body></html>`
	if err := os.WriteFile(dst, []byte(page), 0o644); err != nil {
		return "", err
	}
	if strings.Contains(src, "noisy") {
		return "WARNING: section title out of sequence", nil
	}
	return "", nil
}

func (f *fakeConverter) called(name string) (convert.Options, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opts, ok := f.calls[name]
	return opts, ok
}

// countingPackager records calls and delegates to a real packager.
type countingPackager struct {
	calls atomic.Int32
	inner *docpack.Packager
}

func (c *countingPackager) Package(ctx context.Context, path string) (*docpack.Result, error) {
	c.calls.Add(1)
	return c.inner.Package(ctx, path)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestConfig(root string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.Root = root
	cfg.Source.Patterns = []string{"**/*.adoc", "**/*.md"}
	return cfg
}

func setMtime(t *testing.T, path string, mt time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("Chtimes(%q): %v", path, err)
	}
}

// ---------------------------------------------------------------------------
// TestBuilder_Plan - Staleness by modification time
// ---------------------------------------------------------------------------

func TestBuilder_Plan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "fresh.adoc", "fresh.html", "stale.adoc", "stale.html", "new-slides.adoc")

	old := time.Now().Add(-time.Hour)
	setMtime(t, filepath.Join(root, "fresh.adoc"), old)
	setMtime(t, filepath.Join(root, "stale.html"), old)

	sources := []string{
		filepath.Join(root, "fresh.adoc"),
		filepath.Join(root, "new-slides.adoc"),
		filepath.Join(root, "stale.adoc"),
	}

	b := New(newTestConfig(root), &fakeConverter{}, WithLogger(quietLogger()))

	t.Run("incremental", func(t *testing.T) {
		t.Parallel()

		jobs, skipped := b.Plan(sources, false)
		if len(jobs) != 2 || len(skipped) != 1 {
			t.Fatalf("Plan() = %d jobs, %d skipped; want 2, 1", len(jobs), len(skipped))
		}
		if filepath.Base(skipped[0].Source) != "fresh.adoc" || !skipped[0].Skipped {
			t.Errorf("skipped = %+v", skipped[0])
		}
		if jobs[0].Target != filepath.Join(root, "new-slides.html") || !jobs[0].Slides {
			t.Errorf("jobs[0] = %+v, want slides job targeting new-slides.html", jobs[0])
		}
		if jobs[1].Slides {
			t.Errorf("stale.adoc should not be a slide deck")
		}
	})

	t.Run("force", func(t *testing.T) {
		t.Parallel()

		jobs, skipped := b.Plan(sources, true)
		if len(jobs) != 3 || len(skipped) != 0 {
			t.Errorf("Plan(force) = %d jobs, %d skipped; want 3, 0", len(jobs), len(skipped))
		}
	})
}

func TestBuilder_Plan_TargetConflict(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "intro.adoc", "intro.md", "other.md")

	sources, err := Discover(root, []string{"**/*.adoc", "**/*.md"}, nil)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	b := New(newTestConfig(root), &fakeConverter{}, WithLogger(quietLogger()))
	jobs, decided := b.Plan(sources, true)

	if len(jobs) != 2 {
		t.Fatalf("Plan() = %d jobs, want 2", len(jobs))
	}
	targets := make(map[string]string)
	for _, j := range jobs {
		if prev, dup := targets[j.Target]; dup {
			t.Errorf("%s and %s both target %s", prev, j.Source, j.Target)
		}
		targets[j.Target] = j.Source
	}
	if got := filepath.Base(targets[filepath.Join(root, "intro.html")]); got != "intro.adoc" {
		t.Errorf("intro.html owned by %q, want intro.adoc", got)
	}

	if len(decided) != 1 {
		t.Fatalf("decided = %+v, want one conflict", decided)
	}
	if filepath.Base(decided[0].Source) != "intro.md" || !errors.Is(decided[0].Err, ErrTargetConflict) {
		t.Errorf("decided[0] = %+v, want intro.md with ErrTargetConflict", decided[0])
	}
	if !strings.Contains(decided[0].Err.Error(), "intro.adoc") {
		t.Errorf("error %q does not name the owning source", decided[0].Err)
	}
}

func TestBuilder_Run_TargetConflict(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "intro.adoc", "intro.md")

	conv := &fakeConverter{}
	b := New(newTestConfig(root), conv, WithLogger(quietLogger()))
	results, err := b.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if s := Summarize(results); s.Converted != 1 || s.Failed != 1 {
		t.Errorf("Summarize() = %+v, want 1 converted and 1 failed", s)
	}
	if _, ok := conv.called("intro.md"); ok {
		t.Error("conflicting source was converted")
	}
}

// ---------------------------------------------------------------------------
// TestBuilder_Run - Convert, package, isolate failures
// ---------------------------------------------------------------------------

func TestBuilder_Run(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "guide.adoc", "deck-slides.adoc", "broken-slides.adoc", "noisy.md")
	if err := os.WriteFile(filepath.Join(root, "logo.png"), []byte{0x89, 0x50}, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	conv := &fakeConverter{}
	pkg := &countingPackager{inner: docpack.NewPackager(docpack.WithLogger(quietLogger()))}
	b := New(newTestConfig(root), conv, WithPackager(pkg), WithLogger(quietLogger()), WithWorkers(2))

	results, err := b.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	summary := Summarize(results)
	want := Summary{Converted: 3, Packaged: 1, Skipped: 0, Failed: 1}
	if summary != want {
		t.Errorf("Summarize() = %+v, want %+v", summary, want)
	}
	if pkg.calls.Load() != 1 {
		t.Errorf("packager called %d times, want 1", pkg.calls.Load())
	}

	deck, err := os.ReadFile(filepath.Join(root, "deck-slides.html"))
	if err != nil {
		t.Fatalf("reading deck: %v", err)
	}
	if !strings.Contains(string(deck), `src="data:image/png;base64,iVA="`) {
		t.Errorf("deck not packaged: %s", deck)
	}
	guide, _ := os.ReadFile(filepath.Join(root, "guide.html"))
	if !strings.Contains(string(guide), `src="logo.png"`) {
		t.Errorf("non-matching page should not be packaged: %s", guide)
	}

	if opts, ok := conv.called("deck-slides.adoc"); !ok || !opts.Slides {
		t.Errorf("deck converted with %+v, want Slides", opts)
	}

	for _, r := range results {
		switch filepath.Base(r.Source) {
		case "broken-slides.adoc":
			if !errors.Is(r.Err, convert.ErrConvert) || r.Packaged() {
				t.Errorf("broken result = %+v", r)
			}
		case "noisy.md":
			if r.Warnings == "" || r.Err != nil {
				t.Errorf("noisy result = %+v, want warnings and no error", r)
			}
		}
	}

	// Second run: every converted target is now newer than its source.
	again, err := b.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if s := Summarize(again); s.Skipped != 3 || s.Failed != 1 {
		t.Errorf("second run summary = %+v, want 3 skipped and the broken source retried", s)
	}
}

func TestBuilder_Run_PackagingDisabled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "deck-slides.adoc")

	cfg := newTestConfig(root)
	off := false
	cfg.Package.Enabled = &off

	pkg := &countingPackager{inner: docpack.NewPackager(docpack.WithLogger(quietLogger()))}
	b := New(cfg, &fakeConverter{}, WithPackager(pkg), WithLogger(quietLogger()))

	results, err := b.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 || results[0].Packaged() || pkg.calls.Load() != 0 {
		t.Errorf("results = %+v, packager calls = %d; want no packaging", results, pkg.calls.Load())
	}
}

func TestBuilder_Run_MissingRoot(t *testing.T) {
	t.Parallel()

	b := New(newTestConfig(filepath.Join(t.TempDir(), "missing")), &fakeConverter{}, WithLogger(quietLogger()))
	if _, err := b.Run(context.Background(), false); !errors.Is(err, ErrNoRoot) {
		t.Errorf("Run() error = %v, want ErrNoRoot", err)
	}
}

func TestBuilder_Execute_Canceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a.adoc", "b.adoc")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New(newTestConfig(root), &fakeConverter{}, WithLogger(quietLogger()))
	results := b.Execute(ctx, []Job{
		{Source: filepath.Join(root, "a.adoc"), Target: filepath.Join(root, "a.html")},
		{Source: filepath.Join(root, "b.adoc"), Target: filepath.Join(root, "b.html")},
	})

	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: error = %v, want context.Canceled", r.Source, r.Err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "a.html")); !os.IsNotExist(err) {
		t.Error("no target should be written after cancellation")
	}
}

func TestBuilder_Execute_Empty(t *testing.T) {
	t.Parallel()

	b := New(newTestConfig(t.TempDir()), &fakeConverter{}, WithLogger(quietLogger()))
	if got := b.Execute(context.Background(), nil); got != nil {
		t.Errorf("Execute(nil) = %v, want nil", got)
	}
}

// ---------------------------------------------------------------------------
// TestSummarize - Outcome counting
// ---------------------------------------------------------------------------

func TestSummarize(t *testing.T) {
	t.Parallel()

	results := []Result{
		{Converted: true},
		{Converted: true, Package: &docpack.Result{}},
		{Skipped: true},
		{Err: errors.New("boom")},
	}
	want := Summary{Converted: 2, Packaged: 1, Skipped: 1, Failed: 1}
	if got := Summarize(results); got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}
