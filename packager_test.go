package docpack_test

// Notes:
// - Remote resources are served by httptest; no test touches the network.
// - The write failure test relies on NAME_MAX: the temporary file name is
//   longer than the document name, so creating it fails while reading the
//   document succeeds. Skipped on Windows where limits differ.

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-docpack"
)

func quietPackager(opts ...docpack.Option) *docpack.Packager {
	opts = append([]docpack.Option{docpack.WithLogger(log.New(io.Discard))}, opts...)
	return docpack.NewPackager(opts...)
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readDoc(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestPackage_LocalImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logo := []byte{0x89, 0x50}
	writeDoc(t, dir, "logo.png", string(logo))
	path := writeDoc(t, dir, "index.html", `<img src="logo.png">`)

	res, err := quietPackager().Package(context.Background(), path)
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	want := `<img src="data:image/png;base64,` + base64.StdEncoding.EncodeToString(logo) + `">`
	if got := readDoc(t, path); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}

	// The payload decodes back to the original bytes.
	got := readDoc(t, path)
	payload := strings.TrimSuffix(strings.TrimPrefix(got, `<img src="data:image/png;base64,`), `">`)
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || !bytes.Equal(decoded, logo) {
		t.Errorf("decoded payload = %v (%v), want %v", decoded, err, logo)
	}

	if res.Embedded != 1 || len(res.Warnings) != 0 || !res.Changed {
		t.Errorf("result = %+v", res)
	}
	if res.SizeBefore != len(`<img src="logo.png">`) || res.SizeAfter != len(want) {
		t.Errorf("sizes = %d -> %d", res.SizeBefore, res.SizeAfter)
	}
}

func TestPackage_FailingRemoteScript(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	input := `<script src="` + srv.URL + `/x.js"></script>`
	path := writeDoc(t, t.TempDir(), "deck.html", input)

	res, err := quietPackager().Package(context.Background(), path)
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	if got := readDoc(t, path); got != input {
		t.Errorf("document = %q, want unchanged %q", got, input)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly 1", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Kind != docpack.WarnFetch || w.Category != "script" || w.Ref != srv.URL+"/x.js" {
		t.Errorf("warning = %+v", w)
	}
	if res.Changed {
		t.Error("Changed = true for an untouched document")
	}
}

func TestPackage_MissingLocalReferences(t *testing.T) {
	t.Parallel()

	input := `<link rel="stylesheet" href="css/missing.css">` +
		`<img src="missing.png">` +
		`<div style="background-image:url(missing-bg.jpg)"></div>` +
		`<section data-background-image="missing-slide.jpg"></section>`
	path := writeDoc(t, t.TempDir(), "doc.html", input)

	res, err := quietPackager().Package(context.Background(), path)
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	if got := readDoc(t, path); got != input {
		t.Errorf("document = %q, want unchanged", got)
	}

	wantRefs := []string{"css/missing.css", "missing.png", "missing-bg.jpg", "missing-slide.jpg"}
	if len(res.Warnings) != len(wantRefs) {
		t.Fatalf("warnings = %v, want %d", res.Warnings, len(wantRefs))
	}
	for i, w := range res.Warnings {
		if w.Ref != wantRefs[i] {
			t.Errorf("warnings[%d].Ref = %q, want %q", i, w.Ref, wantRefs[i])
		}
	}
}

func TestPackage_DataURIsUntouched(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	input := `<link rel="stylesheet" href="data:text/css;base64,cHt9">` +
		`<img src="data:image/png;base64,iVA=">` +
		`<div style="background:url('data:image/gif;base64,R0lG')"></div>`
	path := writeDoc(t, t.TempDir(), "doc.html", input)

	res, err := quietPackager(docpack.WithHTTPClient(srv.Client())).Package(context.Background(), path)
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	if got := readDoc(t, path); got != input {
		t.Errorf("document = %q, want unchanged", got)
	}
	if res.Embedded != 0 || len(res.Warnings) != 0 || hits.Load() != 0 {
		t.Errorf("embedded = %d, warnings = %v, hits = %d", res.Embedded, res.Warnings, hits.Load())
	}
}

func TestPackage_AttributeOrderInvariance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "a.css", "body{margin:0}")
	relFirst := writeDoc(t, dir, "one.html", `<link rel="stylesheet" href="a.css">`)
	hrefFirst := writeDoc(t, dir, "two.html", `<link href="a.css" rel="stylesheet">`)

	p := quietPackager()
	for _, path := range []string{relFirst, hrefFirst} {
		if _, err := p.Package(context.Background(), path); err != nil {
			t.Fatalf("Package(%s) error = %v", path, err)
		}
	}

	one, two := readDoc(t, relFirst), readDoc(t, hrefFirst)
	if one != two {
		t.Errorf("outputs differ:\n%q\n%q", one, two)
	}
	if one != "<style>\nbody{margin:0}\n</style>" {
		t.Errorf("output = %q", one)
	}
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestPackage_Idempotent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reveal.css":
			_, _ = w.Write([]byte(`.reveal{font-family:x}`))
		case "/reveal.js":
			_, _ = w.Write([]byte(`var Reveal={}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	writeDoc(t, dir, "theme/site.css", `h1{background:url(../images/h.png)}`)
	writeDoc(t, dir, "images/h.png", "H")
	writeDoc(t, dir, "images/bg.jpg", "BG")
	writeDoc(t, dir, "logo.svg", "<svg/>")
	path := writeDoc(t, dir, "talk-slides.html", `<!DOCTYPE html>
<html><head>
<link rel="stylesheet" href="`+srv.URL+`/reveal.css">
<link rel="stylesheet" href="theme/site.css">
</head><body>
<section data-background-image="bg.jpg"><img src="logo.svg"></section>
<script src="`+srv.URL+`/reveal.js"></script>
<script src="local.js"></script>
</body></html>`)

	p := quietPackager()
	first, err := p.Package(context.Background(), path)
	if err != nil {
		t.Fatalf("first Package() error = %v", err)
	}
	if first.Embedded != 6 {
		t.Errorf("first run embedded = %d, want 6", first.Embedded)
	}
	once := readDoc(t, path)

	second, err := p.Package(context.Background(), path)
	if err != nil {
		t.Fatalf("second Package() error = %v", err)
	}
	if twice := readDoc(t, path); twice != once {
		t.Errorf("second run changed the document\nfirst:  %s\nsecond: %s", once, twice)
	}
	if second.Changed || second.Embedded != 0 || len(second.Warnings) != 0 {
		t.Errorf("second result = %+v", second)
	}
	if !strings.Contains(once, `<script src="local.js"></script>`) {
		t.Error("local script was inlined")
	}
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestPackage_ReadErrors(t *testing.T) {
	t.Parallel()

	p := quietPackager()

	if _, err := p.Package(context.Background(), ""); !errors.Is(err, docpack.ErrEmptyPath) {
		t.Errorf("Package(\"\") error = %v, want ErrEmptyPath", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.html")
	_, err := p.Package(context.Background(), missing)
	if !errors.Is(err, docpack.ErrDocumentRead) {
		t.Fatalf("error = %v, want ErrDocumentRead", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want the cause to be kept", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error %q does not name the path", err)
	}
}

func TestPackage_WriteError(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("relies on POSIX NAME_MAX")
	}

	dir := t.TempDir()
	writeDoc(t, dir, "logo.png", "PN")
	name := strings.Repeat("d", 245) + ".html"
	path := writeDoc(t, dir, name, `<img src="logo.png">`)

	_, err := quietPackager().Package(context.Background(), path)
	if !errors.Is(err, docpack.ErrDocumentWrite) {
		t.Fatalf("error = %v, want ErrDocumentWrite", err)
	}
	if got := readDoc(t, path); got != `<img src="logo.png">` {
		t.Errorf("document = %q, want original content", got)
	}
}

func TestPackage_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "logo.png", "PN")
	path := writeDoc(t, dir, "doc.html", `<img src="logo.png">`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietPackager().Package(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if got := readDoc(t, path); got != `<img src="logo.png">` {
		t.Errorf("document = %q, want untouched", got)
	}
}

// ---------------------------------------------------------------------------
// PackageHTML / options / logging
// ---------------------------------------------------------------------------

func TestPackageHTML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "assets/bg.png", "BG")

	out, stats := quietPackager(docpack.WithImagesDir("assets")).PackageHTML(
		context.Background(),
		`<section data-background-image="bg.png"></section><img src="nope.gif">`,
		dir,
	)

	want := `<section data-background-image="data:image/png;base64,` +
		base64.StdEncoding.EncodeToString([]byte("BG")) + `"></section><img src="nope.gif">`
	if out != want {
		t.Errorf("PackageHTML() = %q\nwant %q", out, want)
	}
	if stats.Embedded != 1 || len(stats.Warnings) != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPackage_LogsWarnings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.New(&buf)
	path := writeDoc(t, t.TempDir(), "doc.html", `<img src="gone.png">`)

	if _, err := docpack.NewPackager(docpack.WithLogger(logger)).Package(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"Packaging", "Could not fetch", "gone.png", "Done"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestWithTimeout_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithTimeout(0) did not panic")
		}
	}()
	docpack.WithTimeout(0)
}

func TestWithTimeout_Applies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	start := time.Now()
	_, stats := quietPackager(docpack.WithTimeout(50*time.Millisecond)).PackageHTML(
		context.Background(), `<script src="`+srv.URL+`/slow.js"></script>`, t.TempDir())
	if len(stats.Warnings) != 1 {
		t.Errorf("warnings = %v, want 1", stats.Warnings)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("took %v, timeout not applied", elapsed)
	}
}
