package resource_test

// Notes:
// - Remote fetches run against httptest servers; no test touches the network.
// - The timeout test uses a 50ms client timeout against a handler that blocks
//   until the request context ends, so it stays fast.

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-docpack/internal/resource"
)

// ---------------------------------------------------------------------------
// Local files
// ---------------------------------------------------------------------------

func TestFetch_Local(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	images := filepath.Join(dir, "images")
	if err := os.MkdirAll(images, 0o750); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "logo.png"), "root")
	writeFile(t, filepath.Join(images, "bg.jpg"), "images")
	writeFile(t, filepath.Join(dir, "bg.jpg"), "root-bg")
	writeFile(t, filepath.Join(dir, "empty.css"), "")

	f := resource.NewFetcher(resource.Config{})
	ctx := context.Background()

	tests := []struct {
		name     string
		ref      string
		dirs     []string
		wantData string
		wantWarn bool
	}{
		{name: "existing file", ref: "logo.png", dirs: []string{dir}, wantData: "root"},
		{name: "first base wins", ref: "bg.jpg", dirs: []string{images, dir}, wantData: "images"},
		{name: "falls back to second base", ref: "logo.png", dirs: []string{images, dir}, wantData: "root"},
		{name: "empty file resolves", ref: "empty.css", dirs: []string{dir}, wantData: ""},
		{name: "missing file warns", ref: "nope.png", dirs: []string{dir}, wantWarn: true},
		{name: "directory is not a file", ref: "images", dirs: []string{dir}, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := f.Fetch(ctx, tt.ref, tt.dirs...)
			if res.Origin != resource.LocalFile {
				t.Fatalf("Origin = %v, want local-file", res.Origin)
			}
			if tt.wantWarn {
				if res.Warning == nil {
					t.Fatal("expected warning")
				}
				if res.Resolved() {
					t.Error("Resolved() = true for a warning")
				}
				if !errors.Is(res.Warning.Err, resource.ErrNotFound) {
					t.Errorf("warning err = %v, want ErrNotFound", res.Warning.Err)
				}
				if res.Warning.Kind != resource.WarnFetch {
					t.Errorf("warning kind = %q, want fetch", res.Warning.Kind)
				}
				return
			}
			if !res.Resolved() {
				t.Fatalf("unexpected warning: %v", res.Warning)
			}
			if string(res.Data) != tt.wantData {
				t.Errorf("Data = %q, want %q", res.Data, tt.wantData)
			}
		})
	}
}

func TestFetch_PassThrough(t *testing.T) {
	t.Parallel()

	f := resource.NewFetcher(resource.Config{})
	for _, ref := range []string{"data:image/png;base64,AAAA", "#frag", "mailto:x@example.com"} {
		res := f.Fetch(context.Background(), ref, t.TempDir())
		if res.Data != nil || res.Warning != nil {
			t.Errorf("Fetch(%q) = %+v, want neither data nor warning", ref, res)
		}
	}
}

// ---------------------------------------------------------------------------
// Remote URLs
// ---------------------------------------------------------------------------

func TestFetch_Remote(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.js":
			if r.Header.Get("User-Agent") != "test-agent" {
				http.Error(w, "bad agent", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
			_, _ = w.Write([]byte("console.log(1)"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := resource.NewFetcher(resource.Config{UserAgent: "test-agent", MaxBytes: 32})
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		res := f.Fetch(ctx, srv.URL+"/ok.js")
		if !res.Resolved() {
			t.Fatalf("unexpected warning: %v", res.Warning)
		}
		if res.Origin != resource.RemoteURL {
			t.Errorf("Origin = %v, want remote-url", res.Origin)
		}
		if string(res.Data) != "console.log(1)" {
			t.Errorf("Data = %q", res.Data)
		}
		if !strings.HasPrefix(res.ContentType, "text/javascript") {
			t.Errorf("ContentType = %q", res.ContentType)
		}
	})

	t.Run("not found status", func(t *testing.T) {
		t.Parallel()

		res := f.Fetch(ctx, srv.URL+"/missing.css")
		if res.Warning == nil || !errors.Is(res.Warning.Err, resource.ErrHTTPStatus) {
			t.Fatalf("warning = %v, want ErrHTTPStatus", res.Warning)
		}
		if res.Warning.Ref != srv.URL+"/missing.css" {
			t.Errorf("warning ref = %q", res.Warning.Ref)
		}
	})

	t.Run("body over limit", func(t *testing.T) {
		t.Parallel()

		res := f.Fetch(ctx, srv.URL+"/big")
		if res.Warning == nil || !errors.Is(res.Warning.Err, resource.ErrTooLarge) {
			t.Fatalf("warning = %v, want ErrTooLarge", res.Warning)
		}
	})
}

func TestFetch_RemoteTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	f := resource.NewFetcher(resource.Config{Timeout: 50 * time.Millisecond})

	start := time.Now()
	res := f.Fetch(context.Background(), srv.URL+"/slow.js")
	if res.Warning == nil {
		t.Fatal("expected warning on timeout")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("fetch took %v, timeout not applied", time.Since(start))
	}
}

func TestFetch_RemoteUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/x.js"
	srv.Close()

	res := resource.NewFetcher(resource.Config{}).Fetch(context.Background(), url)
	if res.Warning == nil {
		t.Fatal("expected warning for closed server")
	}
	if res.Warning.Kind != resource.WarnFetch {
		t.Errorf("kind = %q, want fetch", res.Warning.Kind)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
