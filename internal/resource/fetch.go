package resource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Fetcher defaults.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBytes  = 32 << 20
	DefaultUserAgent = "docpack/1.0"
)

// Resource is the outcome of resolving one reference. Exactly one of Data
// (possibly empty but non-nil) or Warning is set for local and remote
// origins; both are nil for AlreadyInline and Unresolvable references.
type Resource struct {
	Ref         string
	Origin      Origin
	Location    string // path read or URL fetched
	Data        []byte
	ContentType string // HTTP Content-Type, empty for local files
	Warning     *Warning
}

// Resolved reports whether the resource carries bytes to embed.
func (r Resource) Resolved() bool {
	return r.Data != nil && r.Warning == nil
}

// Config configures a Fetcher.
type Config struct {
	Timeout   time.Duration // per request, default 30s
	MaxBytes  int64         // remote body limit, default 32 MiB
	UserAgent string
	Client    *http.Client // optional; Timeout is ignored when set
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Fetcher reads local files and fetches remote URLs. It holds no per-document
// state and is safe for concurrent use.
type Fetcher struct {
	client *http.Client
	cfg    Config
}

// NewFetcher creates a Fetcher. Remote requests are never retried.
func NewFetcher(cfg Config) *Fetcher {
	cfg.defaults()
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{client: client, cfg: cfg}
}

// Fetch resolves ref. Local references are tried against each directory in
// dirs, in order, and the first existing regular file wins.
func (f *Fetcher) Fetch(ctx context.Context, ref string, dirs ...string) Resource {
	res := Resource{Ref: ref, Origin: Classify(ref)}

	switch res.Origin {
	case RemoteURL:
		f.fetchRemote(ctx, &res)
	case LocalFile:
		readLocal(&res, dirs)
	}
	return res
}

// readLocal reads the first candidate path that exists.
func readLocal(res *Resource, dirs []string) {
	candidates := Candidates(res.Ref, dirs...)
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		res.Location = p
		data, err := os.ReadFile(p) // #nosec G304 -- path comes from the document being packaged
		if err != nil {
			res.Warning = &Warning{Kind: WarnFetch, Ref: res.Ref, Location: p, Err: err}
			return
		}
		res.Data = data
		return
	}

	res.Location = strings.Join(candidates, ", ")
	res.Warning = &Warning{Kind: WarnFetch, Ref: res.Ref, Location: res.Location, Err: ErrNotFound}
}

// fetchRemote performs a single GET bounded by the client timeout.
func (f *Fetcher) fetchRemote(ctx context.Context, res *Resource) {
	res.Location = strings.TrimSpace(res.Ref)
	warn := func(err error) {
		res.Warning = &Warning{Kind: WarnFetch, Ref: res.Ref, Location: res.Location, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.Location, nil)
	if err != nil {
		warn(fmt.Errorf("new request: %w", err))
		return
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		warn(err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		warn(fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status))
		return
	}

	// Read one byte past the limit to tell "exactly MaxBytes" from "more".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		warn(fmt.Errorf("read body: %w", err))
		return
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		warn(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.cfg.MaxBytes))
		return
	}
	if body == nil {
		body = []byte{}
	}

	res.Data = body
	res.ContentType = resp.Header.Get("Content-Type")
}
