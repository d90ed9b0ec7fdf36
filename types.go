package docpack

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-docpack/internal/resource"
)

// Warning describes one reference that could not be embedded.
type Warning = resource.Warning

// Warning kinds.
const (
	WarnFetch  = resource.WarnFetch
	WarnEncode = resource.WarnEncode
)

// Defaults applied by NewPackager.
const (
	DefaultTimeout   = resource.DefaultTimeout
	DefaultMaxBytes  = resource.DefaultMaxBytes
	DefaultImagesDir = "images"
)

// Stats summarizes one packaging transform.
type Stats struct {
	Embedded int       // references replaced by inline content
	Warnings []Warning // references kept as they were
}

// Result reports the outcome of packaging one document.
type Result struct {
	Stats
	Path       string
	SizeBefore int
	SizeAfter  int
	Changed    bool // false when nothing was embedded and the file was not rewritten
	Duration   time.Duration
}

// Option configures a Packager.
type Option func(*Packager)

// packagerConfig holds internal configuration for Packager.
type packagerConfig struct {
	timeout   time.Duration
	maxBytes  int64
	userAgent string
	imagesDir string
	client    *http.Client
}

// WithTimeout sets the timeout for each remote fetch.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("docpack: WithTimeout duration must be positive")
	}
	return func(p *Packager) {
		p.cfg.timeout = d
	}
}

// WithMaxBytes limits the size of remote response bodies.
// Panics if n <= 0.
func WithMaxBytes(n int64) Option {
	if n <= 0 {
		panic("docpack: WithMaxBytes limit must be positive")
	}
	return func(p *Packager) {
		p.cfg.maxBytes = n
	}
}

// WithUserAgent sets the User-Agent header of remote fetches.
func WithUserAgent(ua string) Option {
	return func(p *Packager) {
		p.cfg.userAgent = ua
	}
}

// WithImagesDir sets the directory, relative to the document, searched first
// for data-background-image values. An empty name disables the lookup.
func WithImagesDir(dir string) Option {
	return func(p *Packager) {
		p.cfg.imagesDir = dir
	}
}

// WithHTTPClient replaces the HTTP client used for remote fetches. The
// client's own timeout applies instead of WithTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Packager) {
		p.cfg.client = c
	}
}

// WithLogger sets the logger for progress and warnings.
func WithLogger(l *log.Logger) Option {
	return func(p *Packager) {
		p.logger = l
	}
}
