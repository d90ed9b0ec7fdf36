package pipeline

import (
	"context"
	"net/url"
	"strings"

	"github.com/alnah/go-docpack/internal/resource"
)

// CSSRewriter embeds the local files referenced by url() in CSS text.
type CSSRewriter struct {
	fetcher *resource.Fetcher
	report  Reporter
}

// NewCSSRewriter creates a CSSRewriter. A nil report discards warnings.
func NewCSSRewriter(fetcher *resource.Fetcher, report Reporter) *CSSRewriter {
	return &CSSRewriter{fetcher: fetcher, report: report.orDiscard()}
}

// Rewrite replaces every local url() argument that resolves against baseDir
// with a data URI and returns the new CSS with the number of embedded
// references. data:, remote and unresolvable values are left untouched, as
// are files that do not exist. Each url() is resolved on its own.
func (c *CSSRewriter) Rewrite(ctx context.Context, css, baseDir string) (string, int) {
	refs := CSSURLMatcher{}.Find(css)
	return substitute(css, refs, func(ref Reference) (string, bool) {
		if ref.Origin != resource.LocalFile || ctx.Err() != nil {
			return "", false
		}
		res := c.fetcher.Fetch(ctx, ref.Value, baseDir)
		if !res.Resolved() {
			c.report.warn(ref.Category, res.Warning)
			return "", false
		}
		return ref.Quote + resource.DataURI(res.Data, res.Location) + ref.Quote, true
	})
}

// AbsolutizeCSS rewrites relative url() values in a stylesheet fetched from
// base so they still point at the same place once the CSS is inlined into a
// document that lives elsewhere. Nothing is fetched.
func AbsolutizeCSS(css, base string) string {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || !baseURL.IsAbs() {
		return css
	}
	refs := CSSURLMatcher{}.Find(css)
	out, _ := substitute(css, refs, func(ref Reference) (string, bool) {
		relative := ref.Origin == resource.LocalFile || strings.HasPrefix(ref.Value, "//")
		if !relative {
			return "", false
		}
		u, err := url.Parse(ref.Value)
		if err != nil || u.IsAbs() {
			return "", false
		}
		abs := baseURL.ResolveReference(u).String()
		quote := ref.Quote
		if quote == "" && strings.ContainsAny(abs, "()'\" \t\n") {
			quote = `"`
		}
		return quote + abs + quote, true
	})
	return out
}
