package pipeline

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-docpack/internal/resource"
)

// Reporter receives one warning per reference that could not be embedded.
type Reporter func(resource.Warning)

func (r Reporter) orDiscard() Reporter {
	if r == nil {
		return func(resource.Warning) {}
	}
	return r
}

// warn tags w with the category of the reference that produced it.
func (r Reporter) warn(category Category, w *resource.Warning) {
	if w == nil {
		return
	}
	tagged := *w
	tagged.Category = string(category)
	r(tagged)
}

// Rewriter runs the HTML substitution passes. Each pass takes the document
// text and its directory and returns the new text with the number of
// references embedded. Passes never fail: a reference that cannot be
// embedded is reported and its markup is kept byte for byte.
type Rewriter struct {
	fetcher   *resource.Fetcher
	css       *CSSRewriter
	imagesDir string
	report    Reporter
}

// RewriterOptions configures a Rewriter.
type RewriterOptions struct {
	Fetcher   *resource.Fetcher
	ImagesDir string // searched before the document directory for slide backgrounds
	Report    Reporter
}

// NewRewriter creates a Rewriter. A nil Fetcher gets the defaults.
func NewRewriter(opts RewriterOptions) *Rewriter {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = resource.NewFetcher(resource.Config{})
	}
	report := opts.Report.orDiscard()
	return &Rewriter{
		fetcher:   fetcher,
		css:       NewCSSRewriter(fetcher, report),
		imagesDir: opts.ImagesDir,
		report:    report,
	}
}

// Stylesheets replaces <link rel="stylesheet"> elements with <style> blocks.
// Remote CSS is inlined as fetched, with relative url() values made
// absolute. Local CSS has its own url() references embedded, resolved
// against the stylesheet's directory; those count toward the total.
func (r *Rewriter) Stylesheets(ctx context.Context, text, docDir string) (string, int) {
	nested := 0
	out, n := substitute(text, LinkMatcher{}.Find(text), func(ref Reference) (string, bool) {
		if ctx.Err() != nil {
			return "", false
		}
		var css string
		switch ref.Origin {
		case resource.RemoteURL:
			res, ok := r.fetchText(ctx, ref, &css)
			if !ok {
				return "", false
			}
			css = AbsolutizeCSS(css, res.Location)
		case resource.LocalFile:
			res, ok := r.fetchText(ctx, ref, &css, docDir)
			if !ok {
				return "", false
			}
			var urls int
			css, urls = r.css.Rewrite(ctx, css, filepath.Dir(res.Location))
			nested += urls
		default:
			return "", false
		}
		return "<style" + keepAttr(ref.Attrs, "media") + ">\n" + escapeStyleText(css) + "\n</style>", true
	})
	return out, n + nested
}

// Scripts replaces <script src> elements with inline scripts. Only remote
// sources are inlined; local scripts stay references so large local bundles
// are never pulled in by accident.
func (r *Rewriter) Scripts(ctx context.Context, text string) (string, int) {
	return substitute(text, ScriptMatcher{}.Find(text), func(ref Reference) (string, bool) {
		if ref.Origin != resource.RemoteURL || ctx.Err() != nil {
			return "", false
		}
		var js string
		if _, ok := r.fetchText(ctx, ref, &js); !ok {
			return "", false
		}
		return "<script" + keepAttr(ref.Attrs, "type") + ">\n" + escapeScriptText(js) + "\n</script>", true
	})
}

// Images embeds local images as data URIs in three sub-passes, in order:
// <img src>, url() inside background style attributes, and
// data-background-image attributes. Only the reference value is replaced.
//
// Slide backgrounds are looked up in the images directory before the
// document directory; inline style backgrounds use the document directory
// only. The asymmetry follows the reveal.js deck layout.
func (r *Rewriter) Images(ctx context.Context, text, docDir string) (string, int) {
	total := 0

	text, n := substitute(text, ImageMatcher{}.Find(text), r.embedLocal(ctx, docDir))
	total += n

	text, n = substitute(text, InlineBackgroundMatcher{}.Find(text), r.embedLocal(ctx, docDir))
	total += n

	dirs := []string{docDir}
	if r.imagesDir != "" {
		dirs = []string{filepath.Join(docDir, r.imagesDir), docDir}
	}
	text, n = substitute(text, DataBackgroundMatcher{}.Find(text), r.embedLocal(ctx, dirs...))
	total += n

	return text, total
}

// embedLocal returns a replacement func that turns a local reference into a
// data URI, keeping the quote the reference was written with.
func (r *Rewriter) embedLocal(ctx context.Context, dirs ...string) func(Reference) (string, bool) {
	return func(ref Reference) (string, bool) {
		if ref.Origin != resource.LocalFile || ctx.Err() != nil {
			return "", false
		}
		res := r.fetcher.Fetch(ctx, ref.Value, dirs...)
		if !res.Resolved() {
			r.report.warn(ref.Category, res.Warning)
			return "", false
		}
		return ref.Quote + resource.DataURI(res.Data, res.Location) + ref.Quote, true
	}
}

// fetchText fetches ref and decodes it as text into out. Failures are
// reported and leave out untouched.
func (r *Rewriter) fetchText(ctx context.Context, ref Reference, out *string, dirs ...string) (resource.Resource, bool) {
	res := r.fetcher.Fetch(ctx, ref.Value, dirs...)
	if !res.Resolved() {
		r.report.warn(ref.Category, res.Warning)
		return res, false
	}
	text, err := resource.Text(res)
	if err != nil {
		r.report.warn(ref.Category, &resource.Warning{
			Kind:     resource.WarnEncode,
			Ref:      ref.Value,
			Location: res.Location,
			Err:      err,
		})
		return res, false
	}
	*out = text
	return res, true
}

// substitute rebuilds text with each reference span replaced by the result
// of replace. References must be sorted by Start; overlapping ones and those
// replace declines are left as they are.
func substitute(text string, refs []Reference, replace func(Reference) (string, bool)) (string, int) {
	var b strings.Builder
	last, n := 0, 0
	for _, ref := range refs {
		if ref.Start < last {
			continue
		}
		repl, ok := replace(ref)
		if !ok {
			continue
		}
		if n == 0 {
			b.Grow(len(text))
		}
		b.WriteString(text[last:ref.Start])
		b.WriteString(repl)
		last = ref.End
		n++
	}
	if n == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), n
}

// keepAttr renders name="value" with a leading space when attrs has it.
func keepAttr(attrs map[string]string, name string) string {
	v, ok := attrs[name]
	if !ok {
		return ""
	}
	return " " + name + `="` + html.EscapeString(v) + `"`
}

var scriptCloseRe = regexp.MustCompile(`(?i)</(script)`)

// escapeStyleText keeps a literal "</" in CSS from closing the style block.
func escapeStyleText(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// escapeScriptText keeps a literal "</script" in JavaScript from closing the
// script block. Other "</" sequences are valid JavaScript and stay as is.
func escapeScriptText(js string) string {
	return scriptCloseRe.ReplaceAllString(js, `<\/$1`)
}
