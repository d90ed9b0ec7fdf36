package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-docpack/internal/resource"
)

// Category is the syntactic context a reference appears in.
type Category string

// Reference categories.
const (
	CategoryStylesheet       Category = "stylesheet"
	CategoryScript           Category = "script"
	CategoryImage            Category = "image"
	CategoryCSSURL           Category = "css-url"
	CategoryInlineBackground Category = "inline-background"
	CategoryDataBackground   Category = "data-background-image"
)

// Reference is one located resource reference.
//
// Start and End delimit the substitution span: the whole element for
// stylesheets and scripts, the attribute value for images and backgrounds,
// and the url() argument (quotes included) for CSS.
type Reference struct {
	Category Category
	Value    string // decoded reference, e.g. "images/logo.png"
	Origin   resource.Origin
	Start    int
	End      int
	Quote    string            // quote around a url() argument, "" when bare
	Attrs    map[string]string // tag attributes, stylesheets and scripts only
}

// Matcher locates references of one category. Implementations are
// pattern-based today; a real tokenizer can replace any of them without
// touching the embedding logic in passes.go.
type Matcher interface {
	Category() Category
	Find(text string) []Reference
}

var (
	linkTagRe     = regexp.MustCompile(`(?is)<link\b[^>]*>`)
	scriptElemRe  = regexp.MustCompile(`(?is)(<script\b[^>]*>).*?</script\s*>`)
	imgTagRe      = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	startTagRe    = regexp.MustCompile(`(?is)<[a-z][^<>]*>`)
	tagNameRe     = regexp.MustCompile(`^<[a-zA-Z][^\s/>]*`)
	attrRe        = regexp.MustCompile(`^[\s/]*([^\s"'<>/=]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]*)))?`)
	cssURLRe      = regexp.MustCompile(`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|([^"'()\s]*))\s*\)`)
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
	rawTextElemRe = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>`)
)

// LinkMatcher finds <link> elements whose rel includes "stylesheet",
// regardless of attribute order.
type LinkMatcher struct{}

// Category implements Matcher.
func (LinkMatcher) Category() Category { return CategoryStylesheet }

// Find implements Matcher.
func (LinkMatcher) Find(text string) []Reference {
	opaque := opaqueSpans(text)
	var refs []Reference
	for _, loc := range linkTagRe.FindAllStringIndex(text, -1) {
		if opaque.contains(loc[0]) {
			continue
		}
		_, attrs := parseTag(text[loc[0]:loc[1]])
		href := strings.TrimSpace(attrs["href"])
		if href == "" || !isStylesheetRel(attrs["rel"]) {
			continue
		}
		refs = append(refs, Reference{
			Category: CategoryStylesheet,
			Value:    href,
			Origin:   resource.Classify(href),
			Start:    loc[0],
			End:      loc[1],
			Attrs:    attrs,
		})
	}
	return refs
}

// isStylesheetRel accepts rel="stylesheet" but not alternate stylesheets,
// which must stay disabled.
func isStylesheetRel(rel string) bool {
	var stylesheet, alternate bool
	for _, tok := range strings.Fields(rel) {
		switch strings.ToLower(tok) {
		case "stylesheet":
			stylesheet = true
		case "alternate":
			alternate = true
		}
	}
	return stylesheet && !alternate
}

// ScriptMatcher finds <script src="..."></script> elements.
type ScriptMatcher struct{}

// Category implements Matcher.
func (ScriptMatcher) Category() Category { return CategoryScript }

// Find implements Matcher.
func (ScriptMatcher) Find(text string) []Reference {
	opaque := opaqueSpans(text)
	var refs []Reference
	for _, m := range scriptElemRe.FindAllStringSubmatchIndex(text, -1) {
		if opaque.contains(m[0]) {
			continue
		}
		_, attrs := parseTag(text[m[2]:m[3]])
		src, ok := attrs["src"]
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			continue
		}
		refs = append(refs, Reference{
			Category: CategoryScript,
			Value:    src,
			Origin:   resource.Classify(src),
			Start:    m[0],
			End:      m[1],
			Attrs:    attrs,
		})
	}
	return refs
}

// ImageMatcher finds the src value of <img> tags.
type ImageMatcher struct{}

// Category implements Matcher.
func (ImageMatcher) Category() Category { return CategoryImage }

// Find implements Matcher.
func (ImageMatcher) Find(text string) []Reference {
	opaque := opaqueSpans(text)
	var refs []Reference
	for _, loc := range imgTagRe.FindAllStringIndex(text, -1) {
		if opaque.contains(loc[0]) {
			continue
		}
		tag := text[loc[0]:loc[1]]
		a, ok := findAttr(tag, "src")
		if !ok {
			continue
		}
		value := strings.TrimSpace(html.UnescapeString(tag[a.start:a.end]))
		if value == "" {
			continue
		}
		refs = append(refs, Reference{
			Category: CategoryImage,
			Value:    value,
			Origin:   resource.Classify(value),
			Start:    loc[0] + a.start,
			End:      loc[0] + a.end,
		})
	}
	return refs
}

// InlineBackgroundMatcher finds url() references inside style attributes
// that declare a background.
type InlineBackgroundMatcher struct{}

// Category implements Matcher.
func (InlineBackgroundMatcher) Category() Category { return CategoryInlineBackground }

// Find implements Matcher.
func (InlineBackgroundMatcher) Find(text string) []Reference {
	opaque := opaqueSpans(text)
	var refs []Reference
	for _, loc := range startTagRe.FindAllStringIndex(text, -1) {
		if opaque.contains(loc[0]) {
			continue
		}
		a, ok := findAttr(text[loc[0]:loc[1]], "style")
		if !ok {
			continue
		}
		start, end := loc[0]+a.start, loc[0]+a.end
		style := text[start:end]
		if !strings.Contains(strings.ToLower(style), "background") {
			continue
		}
		for _, ref := range findCSSURLs(style, true) {
			ref.Category = CategoryInlineBackground
			ref.Start += start
			ref.End += start
			refs = append(refs, ref)
		}
	}
	return refs
}

// DataBackgroundMatcher finds data-background-image attribute values, the
// slide background convention of reveal.js.
type DataBackgroundMatcher struct{}

// Category implements Matcher.
func (DataBackgroundMatcher) Category() Category { return CategoryDataBackground }

// Find implements Matcher.
func (DataBackgroundMatcher) Find(text string) []Reference {
	opaque := opaqueSpans(text)
	var refs []Reference
	for _, loc := range startTagRe.FindAllStringIndex(text, -1) {
		if opaque.contains(loc[0]) {
			continue
		}
		a, ok := findAttr(text[loc[0]:loc[1]], "data-background-image")
		if !ok {
			continue
		}
		start, end := loc[0]+a.start, loc[0]+a.end
		value := strings.TrimSpace(html.UnescapeString(text[start:end]))
		if value == "" {
			continue
		}
		refs = append(refs, Reference{
			Category: CategoryDataBackground,
			Value:    value,
			Origin:   resource.Classify(value),
			Start:    start,
			End:      end,
		})
	}
	return refs
}

// CSSURLMatcher finds url() references in stylesheet text.
type CSSURLMatcher struct{}

// Category implements Matcher.
func (CSSURLMatcher) Category() Category { return CategoryCSSURL }

// Find implements Matcher.
func (CSSURLMatcher) Find(text string) []Reference {
	return findCSSURLs(text, false)
}

// findCSSURLs locates url() arguments. Inside HTML attributes the argument
// is entity-decoded before classification.
func findCSSURLs(css string, inAttr bool) []Reference {
	var refs []Reference
	for _, m := range cssURLRe.FindAllStringSubmatchIndex(css, -1) {
		start, end := valueSpan(m)
		value := css[start:end]
		quote := ""
		switch {
		case m[2] >= 0:
			quote = `"`
		case m[4] >= 0:
			quote = "'"
		}
		if inAttr {
			value = html.UnescapeString(value)
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if value == "" {
			continue
		}
		refs = append(refs, Reference{
			Category: CategoryCSSURL,
			Value:    value,
			Origin:   resource.Classify(value),
			Start:    start - len(quote),
			End:      end + len(quote),
			Quote:    quote,
		})
	}
	return refs
}

// valueSpan returns the span of whichever value group matched in a
// submatch index slice of the form [all, g1, g2, g3...].
func valueSpan(m []int) (int, int) {
	for i := 2; i+1 < len(m); i += 2 {
		if m[i] >= 0 {
			return m[i], m[i+1]
		}
	}
	return m[1], m[1]
}

// parseTag tokenizes a single start tag and returns its lowercased name and
// entity-decoded attributes. The first occurrence of a duplicate wins, as in
// browsers.
func parseTag(tag string) (string, map[string]string) {
	z := html.NewTokenizer(strings.NewReader(tag))
	tt := z.Next()
	if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
		return "", map[string]string{}
	}
	name, more := z.TagName()
	attrs := make(map[string]string)
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		k := string(key)
		if _, dup := attrs[k]; !dup {
			attrs[k] = string(val)
		}
	}
	return string(name), attrs
}

// attr is one attribute of a start tag. start and end delimit the raw
// value inside the tag; they are equal for a boolean attribute.
type attr struct {
	name       string
	start, end int
}

// tagAttrs walks the attributes of a start tag in order, so text such as
// alt="see src=x" is never mistaken for an attribute. Walking stops at the
// first token that does not parse, which leaves the rest unmatched.
func tagAttrs(tag string) []attr {
	loc := tagNameRe.FindStringIndex(tag)
	if loc == nil {
		return nil
	}
	var out []attr
	for pos := loc[1]; pos < len(tag); {
		m := attrRe.FindStringSubmatchIndex(tag[pos:])
		if m == nil {
			break
		}
		a := attr{
			name:  strings.ToLower(tag[pos+m[2] : pos+m[3]]),
			start: pos + m[1],
			end:   pos + m[1],
		}
		for i := 4; i+1 < len(m); i += 2 {
			if m[i] >= 0 {
				a.start, a.end = pos+m[i], pos+m[i+1]
				break
			}
		}
		out = append(out, a)
		pos += m[1]
	}
	return out
}

// findAttr returns the first attribute called name, as browsers do.
func findAttr(tag, name string) (attr, bool) {
	for _, a := range tagAttrs(tag) {
		if a.name == name {
			return a, true
		}
	}
	return attr{}, false
}

// spans is a sorted list of half-open [start, end) byte ranges.
type spans [][2]int

func (s spans) contains(pos int) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i][1] > pos })
	return i < len(s) && s[i][0] <= pos
}

// commentSpans returns the ranges covered by HTML comments.
func commentSpans(text string) spans {
	var out spans
	for _, loc := range commentRe.FindAllStringIndex(text, -1) {
		out = append(out, [2]int{loc[0], loc[1]})
	}
	return out
}

// opaqueSpans returns the ranges no tag matcher may look into: comments and
// the bodies of script and style elements. Markup-looking text there is
// JavaScript or CSS, not HTML.
func opaqueSpans(text string) spans {
	out := commentSpans(text)
	lower := strings.ToLower(text)
	for _, m := range rawTextElemRe.FindAllStringSubmatchIndex(text, -1) {
		bodyStart := m[1]
		if inSpans(out, m[0]) {
			continue
		}
		closing := "</" + lower[m[2]:m[3]]
		end := strings.Index(lower[bodyStart:], closing)
		bodyEnd := len(text)
		if end >= 0 {
			bodyEnd = bodyStart + end
		}
		out = append(out, [2]int{bodyStart, bodyEnd})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return mergeSpans(out)
}

func inSpans(s spans, pos int) bool {
	for _, sp := range s {
		if sp[0] <= pos && pos < sp[1] {
			return true
		}
	}
	return false
}

// mergeSpans collapses overlapping ranges so binary search stays valid.
func mergeSpans(s spans) spans {
	if len(s) < 2 {
		return s
	}
	out := spans{s[0]}
	for _, sp := range s[1:] {
		last := &out[len(out)-1]
		if sp[0] <= last[1] {
			if sp[1] > last[1] {
				last[1] = sp[1]
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}
