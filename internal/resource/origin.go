// Package resource resolves resource references found in HTML and CSS to raw
// bytes and encodes them for inline embedding.
//
// A reference is classified by origin first (see Classify). Local files are
// read relative to one or more base directories, remote URLs are fetched over
// HTTP with a bounded timeout, and data URIs are passed through untouched.
// Failures never surface as errors: they come back as a Resource carrying a
// Warning so callers can keep the original markup.
package resource

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// Origin classifies where a reference points.
type Origin int

// Reference origins.
const (
	Unresolvable Origin = iota
	LocalFile
	RemoteURL
	AlreadyInline
)

// String returns the kebab-case name of the origin.
func (o Origin) String() string {
	switch o {
	case LocalFile:
		return "local-file"
	case RemoteURL:
		return "remote-url"
	case AlreadyInline:
		return "already-inline"
	default:
		return "unresolvable"
	}
}

// schemeRe matches a URI scheme prefix such as "mailto:" or "javascript:".
var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Classify reports the origin of ref.
//
//   - "data:..."                  -> AlreadyInline
//   - "http://..." "https://..."  -> RemoteURL
//   - "file://..." or a plain path -> LocalFile
//   - empty, "#fragment", "//host/...", other schemes -> Unresolvable
func Classify(ref string) Origin {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return Unresolvable
	case hasPrefixFold(ref, "data:"):
		return AlreadyInline
	case IsRemote(ref):
		return RemoteURL
	case strings.HasPrefix(ref, "#"), strings.HasPrefix(ref, "//"):
		return Unresolvable
	case hasPrefixFold(ref, "file://"):
		return LocalFile
	}

	// A one-letter scheme is a Windows drive ("C:\img.png"), not a URI.
	if m := schemeRe.FindString(ref); len(m) > 2 {
		return Unresolvable
	}
	return LocalFile
}

// IsRemote reports whether ref uses the http or https scheme.
func IsRemote(ref string) bool {
	return hasPrefixFold(ref, "http://") || hasPrefixFold(ref, "https://")
}

// Candidates returns the filesystem paths ref may refer to, one per base
// directory and in the same order. Query strings and fragments are dropped,
// file:// URLs are converted to paths and absolute paths ignore the bases.
// A percent-decoded variant is appended when it differs from the raw path.
func Candidates(ref string, dirs ...string) []string {
	p := localPath(ref)
	if p == "" {
		return nil
	}

	variants := []string{p}
	if decoded, err := url.PathUnescape(p); err == nil && decoded != p {
		variants = append(variants, decoded)
	}

	var out []string
	for _, v := range variants {
		native := filepath.FromSlash(v)
		if filepath.IsAbs(native) {
			out = append(out, filepath.Clean(native))
			continue
		}
		for _, dir := range dirs {
			out = append(out, filepath.Join(dir, native))
		}
	}
	return out
}

// localPath strips the parts of a local reference that never name a file.
func localPath(ref string) string {
	ref = strings.TrimSpace(ref)
	if hasPrefixFold(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return ""
		}
		p := u.Path
		// file:///C:/docs/a.png parses with a leading slash before the drive.
		if len(p) > 2 && p[0] == '/' && p[2] == ':' {
			p = p[1:]
		}
		return p
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return ref
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
