package resource

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// DefaultMIMEType is used when the extension is unknown.
const DefaultMIMEType = "application/octet-stream"

// mimeTypes pins the types that matter for embedding so results do not
// depend on the host's mime tables.
var mimeTypes = map[string]string{
	".apng":  "image/apng",
	".avif":  "image/avif",
	".bmp":   "image/bmp",
	".css":   "text/css",
	".eot":   "application/vnd.ms-fontobject",
	".gif":   "image/gif",
	".ico":   "image/vnd.microsoft.icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript",
	".json":  "application/json",
	".mjs":   "text/javascript",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".otf":   "font/otf",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".ttf":   "font/ttf",
	".wav":   "audio/wav",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// MIMEType infers the media type of name from its extension.
func MIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(localPath(name)))
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	return DefaultMIMEType
}

// DataURI encodes data as "data:<mime>;base64,<payload>" using the type
// inferred from name.
func DataURI(data []byte, name string) string {
	return "data:" + MIMEType(name) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// utf8BOM is stripped from text resources before inlining.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cssCharsetRe matches a leading @charset rule.
var cssCharsetRe = regexp.MustCompile(`^@charset\s+["']([^"']+)["']\s*;`)

// Text decodes a fetched resource to UTF-8 text for verbatim inlining.
//
// The charset comes from the HTTP Content-Type when present, then from a
// leading CSS @charset rule. Without either the bytes must already be valid
// UTF-8. Errors wrap ErrNotText or ErrUnknownCharset and are meant to be
// reported as WarnEncode.
func Text(res Resource) (string, error) {
	data := bytes.TrimPrefix(res.Data, utf8BOM)

	label := contentTypeCharset(res.ContentType)
	if label == "" {
		if m := cssCharsetRe.FindSubmatch(data); m != nil {
			label = string(m[1])
		}
	}

	if label != "" {
		enc, name := charset.Lookup(label)
		if enc == nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownCharset, label)
		}
		if name != "utf-8" {
			decoded, err := enc.NewDecoder().Bytes(data)
			if err != nil {
				return "", fmt.Errorf("%w: decoding %s: %v", ErrNotText, name, err)
			}
			return string(decoded), nil
		}
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrNotText)
	}
	return string(data), nil
}

// contentTypeCharset extracts the charset parameter of a Content-Type header.
func contentTypeCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
