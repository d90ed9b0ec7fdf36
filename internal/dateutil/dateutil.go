// Package dateutil expands "auto" date placeholders in document attributes,
// so a value such as revdate: auto:long becomes the build date.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength limits format string length.
const MaxDateFormatLength = 50

// DefaultDateFormat is used when "auto" is specified without a format.
const DefaultDateFormat = "YYYY-MM-DD"

// autoPrefix introduces a custom format: "auto:DD/MM/YYYY".
const autoPrefix = "auto:"

// dateTokens maps user-friendly tokens to Go layout components, longest
// first so YYYY wins over YY.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// DatePresets provides named shortcuts for common date formats.
var DatePresets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
}

// ParseDateFormat converts a user-friendly format string to a Go layout.
// Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D. Text in brackets is copied
// literally ("[Rev.] YYYY"); other characters are kept as they are.
func ParseDateFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxDateFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var b strings.Builder
	b.Grow(len(format) + 8)

	for rest := format; rest != ""; {
		if rest[0] == '[' {
			literal, after, ok := strings.Cut(rest[1:], "]")
			if !ok {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, len(format)-len(rest))
			}
			b.WriteString(literal)
			rest = after
			continue
		}
		if goFmt, n := matchToken(rest); n > 0 {
			b.WriteString(goFmt)
			rest = rest[n:]
			continue
		}
		b.WriteByte(rest[0])
		rest = rest[1:]
	}

	return b.String(), nil
}

func matchToken(s string) (string, int) {
	for _, t := range dateTokens {
		if strings.HasPrefix(s, t.token) {
			return t.goFmt, len(t.token)
		}
	}
	return "", 0
}

// IsAuto reports whether value is a date placeholder: "auto" or
// "auto:FORMAT", case-insensitive. Values such as "autoplay" are not.
func IsAuto(value string) bool {
	lower := strings.ToLower(value)
	return lower == "auto" || strings.HasPrefix(lower, autoPrefix)
}

// ResolveDate expands a date placeholder against t:
//   - "auto" gives t in YYYY-MM-DD
//   - "auto:FORMAT" gives t in a custom format (e.g., "auto:DD/MM/YYYY")
//   - "auto:preset" uses a named preset (iso, european, us, long)
//
// Any other value is returned unchanged. The time is a parameter so tests
// can pin it.
func ResolveDate(value string, t time.Time) (string, error) {
	if !IsAuto(value) {
		return value, nil
	}

	format := DefaultDateFormat
	if len(value) > len("auto") {
		format = value[len(autoPrefix):] // tokens are case-sensitive
		if format == "" {
			return "", fmt.Errorf("%w: format cannot be empty after %q", ErrInvalidDateFormat, autoPrefix)
		}
		if preset, ok := DatePresets[strings.ToLower(format)]; ok {
			format = preset
		}
	}

	goFmt, err := ParseDateFormat(format)
	if err != nil {
		return "", err
	}
	return t.Format(goFmt), nil
}
