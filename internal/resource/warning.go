package resource

import (
	"errors"
	"fmt"
)

// Sentinel errors carried by warnings.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrHTTPStatus     = errors.New("unexpected HTTP status")
	ErrTooLarge       = errors.New("resource exceeds size limit")
	ErrNotText        = errors.New("resource is not valid text")
	ErrUnknownCharset = errors.New("unknown charset")
)

// WarningKind distinguishes fetch failures from encoding failures.
type WarningKind string

// Warning kinds.
const (
	WarnFetch  WarningKind = "fetch"
	WarnEncode WarningKind = "encode"
)

// Warning reports one reference that could not be embedded. The markup that
// produced it is always left unchanged.
type Warning struct {
	Kind     WarningKind
	Category string // reference category, set by the caller that located it
	Ref      string // reference exactly as written in the document
	Location string // resolved path(s) or URL
	Err      error
}

// String formats the warning for humans.
func (w Warning) String() string {
	what := "could not fetch"
	if w.Kind == WarnEncode {
		what = "could not encode"
	}
	if w.Category != "" {
		return fmt.Sprintf("%s %s %s: %v", what, w.Category, w.Ref, w.Err)
	}
	return fmt.Sprintf("%s %s: %v", what, w.Ref, w.Err)
}

// Unwrap exposes the underlying cause to errors.Is.
func (w Warning) Unwrap() error { return w.Err }

// Error lets a Warning travel as an error where convenient.
func (w Warning) Error() string { return w.String() }
