package docpack

import "errors"

// Sentinel errors for library operations. Resource-level problems are never
// errors; they are reported as warnings on the Result.
var (
	ErrEmptyPath     = errors.New("document path cannot be empty")
	ErrDocumentRead  = errors.New("failed to read document")
	ErrDocumentWrite = errors.New("failed to write document")
)
