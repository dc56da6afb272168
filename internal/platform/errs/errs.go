package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes application errors for HTTP status mapping.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// EmptyInput indicates no page URL was supplied (HTTP 400).
	EmptyInput
	// InvalidInput indicates the page URL is malformed or not http(s) (HTTP 400).
	InvalidInput
	// Unreachable indicates the target page could not be retrieved (HTTP 502).
	Unreachable
	// Timeout indicates the target page took too long to respond (HTTP 504).
	Timeout
	// ParsingFailed indicates the page body could not be read or decoded (HTTP 500).
	ParsingFailed
)

// String returns the snake_case name used in JSON error responses.
func (k Kind) String() string {
	switch k {
	case EmptyInput:
		return "empty_input"
	case InvalidInput:
		return "invalid_input"
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case ParsingFailed:
		return "parsing_failed"
	default:
		return "unknown"
	}
}

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the target page
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// KindOf returns the Kind of the first AppError in err's chain, or Unknown.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}

// IsFetchError reports whether err means the target page itself could not be
// retrieved, so no image list exists for it.
func IsFetchError(err error) bool {
	switch KindOf(err) {
	case InvalidInput, Unreachable, Timeout, ParsingFailed:
		return true
	}
	return false
}
