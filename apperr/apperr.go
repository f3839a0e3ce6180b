// Package apperr classifies pipeline failures into explicit kinds so
// callers never have to inspect error message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies which stage of the pipeline an error belongs to.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no classification.
	KindUnknown Kind = iota
	// KindFetch covers transport failures and non-success HTTP statuses.
	KindFetch
	// KindParse covers malformed or structurally unexpected feed documents.
	KindParse
	// KindNormalize covers single items that cannot become a canonical article.
	KindNormalize
	// KindInternal covers storage façade failures.
	KindInternal
)

// String returns a stable label for the kind.
func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindParse:
		return "parse"
	case KindNormalize:
		return "normalize"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error wrapping its cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns a classified error without a cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns a classified error around cause. A nil cause yields nil.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf reports the classification of err, or KindUnknown if it was
// never classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
