// Package errdefs defines the typed error kinds surfaced by the server core.
// Per-record problems inside a batch are absorbed by the callers; only
// whole-batch and upstream failures are reported with one of these kinds.
package errdefs

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure well enough for logging and for choosing a
// user-facing fallback.
type Kind int

const (
	Unknown Kind = iota
	// Validation indicates required request fields were missing. Rejected
	// before any network call.
	Validation
	// UpstreamUnavailable indicates a feed or provider was unreachable, or
	// responded non-2xx with no usable body.
	UpstreamUnavailable
	// UpstreamRejected indicates the provider responded but signaled a
	// domain-level failure (non-OK directions status, rejected completion).
	UpstreamRejected
	// FeedFormat indicates a payload arrived but was not shaped as expected
	// (not an array, geometry missing wholesale).
	FeedFormat
	// PolylineDecode indicates malformed encoded route geometry.
	PolylineDecode
	// Timeout indicates a network call exceeded its bound.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case UpstreamRejected:
		return "upstream_rejected"
	case FeedFormat:
		return "feed_format"
	case PolylineDecode:
		return "polyline_decode"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error carries a kind plus the stage that failed, so the scheduler and the
// delivery layer can log and pick a fallback without string matching.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Stage, e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two errdefs errors by kind, so callers can use
// errors.Is(err, &Error{Kind: Timeout}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error with a kind, the stage that failed, and a message.
func New(kind Kind, stage, msg string) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg}
}

// Newf creates an error with a formatted message.
func Newf(kind Kind, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and stage to an underlying error. Context deadline
// errors are reclassified as Timeout regardless of the kind passed in.
func Wrap(kind Kind, stage string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = Timeout
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the kind from an error chain. Bare deadline errors map to
// Timeout; anything else unrecognized is Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Unknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
