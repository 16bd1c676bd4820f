// Package engine implements the block-tree recorder/verifier and the
// reordering search engine: a channel tracks a stack of open blocks
// and, in verify mode, a journal of accepted actions used to replay
// candidate loop iterations when the trace diverges from what the
// caller expects.
package engine

import (
	"errors"
	"fmt"
)

// Kind categorizes the ways a channel operation can fail.
type Kind string

const (
	// CrossThreadAccess indicates a channel was touched from a thread
	// other than the one that created it, with enforcement requested.
	CrossThreadAccess Kind = "CROSS_THREAD_ACCESS"

	// MessageMismatch indicates a verified message failed to match the
	// recorded trace after exhaustive reorder search.
	MessageMismatch Kind = "MESSAGE_MISMATCH"

	// UnexpectedFrame indicates a block-open or block-close scan read a
	// relevant line that is neither the expected frame nor a skippable
	// sibling.
	UnexpectedFrame Kind = "UNEXPECTED_FRAME"

	// EndOfBlockViolation indicates a block close could not find its
	// closing frame, even after reorder search. Raised as a pending
	// error because it originates from handle destruction.
	EndOfBlockViolation Kind = "END_OF_BLOCK_VIOLATION"

	// TruncatedTrace indicates EOF was reached while more content was
	// expected.
	TruncatedTrace Kind = "TRUNCATED_TRACE"

	// SearchExhausted indicates reorder-search walked every remaining
	// iteration of every enclosing block without finding a match. It is
	// always attached as the Cause of a MessageMismatch or
	// EndOfBlockViolation, never returned bare.
	SearchExhausted Kind = "SEARCH_EXHAUSTED"

	// IOErrorKind wraps a failure of the underlying file read/write.
	IOErrorKind Kind = "IO_ERROR"

	// InvalidBlockName indicates a block was opened with a name
	// containing "/", which would otherwise collide with the prefix
	// delimiter and make the relevance predicate ambiguous. Rejected at
	// open time rather than surfacing later as a confusing
	// UnexpectedFrame.
	InvalidBlockName Kind = "INVALID_BLOCK_NAME"
)

// Error is the single error type raised by this package. Every error
// kind above shares this shape so callers can switch on Kind or use
// the Is* helpers below instead of comparing every field.
type Error struct {
	Kind       Kind
	Channel    string
	Message    string
	Line       int
	Offset     int64
	Diagnostic string // populated only when Kind == SearchExhausted
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.Line > 0 && e.Cause != nil:
		return fmt.Sprintf("dilog: %s: %s (channel=%s line=%d): %v", e.Kind, e.Message, e.Channel, e.Line, e.Cause)
	case e.Line > 0:
		return fmt.Sprintf("dilog: %s: %s (channel=%s line=%d)", e.Kind, e.Message, e.Channel, e.Line)
	case e.Cause != nil:
		return fmt.Sprintf("dilog: %s: %s (channel=%s): %v", e.Kind, e.Message, e.Channel, e.Cause)
	default:
		return fmt.Sprintf("dilog: %s: %s (channel=%s)", e.Kind, e.Message, e.Channel)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &Error{Kind: MessageMismatch}) works without the
// caller needing to compare every field.
func (e *Error) Is(target error) bool {
	var o *Error
	if !errors.As(target, &o) {
		return false
	}
	return e.Kind == o.Kind
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == k
	}
	return false
}

// IsCrossThreadAccess reports whether err is a CrossThreadAccess failure.
func IsCrossThreadAccess(err error) bool { return IsKind(err, CrossThreadAccess) }

// IsSearchExhausted reports whether err carries a SearchExhausted cause,
// directly or wrapped under a MessageMismatch/EndOfBlockViolation.
func IsSearchExhausted(err error) bool {
	for err != nil {
		if IsKind(err, SearchExhausted) {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsTruncatedTrace reports whether err is a TruncatedTrace failure.
func IsTruncatedTrace(err error) bool { return IsKind(err, TruncatedTrace) }

// IsInvalidBlockName reports whether err is an InvalidBlockName failure.
func IsInvalidBlockName(err error) bool { return IsKind(err, InvalidBlockName) }

func ioError(channel string, cause error) *Error {
	return &Error{Kind: IOErrorKind, Channel: channel, Message: "underlying file operation failed", Cause: cause}
}
