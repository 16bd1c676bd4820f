package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ErrorStringVariants(t *testing.T) {
	cause := fmt.Errorf("boom")

	withBoth := &Error{Kind: MessageMismatch, Channel: "c", Message: "mismatch", Line: 3, Cause: cause}
	assert.Contains(t, withBoth.Error(), "line=3")
	assert.Contains(t, withBoth.Error(), "boom")

	lineOnly := &Error{Kind: MessageMismatch, Channel: "c", Message: "mismatch", Line: 3}
	assert.Contains(t, lineOnly.Error(), "line=3")
	assert.NotContains(t, lineOnly.Error(), "boom")

	causeOnly := &Error{Kind: IOErrorKind, Channel: "c", Message: "io", Cause: cause}
	assert.Contains(t, causeOnly.Error(), "boom")
	assert.NotContains(t, causeOnly.Error(), "line=")

	bare := &Error{Kind: CrossThreadAccess, Channel: "c", Message: "nope"}
	assert.NotContains(t, bare.Error(), "line=")
	assert.NotContains(t, bare.Error(), ": <nil>")
}

func TestError_Unwrap(t *testing.T) {
	cause := &Error{Kind: SearchExhausted, Channel: "c"}
	wrapper := &Error{Kind: MessageMismatch, Channel: "c", Cause: cause}
	assert.Same(t, cause, errors.Unwrap(wrapper))
}

func TestError_IsComparesKindOnly(t *testing.T) {
	a := &Error{Kind: MessageMismatch, Channel: "c", Line: 1}
	b := &Error{Kind: MessageMismatch, Channel: "other", Line: 99}
	assert.True(t, errors.Is(a, b))

	c := &Error{Kind: TruncatedTrace}
	assert.False(t, errors.Is(a, c))
}

func TestIsKindHelpers(t *testing.T) {
	assert.True(t, IsCrossThreadAccess(&Error{Kind: CrossThreadAccess}))
	assert.False(t, IsCrossThreadAccess(&Error{Kind: TruncatedTrace}))

	assert.True(t, IsTruncatedTrace(&Error{Kind: TruncatedTrace}))
	assert.True(t, IsInvalidBlockName(&Error{Kind: InvalidBlockName}))

	assert.False(t, IsKind(nil, TruncatedTrace))
	assert.False(t, IsKind(fmt.Errorf("plain"), TruncatedTrace))
}

func TestIsSearchExhausted_WalksCauseChain(t *testing.T) {
	exhausted := &Error{Kind: SearchExhausted}
	mismatch := &Error{Kind: MessageMismatch, Cause: exhausted}
	assert.True(t, IsSearchExhausted(mismatch))
	assert.False(t, IsSearchExhausted(&Error{Kind: MessageMismatch}))
}

func TestIoError(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := ioError("c", cause)
	assert.Equal(t, IOErrorKind, err.Kind)
	assert.Same(t, cause, err.Cause)
}
