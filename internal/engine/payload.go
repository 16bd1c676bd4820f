package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxPayloadBytes is the longest message payload dilog will write;
// longer messages are truncated.
const MaxPayloadBytes = 999

// normalizePayload prepares a caller-supplied message for writing or
// comparison: it strips at most one trailing newline (any other newline
// in the text is kept, so such a payload spans more than one physical
// line), NFC-normalizes the
// text so byte-for-byte trace comparison is stable across callers that
// produce the same logical text in different Unicode normalization
// forms, and truncates to MaxPayloadBytes.
func normalizePayload(text string) string {
	text = strings.TrimSuffix(text, "\n")
	text = norm.NFC.String(text)
	if len(text) > MaxPayloadBytes {
		text = truncateToValidUTF8(text, MaxPayloadBytes)
	}
	return text
}

// truncateToValidUTF8 cuts s to at most n bytes without splitting a
// multi-byte rune in half.
func truncateToValidUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isUTF8Boundary(s[cut]) {
		cut--
	}
	return s[:cut]
}

// isUTF8Boundary reports whether b is not a UTF-8 continuation byte
// (10xxxxxx), i.e. it is safe to cut immediately before it.
func isUTF8Boundary(b byte) bool {
	return b&0xC0 != 0x80
}
