package engine

import "strings"

// Frame syntax:
//
//	Message    [<prefix>]<payload>
//	Open block [<prefix>[
//	Close block ]<prefix>]
//
// Lines are stored and compared without their trailing "\n"; the
// writer side appends exactly one "\n" per line and the reader side
// strips it (see ioframe.go).

func messageLine(prefix, payload string) string {
	return "[" + prefix + "]" + payload
}

func openLine(prefix string) string {
	return "[" + prefix + "["
}

func closeLine(prefix string) string {
	return "]" + prefix + "]"
}

// isRelevant is the relevant-line predicate: a line is relevant to
// prefix iff the character at index 1 begins prefix, i.e. prefix
// appears starting at offset 1 in the line. This holds for both "["
// and "]" sigils since both frame kinds place the prefix immediately
// after one leading sigil character.
//
// This is correct only when sibling block names at the same nesting
// level never share a common prefix with one another (e.g. "a" and
// "ab"); dilog rejects "/" in block names at open time but does not
// otherwise guard against that case, which remains undefined behavior.
func isRelevant(line, prefix string) bool {
	if len(line) < 1 {
		return false
	}
	return strings.HasPrefix(line[1:], prefix)
}
