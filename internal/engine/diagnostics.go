package engine

import (
	"fmt"
	"sort"
	"strings"
)

// diagnosticSeparator brackets a rendered diagnostic tree so it stands
// out visually inside whatever log stream a caller pipes stderr into.
const diagnosticSeparator = "-------dilog------dilog------dilog-------"

// renderDiagnosticTree builds the human-readable dump attached to a
// SearchExhausted error: the currently open block stack, the journal
// replayed against it, and every remaining unmatched iteration per
// prefix, so a reader can see exactly what reorder search tried before
// giving up.
func (c *Channel) renderDiagnosticTree() string {
	var b strings.Builder

	fmt.Fprintln(&b, diagnosticSeparator)
	fmt.Fprintf(&b, "channel %q mode=%s line=%d\n", c.Name, c.Mode, c.lineNo)

	fmt.Fprintln(&b, "open blocks (outermost first):")
	for depth, blk := range c.stack {
		fmt.Fprintf(&b, "%s%s (kind=%s base=%d beginLine=%d replayStart=%d)\n",
			strings.Repeat("  ", depth), blk.Prefix, blockKindLabel(blk.kind), blk.Base, blk.BeginLine, blk.ReplayStart)
	}

	fmt.Fprintln(&b, "journal:")
	depth := 0
	for i, act := range c.journal {
		switch act.kind {
		case actionEnterBlock:
			fmt.Fprintf(&b, "%s[%d] enter %s\n", strings.Repeat("  ", depth), i, act.prefix)
			depth++
		case actionLeaveBlock:
			depth--
			if depth < 0 {
				depth = 0
			}
			fmt.Fprintf(&b, "%s[%d] leave %s\n", strings.Repeat("  ", depth), i, act.prefix)
		case actionMessage:
			fmt.Fprintf(&b, "%s[%d] message %q\n", strings.Repeat("  ", depth), i, act.text)
		}
	}

	fmt.Fprintln(&b, "unmatched iterations by prefix:")
	prefixes := make([]string, 0, len(c.unmatched.byPrefix))
	for p := range c.unmatched.byPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		set := c.unmatched.byPrefix[p]
		lines := make([]string, 0, len(set.entries))
		for _, e := range set.entries {
			lines = append(lines, fmt.Sprintf("%d", e.line))
		}
		fmt.Fprintf(&b, "  %s: [%s]\n", p, strings.Join(lines, ", "))
	}

	if len(c.rolledBack) != 0 {
		names := make([]string, len(c.rolledBack))
		for i, blk := range c.rolledBack {
			names[i] = blk.Prefix
		}
		fmt.Fprintf(&b, "rolled-back user blocks: [%s]\n", strings.Join(names, ", "))
	}
	if len(c.synthesized) != 0 {
		names := make([]string, len(c.synthesized))
		for i, blk := range c.synthesized {
			names[i] = blk.Prefix
		}
		fmt.Fprintf(&b, "synthesized blocks: [%s]\n", strings.Join(names, ", "))
	}

	fmt.Fprintln(&b, diagnosticSeparator)
	return b.String()
}

func blockKindLabel(k blockKind) string {
	if k == blockSynthesized {
		return "synthesized"
	}
	return "user"
}
