package engine

import "strings"

// validateBlockName rejects names that would collide with the prefix
// delimiter. Caught here, at open time, rather than left to surface
// later as a confusing UnexpectedFrame once the bad name has already
// been written into a prefix.
func validateBlockName(channel, name string) error {
	if strings.Contains(name, "/") {
		return &Error{Kind: InvalidBlockName, Channel: channel, Message: "block name " + quoteName(name) + " must not contain \"/\""}
	}
	return nil
}

func quoteName(name string) string { return "\"" + name + "\"" }

// blockKind tags the two ways a Block can come into existence: blocks
// opened directly by a caller are User; blocks pushed by the
// reorder-search engine while replaying the journal against a
// candidate iteration are Synthesized and are owned by the search
// engine's auxiliary stacks, not the caller, until they are either
// rediscovered as real user blocks or torn down when their LeaveBlock
// action replays.
type blockKind int

const (
	blockUser blockKind = iota
	blockSynthesized
)

// Block is one lexical loop-body instance. Blocks are
// engine-owned mutable state referenced by pointer from up to three
// places at once (the channel's open-block stack, and, transiently
// during search, the rolled-back-user-blocks or search-synthesized-blocks
// auxiliary stacks) so identity is pointer identity, not value equality.
type Block struct {
	Channel string
	Name    string // unqualified, e.g. "myloop"
	Prefix  string // parentPrefix + "/" + Name

	Base      int64 // file offset where this iteration begins (Verify only)
	BeginLine int   // line number at Base

	ReplayStart int // index into the channel's journal where this iteration's own content begins

	kind blockKind
}

func newRootBlock(channel string) *Block {
	return &Block{Channel: channel, Name: channel, Prefix: channel, kind: blockUser}
}

func childPrefix(parentPrefix, name string) string {
	return parentPrefix + "/" + name
}

func (b *Block) isSynthesized() bool { return b.kind == blockSynthesized }

// nameFromPrefix returns the unqualified block name, the segment after
// the last "/" in a fully-qualified prefix.
func nameFromPrefix(prefix string) string {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] == '/' {
			return prefix[i+1:]
		}
	}
	return prefix
}
