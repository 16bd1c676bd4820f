package engine

import (
	"fmt"
	"log/slog"
	"os"
)

// Mode selects whether a channel writes a new trace or validates
// caller actions against an existing one.
type Mode int

const (
	ModeRecord Mode = iota
	ModeVerify
)

func (m Mode) String() string {
	if m == ModeVerify {
		return "verify"
	}
	return "record"
}

// ThreadID identifies the caller-owning goroutine/thread for the
// cross-thread guard. Go has no portable, stable OS-thread identity
// accessible from user code the way the original C++ relies on
// std::thread::id, so ownership is modeled as a caller-supplied opaque
// comparable token instead of anything the runtime infers on its own
// (see DESIGN.md, Open Question "Thread identity").
type ThreadID any

// Channel is one named logical trace. Message, OpenBlock, CloseBlock
// and CurrentLine check pendingError first and return it immediately
// without further work once it has been set: a channel that has failed
// stays failed.
type Channel struct {
	Name string
	Mode Mode
	path string

	owner    ThreadID
	hasOwner bool

	writer *appendWriter
	wf     *os.File
	reader *lineReader
	rf     *os.File

	lineNo int

	pendingError error

	stack       []*Block
	journal     []action
	rolledBack  []*Block
	synthesized []*Block
	unmatched   *unmatchedIterations

	// lastSearchFailure holds the SearchExhausted diagnostic produced by
	// the most recent failed reorderSearch, consumed by exhaustedError.
	lastSearchFailure *Error

	logger *slog.Logger
}

// Open creates the channel backing path, selecting Record or Verify
// mode: if path exists and is non-empty, Verify mode with a reader;
// otherwise Record mode with a truncated writer.
func Open(path, name string, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Channel{
		Name:      name,
		path:      path,
		unmatched: newUnmatchedIterations(),
		logger:    logger.With("channel", name),
	}
	c.stack = []*Block{newRootBlock(name)}

	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		f, ferr := os.Open(path)
		if ferr != nil {
			return nil, ioError(name, ferr)
		}
		c.Mode = ModeVerify
		c.rf = f
		c.reader = newLineReader(f)
		return c, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, ioError(name, err)
	}

	f, ferr := os.Create(path)
	if ferr != nil {
		return nil, ioError(name, ferr)
	}
	c.Mode = ModeRecord
	c.wf = f
	c.writer = newAppendWriter(f)
	return c, nil
}

// BindOwner records the creating thread's identity. Called once by the
// registry immediately after Open.
func (c *Channel) BindOwner(id ThreadID) {
	c.owner = id
	c.hasOwner = true
}

// CheckOwner enforces the thread-ownership guard. When enforce is
// false the check is skipped entirely (the advisory opt-out).
func (c *Channel) CheckOwner(id ThreadID, enforce bool) error {
	if !enforce || !c.hasOwner {
		return nil
	}
	if c.owner == id {
		return nil
	}
	err := &Error{Kind: CrossThreadAccess, Channel: c.Name, Message: "channel accessed from a non-owning thread"}
	c.pendingError = err
	return err
}

// top returns the currently innermost open block; the stack is never
// empty after construction (its bottom element is the channel root).
func (c *Channel) top() *Block { return c.stack[len(c.stack)-1] }

func (c *Channel) push(b *Block) { c.stack = append(c.stack, b) }

func (c *Channel) pop() *Block {
	n := len(c.stack)
	b := c.stack[n-1]
	c.stack = c.stack[:n-1]
	return b
}

// PendingError returns the channel's pending error, if any, without
// triggering the "raise on next call" side effect. Exposed for test
// harnesses that need to observe a destructor-path failure without
// making another Message/Block/CurrentLine call.
func (c *Channel) PendingError() error { return c.pendingError }

// CurrentLine returns the channel's line counter.
func (c *Channel) CurrentLine() (int, error) {
	if c.pendingError != nil {
		return 0, c.pendingError
	}
	return c.lineNo, nil
}

// Close tears down the channel's file handles: writers are flushed
// (append-only files need no explicit flush beyond the OS's own
// buffering, but Sync makes durability observable in tests), readers
// are closed. Close does not clear pendingError; a channel that ended
// with an error stays reporting it until process exit.
func (c *Channel) Close() error {
	var err error
	if c.wf != nil {
		if serr := c.wf.Sync(); serr != nil && err == nil {
			err = ioError(c.Name, serr)
		}
		if cerr := c.wf.Close(); cerr != nil && err == nil {
			err = ioError(c.Name, cerr)
		}
	}
	if c.rf != nil {
		if cerr := c.rf.Close(); cerr != nil && err == nil {
			err = ioError(c.Name, cerr)
		}
	}
	return err
}

// Message verifies or records one leaf line, depending on Mode. It is
// a normal synchronous call: on failure it raises immediately rather
// than deferring to pendingError.
func (c *Channel) Message(text string) (int, error) {
	if c.pendingError != nil {
		return 0, c.pendingError
	}
	if c.Mode == ModeRecord {
		return c.recordMessage(text)
	}
	return c.verifyMessage(text)
}

// OpenBlock opens a new block named name under the currently open
// block, depending on Mode.
func (c *Channel) OpenBlock(name string) (*Block, error) {
	if c.pendingError != nil {
		return nil, c.pendingError
	}
	if c.Mode == ModeRecord {
		return c.recordOpenBlock(name)
	}
	return c.verifyOpenBlock(name)
}

// CloseBlock closes b, the scoped block handle's underlying block.
// This always happens at scope-exit time (the moral equivalent of a
// destructor) so it never returns an error to the
// caller. Any failure — wrong mode invariant, I/O, an unmatched close
// frame after exhaustive reorder search — is captured as a pending
// error and surfaced at the channel's next Message/Block/CurrentLine
// call instead.
func (c *Channel) CloseBlock(b *Block) {
	if c.pendingError != nil {
		return
	}
	if c.Mode == ModeRecord {
		if err := c.recordCloseBlock(b); err != nil {
			c.setPendingFromDestruction(err)
		}
		return
	}
	c.verifyCloseBlock(b)
}

// setPendingFromDestruction records an error raised outside a normal
// call path (block-close driven by scope exit) without propagating it;
// it is surfaced at the next Message/Block/CurrentLine call instead.
// It also logs the failure immediately,
// since a destructor that only sets a field the caller may never look
// at again would otherwise lose the diagnostic silently.
func (c *Channel) setPendingFromDestruction(err error) {
	c.pendingError = err
	c.logger.Error("dilog: block close failed", "error", err)
	fmt.Fprintln(os.Stderr, "dilog: block close failed:", err)
}
