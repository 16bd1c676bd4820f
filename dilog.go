package dilog

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rtjones/dilog/internal/engine"
	"github.com/rtjones/dilog/internal/registry"
)

var (
	defaultMu  sync.Mutex
	defaultReg *registry.Registry
)

// Init configures the process-wide channel registry's trace directory
// and logger. Calling it is optional: without it, channels are stored
// in the current working directory using slog's default logger. Init
// must be called, if at all, before the first Message/Block/
// CurrentLine call — it has no effect on channels already opened.
func Init(dir string, logger *slog.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultReg = registry.New(dir, logger)
}

func defaultRegistry() *registry.Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg == nil {
		defaultReg = registry.New(".", slog.Default())
	}
	return defaultReg
}

// callOptions carries the per-call thread-identity settings applied
// each time a channel is looked up.
type callOptions struct {
	thread        engine.ThreadID
	haveThread    bool
	enforceThread bool
}

// Option configures an individual Message/Block/CurrentLine call.
type Option func(*callOptions)

// WithThread attaches an explicit caller identity to a call, compared
// against the thread that first created the channel. Go has no stable
// OS-thread identity per goroutine, so callers that care about the
// cross-thread guard must supply their own comparable token (e.g. a
// goroutine-local request ID); see DESIGN.md's "Thread identity" note.
func WithThread(id engine.ThreadID) Option {
	return func(o *callOptions) { o.thread = id; o.haveThread = true }
}

// WithoutThreadCheck disables the cross-thread guard for this call:
// no correctness guarantee, but no CrossThreadAccess failure either.
func WithoutThreadCheck() Option {
	return func(o *callOptions) { o.enforceThread = false }
}

func resolveOptions(opts []Option) callOptions {
	o := callOptions{enforceThread: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o callOptions) owner() engine.ThreadID {
	if o.haveThread {
		return o.thread
	}
	return nil
}

func getChannel(channelName string, opts []Option) (*engine.Channel, error) {
	o := resolveOptions(opts)
	ch, err := defaultRegistry().Get(channelName, o.owner())
	if err != nil {
		return nil, err
	}
	if err := ch.CheckOwner(o.owner(), o.enforceThread); err != nil {
		return nil, err
	}
	return ch, nil
}

// Message verifies (or records) a single leaf trace line on channelName
// with the literal payload text. It returns the number of payload
// bytes actually written/compared after truncation and normalization.
func Message(channelName, text string, opts ...Option) (int, error) {
	ch, err := getChannel(channelName, opts)
	if err != nil {
		return 0, err
	}
	return ch.Message(text)
}

// Messagef formats text with fmt.Sprintf before passing it to Message.
// Formatting is a plain string-building step performed entirely by the
// caller's format string and arguments; dilog itself only ever sees
// the already-formatted payload, treating the message payload as an
// opaque caller-supplied byte string throughout.
func Messagef(channelName, format string, args ...any) (int, error) {
	return Message(channelName, fmt.Sprintf(format, args...))
}

// BlockHandle is a scoped handle over one open block. Its Close method
// is the RAII-equivalent close operation: it never returns an error,
// since destructor-equivalent failures are captured as the channel's
// pending error instead and surfaced at the channel's next
// Message/Block/CurrentLine call.
type BlockHandle struct {
	ch     *engine.Channel
	blk    *engine.Block
	closed bool
}

// Close ends the block's scope, writing (or verifying) its closing
// frame. Calling Close more than once is a no-op.
func (h *BlockHandle) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.ch.CloseBlock(h.blk)
}

// Block opens a new nested block named blockName under channelName's
// currently open block. The returned handle's Close must be called
// exactly once, typically deferred, to close the block's scope.
func Block(channelName, blockName string, opts ...Option) (*BlockHandle, error) {
	ch, err := getChannel(channelName, opts)
	if err != nil {
		return nil, err
	}
	blk, err := ch.OpenBlock(blockName)
	if err != nil {
		return nil, err
	}
	return &BlockHandle{ch: ch, blk: blk}, nil
}

// CurrentLine returns channelName's current line counter.
func CurrentLine(channelName string, opts ...Option) (int, error) {
	ch, err := getChannel(channelName, opts)
	if err != nil {
		return 0, err
	}
	return ch.CurrentLine()
}

// Close tears down the default registry's channels, flushing writers
// and closing readers. Typically called once at process shutdown.
func Close() error {
	return defaultRegistry().Close()
}
