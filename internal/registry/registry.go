// Package registry is the process-wide, name-keyed table of open
// channels: one *engine.Channel per distinct channel name, created
// lazily on first use and torn down explicitly by the caller.
package registry

import (
	"log/slog"
	"sync"

	"github.com/rtjones/dilog/internal/engine"
)

// Registry holds every channel a process has opened, keyed by name.
//
// Thread-safety: all public methods take the registry's single mutex
// for the duration of the map lookup/insert; the channel itself is not
// safe for concurrent use from more than one goroutine and callers are
// expected to serialize access per channel (enforced, when requested,
// by the owning-thread check in engine.Channel.CheckOwner).
type Registry struct {
	mu       sync.Mutex
	channels map[string]*engine.Channel
	dir      string
	logger   *slog.Logger
}

// New creates a registry that stores each channel's trace file as
// "<dir>/<name>.dilog".
func New(dir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		channels: make(map[string]*engine.Channel),
		dir:      dir,
		logger:   logger,
	}
}

// Get returns the channel for name, opening it (in Record or Verify
// mode, per engine.Open's file-presence check) and binding owner as
// its creating thread if this is the first call for that name.
func (r *Registry) Get(name string, owner engine.ThreadID) (*engine.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[name]; ok {
		return ch, nil
	}

	path := r.dir + "/" + name + ".dilog"
	ch, err := engine.Open(path, name, r.logger)
	if err != nil {
		return nil, err
	}
	ch.BindOwner(owner)
	r.channels[name] = ch
	r.logger.Info("dilog: channel opened", "channel", name, "mode", ch.Mode.String())
	return ch, nil
}

// Close tears down every channel this registry has opened, flushing
// writers and closing readers. It returns the first error encountered
// but attempts every channel regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for name, ch := range r.channels {
		if err := ch.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.channels, name)
	}
	return first
}

// Names returns every channel name currently open, in no particular
// order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}
