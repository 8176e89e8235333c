package hooks

import (
	"sync"

	"github.com/alinkof1/supertux-trainer/memory"

	"github.com/pkg/errors"
)

// Hook is a caller-held handle over one redirection. It wraps the
// engine's record by reference; the in-process patch itself belongs to
// the engine. Close removes the redirection exactly once if it is still
// installed, so `defer h.Close()` covers normal returns, early exits and
// error paths identically.
type Hook struct {
	engine      *Engine
	name        string
	target      memory.Address
	replacement memory.Address
	kind        Kind

	mu        sync.Mutex
	original  memory.Address
	installed bool
	closed    bool
}

// NewHook creates a handle for one target function. Nothing is patched
// until Install.
func NewHook(engine *Engine, name string, target, replacement memory.Address, kind Kind) *Hook {
	return &Hook{
		engine:      engine,
		name:        name,
		target:      target,
		replacement: replacement,
		kind:        kind,
	}
}

// Name returns the handle's human-readable name.
func (h *Hook) Name() string {
	return h.name
}

// Target returns the hooked function's address.
func (h *Hook) Target() memory.Address {
	return h.target
}

// Original returns the original function's entry point. Valid only once
// installed.
func (h *Hook) Original() memory.Address {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.original
}

// IsInstalled reports whether the handle currently owns a record.
func (h *Hook) IsInstalled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.installed
}

// IsEnabled reports whether the redirection is live.
func (h *Hook) IsEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.installed {
		return false
	}
	enabled, err := h.engine.IsEnabled(h.target)
	return err == nil && enabled
}

// Install registers the redirection with the engine. Installing an
// already-installed handle is a no-op success.
func (h *Hook) Install() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.Errorf("hook %q is closed", h.name)
	}
	if h.installed {
		return nil
	}

	original, err := h.engine.Install(h.target, h.replacement, h.kind)
	if err != nil {
		return errors.Wrapf(err, "hook %q", h.name)
	}

	h.original = original
	h.installed = true

	return nil
}

// Enable makes the redirection live. The handle must be installed;
// enabling an already-enabled hook is a no-op success.
func (h *Hook) Enable() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.installed {
		return errors.Wrapf(ErrNotCreated, "hook %q", h.name)
	}

	err := h.engine.Enable(h.target)
	if errors.Is(err, ErrAlreadyEnabled) {
		return nil
	}
	return err
}

// Disable restores original control flow, keeping the record so Enable
// works again. Disabling a hook that is not live is a no-op success.
func (h *Hook) Disable() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.installed {
		return errors.Wrapf(ErrNotCreated, "hook %q", h.name)
	}

	err := h.engine.Disable(h.target)
	if errors.Is(err, ErrAlreadyDisabled) {
		return nil
	}
	return err
}

// Remove releases the redirection. Removing an uninstalled handle is a
// no-op success.
func (h *Hook) Remove() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked()
}

func (h *Hook) removeLocked() error {
	if !h.installed {
		return nil
	}

	if err := h.engine.Remove(h.target); err != nil {
		return errors.Wrapf(err, "hook %q", h.name)
	}

	h.installed = false
	h.original = 0

	return nil
}

// Close removes the redirection if still installed. Safe to call more
// than once; only the first call acts.
func (h *Hook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	return h.removeLocked()
}
