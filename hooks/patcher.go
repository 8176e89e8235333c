// Package hooks manages function redirections in a target process: a
// lifecycle engine over per-target hook records, caller-held handles
// with deterministic cleanup, and the low-level patch capability that
// performs the actual code modification.
package hooks

import (
	"github.com/alinkof1/supertux-trainer/memory"
)

// Patcher is the low-level patch capability the engine drives. It owns
// the mechanics of stealing prologue bytes, building trampolines, and
// flipping redirections on and off; the engine owns lifecycle and
// bookkeeping.
type Patcher interface {
	// InstallRedirect prepares a redirection from target to replacement
	// and returns the still-callable original entry point (the relocated
	// prologue plus a jump back into the untouched remainder). The
	// redirection is not live until ToggleExecution(target, true).
	InstallRedirect(target, replacement memory.Address) (memory.Address, error)

	// RestoreOriginal tears the redirection down and releases the original
	// entry point resource. The target bytes are restored if still patched.
	RestoreOriginal(target memory.Address) error

	// ToggleExecution makes the redirection live (true) or restores
	// original control flow (false) without discarding the prepared patch.
	ToggleExecution(target memory.Address, enabled bool) error
}
