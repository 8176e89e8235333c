package hooks

import (
	"sort"
	"sync"

	"github.com/alinkof1/supertux-trainer/memory"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/pkg/errors"
)

// Kind describes how a redirection is wired.
type Kind int

const (
	KindJump   Kind = iota // unconditional jump written over the prologue
	KindCall               // call-site redirection
	KindVTable             // virtual-table slot replacement
)

func (k Kind) String() string {
	switch k {
	case KindJump:
		return "jmp"
	case KindCall:
		return "call"
	case KindVTable:
		return "vtable"
	default:
		return "unknown"
	}
}

// record is the engine's per-redirection state. The target address is
// the unique key; at most one record exists per target.
type record struct {
	target      memory.Address
	replacement memory.Address
	original    memory.Address
	kind        Kind
	enabled     bool
}

// RecordInfo is a read-only snapshot of one hook record.
type RecordInfo struct {
	Target      memory.Address
	Replacement memory.Address
	Original    memory.Address
	Kind        Kind
	Enabled     bool
}

// Engine tracks every active redirection in the process and drives their
// lifecycle (install, enable, disable, remove) through a Patcher. The
// record table is the one piece of shared mutable state; a single mutex
// serializes all transitions, which also serializes the non-atomic
// read-modify-write patching of code shared with the target's own
// running threads.
type Engine struct {
	mu          sync.Mutex
	patcher     Patcher
	log         *logger.Logger
	records     map[memory.Address]*record
	initialized bool
}

// NewEngine creates an engine over the given patch capability. Call
// Initialize before installing hooks.
func NewEngine(patcher Patcher) *Engine {
	return &Engine{
		patcher: patcher,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "hooks")),
	}
}

// Initialize prepares the record table. Fails with ErrAlreadyInitialized
// on a running engine.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return ErrAlreadyInitialized
	}

	e.records = make(map[memory.Address]*record)
	e.initialized = true

	e.log.Infoln("Hook engine initialized")

	return nil
}

// Uninitialize disables and removes every outstanding record, then marks
// the engine not-initialized. Per-record failures are logged and do not
// stop the teardown. Any call after teardown fails with ErrNotInitialized
// until Initialize runs again.
func (e *Engine) Uninitialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}

	for target, rec := range e.records {
		if rec.enabled {
			if err := e.patcher.ToggleExecution(target, false); err != nil {
				e.log.Warn("Failed to disable hook at ", target.ToString(), " during teardown: ", err)
			}
		}
		if err := e.patcher.RestoreOriginal(target); err != nil {
			e.log.Warn("Failed to restore original at ", target.ToString(), " during teardown: ", err)
		}
		delete(e.records, target)
	}

	e.initialized = false

	e.log.Infoln("Hook engine uninitialized")

	return nil
}

// IsInitialized reports whether the engine accepts hook operations.
func (e *Engine) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Install prepares a redirection from target to replacement and returns
// the original function's entry point. The hook starts disabled. Fails
// with ErrAlreadyCreated if a record already exists for the target; a
// failed install registers nothing.
func (e *Engine) Install(target, replacement memory.Address, kind Kind) (memory.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return 0, ErrNotInitialized
	}
	if _, exists := e.records[target]; exists {
		return 0, errors.Wrapf(ErrAlreadyCreated, "target %s", target.ToString())
	}

	original, err := e.patcher.InstallRedirect(target, replacement)
	if err != nil {
		return 0, errors.Wrapf(err, "install redirect at %s", target.ToString())
	}

	e.records[target] = &record{
		target:      target,
		replacement: replacement,
		original:    original,
		kind:        kind,
	}

	e.log.Infoln("Installed", kind.String(), "hook at", target.ToString(), "->", replacement.ToString())

	return original, nil
}

// Enable makes the redirection live. Valid only on an installed,
// disabled hook. A failed toggle leaves the record untouched.
func (e *Engine) Enable(target memory.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}
	rec, exists := e.records[target]
	if !exists {
		return errors.Wrapf(ErrNotCreated, "target %s", target.ToString())
	}
	if rec.enabled {
		return errors.Wrapf(ErrAlreadyEnabled, "target %s", target.ToString())
	}

	if err := e.patcher.ToggleExecution(target, true); err != nil {
		return errors.Wrapf(err, "enable hook at %s", target.ToString())
	}

	rec.enabled = true

	e.log.Debugln("Enabled hook at", target.ToString())

	return nil
}

// Disable restores original control flow without discarding the record;
// Enable works again without a fresh Install. Valid only on an enabled
// hook.
func (e *Engine) Disable(target memory.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}
	rec, exists := e.records[target]
	if !exists {
		return errors.Wrapf(ErrNotCreated, "target %s", target.ToString())
	}
	if !rec.enabled {
		return errors.Wrapf(ErrAlreadyDisabled, "target %s", target.ToString())
	}

	if err := e.patcher.ToggleExecution(target, false); err != nil {
		return errors.Wrapf(err, "disable hook at %s", target.ToString())
	}

	rec.enabled = false

	e.log.Debugln("Disabled hook at", target.ToString())

	return nil
}

// Remove releases the record and its original-entry-point resource,
// disabling first if the hook is live. Removing a target with no record
// is a no-op success, mirroring deterministic scoped-resource release.
func (e *Engine) Remove(target memory.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}
	rec, exists := e.records[target]
	if !exists {
		return nil
	}

	if rec.enabled {
		if err := e.patcher.ToggleExecution(target, false); err != nil {
			return errors.Wrapf(err, "disable hook at %s before removal", target.ToString())
		}
		rec.enabled = false
	}

	if err := e.patcher.RestoreOriginal(target); err != nil {
		return errors.Wrapf(err, "restore original at %s", target.ToString())
	}

	delete(e.records, target)

	e.log.Infoln("Removed hook at", target.ToString())

	return nil
}

// IsEnabled reports the enabled flag for a target's record.
func (e *Engine) IsEnabled(target memory.Address) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return false, ErrNotInitialized
	}
	rec, exists := e.records[target]
	if !exists {
		return false, errors.Wrapf(ErrNotCreated, "target %s", target.ToString())
	}
	return rec.enabled, nil
}

// Records returns a snapshot of every active record, sorted by target
// address.
func (e *Engine) Records() []RecordInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]RecordInfo, 0, len(e.records))
	for _, rec := range e.records {
		out = append(out, RecordInfo{
			Target:      rec.target,
			Replacement: rec.replacement,
			Original:    rec.original,
			Kind:        rec.kind,
			Enabled:     rec.enabled,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Target < out[j].Target
	})
	return out
}
