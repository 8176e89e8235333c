package hooks

import (
	"sync"

	"github.com/alinkof1/supertux-trainer/memory"

	"github.com/pkg/errors"
)

// Memory is the read/write capability the ProcessPatcher drives. The
// Linux provider satisfies it; so does the mock provider in tests.
type Memory interface {
	ReadMemory(addr memory.Address, size memory.Size) ([]byte, error)
	WriteMemory(addr memory.Address, data []byte) error
}

// Allocator supplies executable memory for trampolines. Allocating and
// protecting executable pages is platform glue outside this package;
// callers inject whatever their platform provides.
type Allocator interface {
	// AllocateExecutable returns an executable block of at least size
	// bytes, preferably within rel32 range of near.
	AllocateExecutable(near memory.Address, size memory.Size) (memory.Address, error)

	// Free releases a block returned by AllocateExecutable.
	Free(addr memory.Address) error
}

type patchState struct {
	stolen     []byte // original prologue bytes replaced by the patch
	patch      []byte // rel32 jump to the replacement, NOP-padded
	trampoline memory.Address
	live       bool
}

// ProcessPatcher implements Patcher by byte-patching x86-64 code through
// a read/write memory capability. InstallRedirect steals whole prologue
// instructions covering the 5-byte jump window, copies them into an
// allocated trampoline followed by a jump back into the remainder of the
// original function, and prepares (but does not write) the jump patch.
// ToggleExecution swaps the patch and the stolen bytes at the target.
type ProcessPatcher struct {
	mem   Memory
	alloc Allocator

	mu      sync.Mutex
	patches map[memory.Address]*patchState
}

// NewProcessPatcher creates a patcher over the given memory and
// trampoline-allocation capabilities.
func NewProcessPatcher(mem Memory, alloc Allocator) *ProcessPatcher {
	return &ProcessPatcher{
		mem:     mem,
		alloc:   alloc,
		patches: make(map[memory.Address]*patchState),
	}
}

func (p *ProcessPatcher) InstallRedirect(target, replacement memory.Address) (memory.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.patches[target]; exists {
		return 0, errors.Errorf("redirect already installed at %s", target.ToString())
	}

	prologue, err := p.mem.ReadMemory(target, prologueReadLen)
	if err != nil {
		return 0, errors.Wrapf(err, "read prologue at %s", target.ToString())
	}

	stolenLen, err := stolenByteCount(prologue, jumpPatchLen)
	if err != nil {
		return 0, errors.Wrapf(err, "split prologue at %s", target.ToString())
	}

	stolen := make([]byte, stolenLen)
	copy(stolen, prologue[:stolenLen])

	// The patch covers every stolen byte; the tail past the jump is
	// NOP-filled so no partial instruction survives at the target.
	patch, err := encodeJump(uint64(target), uint64(replacement))
	if err != nil {
		return 0, errors.Wrap(err, "encode redirect jump")
	}
	for len(patch) < stolenLen {
		patch = append(patch, 0x90)
	}

	trampoline, err := p.alloc.AllocateExecutable(target, memory.Size(align(stolenLen+jumpPatchLen, 16)))
	if err != nil {
		return 0, errors.Wrap(err, "allocate trampoline")
	}

	// Trampoline: the stolen prologue with PC-relative displacements
	// fixed up for the new location, then a jump into the untouched
	// remainder of the original function.
	relocated, err := relocateStolen(stolen, uint64(target), uint64(trampoline))
	if err != nil {
		return 0, p.failInstall(trampoline, err, "relocate stolen prologue")
	}
	jumpBack, err := encodeJump(uint64(trampoline)+uint64(stolenLen), uint64(target)+uint64(stolenLen))
	if err != nil {
		return 0, p.failInstall(trampoline, err, "encode trampoline jump")
	}

	body := make([]byte, 0, stolenLen+jumpPatchLen)
	body = append(body, relocated...)
	body = append(body, jumpBack...)

	if err := p.mem.WriteMemory(trampoline, body); err != nil {
		return 0, p.failInstall(trampoline, err, "write trampoline")
	}

	p.patches[target] = &patchState{
		stolen:     stolen,
		patch:      patch,
		trampoline: trampoline,
	}

	return trampoline, nil
}

// failInstall releases the trampoline after a failed install step.
func (p *ProcessPatcher) failInstall(trampoline memory.Address, err error, msg string) error {
	if freeErr := p.alloc.Free(trampoline); freeErr != nil {
		return errors.Wrapf(err, "%s (free also failed: %v)", msg, freeErr)
	}
	return errors.Wrap(err, msg)
}

func (p *ProcessPatcher) ToggleExecution(target memory.Address, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, exists := p.patches[target]
	if !exists {
		return errors.Errorf("no redirect installed at %s", target.ToString())
	}
	if st.live == enabled {
		return nil
	}

	data := st.stolen
	if enabled {
		data = st.patch
	}
	if err := p.mem.WriteMemory(target, data); err != nil {
		return errors.Wrapf(err, "toggle redirect at %s", target.ToString())
	}

	st.live = enabled
	return nil
}

func (p *ProcessPatcher) RestoreOriginal(target memory.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, exists := p.patches[target]
	if !exists {
		return errors.Errorf("no redirect installed at %s", target.ToString())
	}

	if st.live {
		if err := p.mem.WriteMemory(target, st.stolen); err != nil {
			return errors.Wrapf(err, "restore original bytes at %s", target.ToString())
		}
		st.live = false
	}

	if err := p.alloc.Free(st.trampoline); err != nil {
		return errors.Wrap(err, "free trampoline")
	}

	delete(p.patches, target)
	return nil
}

// BumpAllocator hands out chunks of a caller-supplied executable slab.
// Free is a no-op; the slab is reclaimed as a whole when the owner tears
// it down.
type BumpAllocator struct {
	mu   sync.Mutex
	base memory.Address
	size memory.Size
	next uint64
}

// NewBumpAllocator wraps an executable range the caller already owns.
func NewBumpAllocator(base memory.Address, size memory.Size) *BumpAllocator {
	return &BumpAllocator{base: base, size: size}
}

func (b *BumpAllocator) AllocateExecutable(_ memory.Address, size memory.Size) (memory.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.next+uint64(size) > uint64(b.size) {
		return 0, errors.Errorf("trampoline slab exhausted: %d of %d bytes used", b.next, uint(b.size))
	}

	addr := b.base.Add(int64(b.next))
	b.next += uint64(size)
	return addr, nil
}

func (b *BumpAllocator) Free(memory.Address) error {
	return nil
}
