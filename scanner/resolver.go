package scanner

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/alinkof1/supertux-trainer/memory"
	"github.com/alinkof1/supertux-trainer/provider"
)

// ErrUnresolvedPointer is returned when a pointer chain step cannot be
// dereferenced: the slot is unreadable, NULL, or points outside mapped
// memory.
var ErrUnresolvedPointer = errors.New("unresolved pointer")

// Resolver turns scan results into final addresses by walking pointer
// chains through the memory-access provider.
type Resolver struct {
	provider provider.Provider
}

// NewResolver creates a Resolver bound to a memory-access provider.
func NewResolver(p provider.Provider) *Resolver {
	return &Resolver{provider: p}
}

// ResolvePointerChain walks pointer slots at all offsets except the
// last, which is added as a raw byte offset without a final dereference;
// the caller typically wants the address of a field, not its value. An
// empty offset list returns base unchanged.
//
// Example:
//
//	// base -> *(base+0) -> *(ptrA+24) -> ptrB+144
//	addr, err := r.ResolvePointerChain(base, []int64{0, 24, 144})
//
// The first unreadable, NULL, or unmapped step fails with
// ErrUnresolvedPointer; no partial address is ever returned.
func (r *Resolver) ResolvePointerChain(base memory.Address, offsets []int64) (memory.Address, error) {
	if len(offsets) == 0 {
		return base, nil
	}

	current := base
	for i := 0; i < len(offsets)-1; i++ {
		slot := current.Add(offsets[i])

		data, err := r.provider.ReadMemory(slot, memory.PointerSize)
		if err != nil {
			return 0, fmt.Errorf("%w: step %d (%s + %#x): %v",
				ErrUnresolvedPointer, i, current.ToString(), offsets[i], err)
		}

		ptr := memory.Address(binary.LittleEndian.Uint64(data))
		if ptr == 0 {
			return 0, fmt.Errorf("%w: NULL pointer at step %d (%s + %#x)",
				ErrUnresolvedPointer, i, current.ToString(), offsets[i])
		}
		if !r.provider.IsValidAddress(ptr) {
			return 0, fmt.Errorf("%w: pointer %s at step %d is not mapped",
				ErrUnresolvedPointer, ptr.ToString(), i)
		}

		current = ptr
	}

	// Last offset is a raw byte offset, no dereference.
	return current.Add(offsets[len(offsets)-1]), nil
}
