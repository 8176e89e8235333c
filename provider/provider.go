// Package provider defines the memory-access capability consumed by the
// scanner and hook layers, with implementations selected at construction
// time: a mock provider for tests and demos, and a Linux provider backed
// by process_vm_readv/writev.
package provider

import (
	"errors"

	"github.com/alinkof1/supertux-trainer/memory"
)

var (
	// ErrReadFailure is returned when any part of a requested range cannot
	// be read. Reads are all-or-nothing; partial data is never returned.
	ErrReadFailure = errors.New("memory read failed")

	// ErrModuleNotFound is returned when a module name cannot be resolved.
	ErrModuleNotFound = errors.New("module not found")

	// ErrProcessNotOpen is returned when an operation requiring an open
	// process is attempted after the provider has been closed.
	ErrProcessNotOpen = errors.New("process not open")
)

// Provider is the capability interface for reading a target process's
// address space. Implementations must treat reads as point-in-time
// snapshots; they never mutate the target.
type Provider interface {
	// ReadMemory reads exactly size bytes at addr, or fails with an error
	// wrapping ErrReadFailure.
	ReadMemory(addr memory.Address, size memory.Size) ([]byte, error)

	// ModuleBase resolves a module's base address by name.
	ModuleBase(name string) (memory.Address, error)

	// ModuleSize resolves a module's mapped size by name.
	ModuleSize(name string) (memory.Size, error)

	// IsValidAddress reports whether addr lies in committed, readable memory.
	IsValidAddress(addr memory.Address) bool

	// MainModule returns the name of the process's primary module.
	MainModule() (string, error)
}

// Writer is implemented by providers that can also modify target memory.
// The hook layer requires this capability for patching.
type Writer interface {
	WriteMemory(addr memory.Address, data []byte) error
}

// RegionLister is implemented by providers that can enumerate the mapped
// regions of the target, enabling full-process sweeps.
type RegionLister interface {
	Regions() ([]MemoryRegion, error)
}

// MemoryRegion describes one contiguous mapped range.
type MemoryRegion struct {
	Base  memory.Address
	Size  memory.Size
	Perms string // "rwxp" style; empty when the source has no permission info
}

func (r MemoryRegion) IsReadable() bool {
	return r.Perms == "" || r.Perms[0] == 'r'
}

func (r MemoryRegion) IsWritable() bool {
	return len(r.Perms) > 1 && r.Perms[1] == 'w'
}

func (r MemoryRegion) IsExecutable() bool {
	return len(r.Perms) > 2 && r.Perms[2] == 'x'
}

// Contains reports whether [addr, addr+size) lies entirely inside the region.
func (r MemoryRegion) Contains(addr memory.Address, size memory.Size) bool {
	end := uint64(r.Base) + uint64(r.Size)
	return uint64(addr) >= uint64(r.Base) && uint64(addr)+uint64(size) <= end
}
