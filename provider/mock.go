package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alinkof1/supertux-trainer/memory"
)

type mockRegion struct {
	base memory.Address
	data []byte
}

type mockModule struct {
	base memory.Address
	size memory.Size
}

// MockProvider simulates a target process's memory from in-memory byte
// slices. It implements Provider, Writer and RegionLister, making it
// usable by every layer of the trainer without attaching to a real
// process.
type MockProvider struct {
	mu         sync.Mutex
	regions    []mockRegion // sorted by base
	modules    map[string]mockModule
	mainModule string
}

// NewMock creates an empty mock provider. Seed it with AddRegion and
// AddModule before use.
func NewMock() *MockProvider {
	return &MockProvider{
		modules: make(map[string]mockModule),
	}
}

// AddRegion installs a mapped range at base. The data slice is copied.
func (m *MockProvider) AddRegion(base memory.Address, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)

	m.regions = append(m.regions, mockRegion{base: base, data: buf})
	sort.Slice(m.regions, func(i, j int) bool {
		return m.regions[i].base < m.regions[j].base
	})
}

// AddModule registers a module name against a base address and size.
// The first module added becomes the main module unless SetMainModule
// is called.
func (m *MockProvider) AddModule(name string, base memory.Address, size memory.Size) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modules[name] = mockModule{base: base, size: size}
	if m.mainModule == "" {
		m.mainModule = name
	}
}

// SetMainModule overrides which module MainModule reports.
func (m *MockProvider) SetMainModule(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mainModule = name
}

// regionFor returns the region containing [addr, addr+size) entirely,
// or nil. Caller must hold the mutex.
func (m *MockProvider) regionFor(addr memory.Address, size memory.Size) *mockRegion {
	for i := range m.regions {
		r := &m.regions[i]
		end := uint64(r.base) + uint64(len(r.data))
		if uint64(addr) >= uint64(r.base) && uint64(addr)+uint64(size) <= end {
			return r
		}
	}
	return nil
}

// ReadMemory reads exactly size bytes at addr. A range that is not fully
// contained in one seeded region fails with ErrReadFailure.
func (m *MockProvider) ReadMemory(addr memory.Address, size memory.Size) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.regionFor(addr, size)
	if r == nil {
		return nil, fmt.Errorf("%w: %s length %s not mapped", ErrReadFailure, addr.ToString(), size.ToString())
	}

	offset := uint64(addr) - uint64(r.base)
	out := make([]byte, size)
	copy(out, r.data[offset:uint64(offset)+uint64(size)])
	return out, nil
}

// WriteMemory writes data at addr inside one seeded region.
func (m *MockProvider) WriteMemory(addr memory.Address, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.regionFor(addr, memory.Size(len(data)))
	if r == nil {
		return fmt.Errorf("%w: write of %d bytes at %s not mapped", ErrReadFailure, len(data), addr.ToString())
	}

	offset := uint64(addr) - uint64(r.base)
	copy(r.data[offset:], data)
	return nil
}

func (m *MockProvider) ModuleBase(name string) (memory.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mod, ok := m.modules[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}
	return mod.base, nil
}

func (m *MockProvider) ModuleSize(name string) (memory.Size, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mod, ok := m.modules[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}
	return mod.size, nil
}

func (m *MockProvider) IsValidAddress(addr memory.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regionFor(addr, 1) != nil
}

func (m *MockProvider) MainModule() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mainModule == "" {
		return "", fmt.Errorf("%w: no main module configured", ErrModuleNotFound)
	}
	return m.mainModule, nil
}

// Regions lists the seeded regions in address order.
func (m *MockProvider) Regions() ([]MemoryRegion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MemoryRegion, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, MemoryRegion{
			Base:  r.base,
			Size:  memory.Size(len(r.data)),
			Perms: "rwxp",
		})
	}
	return out, nil
}
