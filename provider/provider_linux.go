//go:build linux

package provider

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/alinkof1/supertux-trainer/memory"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// mapping is one /proc/<pid>/maps line: a region plus its backing path.
type mapping struct {
	region MemoryRegion
	path   string
}

// LinuxProvider implements Provider, Writer and RegionLister for a live
// Linux process using the process_vm_readv/process_vm_writev syscalls.
type LinuxProvider struct {
	mu  sync.Mutex
	pid int
	log *logger.Logger
	mm  []mapping // sorted by base address
}

// OpenPID attaches to a process by PID and loads its memory map.
func OpenPID(pid int) (*LinuxProvider, error) {
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); os.IsNotExist(err) {
		return nil, fmt.Errorf("process with PID %d does not exist", pid)
	}

	p := &LinuxProvider{
		pid: pid,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	if err := p.UpdateMemoryMap(); err != nil {
		return nil, fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened")

	return p, nil
}

// OpenName attaches to the first process whose comm or exe basename
// equals name.
func OpenName(name string) (*LinuxProvider, error) {
	pid, err := FindPID(name)
	if err != nil {
		return nil, err
	}
	return OpenPID(pid)
}

// FindPID returns the PID of the first process whose comm or exe
// basename equals name. The match is case-sensitive, like pidof.
func FindPID(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty process name")
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("read /proc: %w", err)
	}

	selfPID := os.Getpid()

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		if pid == selfPID {
			continue // skip ourselves
		}

		comm, _ := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if strings.TrimRight(string(comm), "\n") == name {
			return pid, nil
		}

		// Resolve /proc/<pid>/exe symlink; may fail if zombie or permission
		exe, _ := os.Readlink(filepath.Join("/proc", e.Name(), "exe"))
		if exe != "" && filepath.Base(exe) == name {
			return pid, nil
		}
	}

	return 0, fmt.Errorf("no process named %q", name)
}

// Close releases the provider. Further operations fail with
// ErrProcessNotOpen.
func (p *LinuxProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")
	p.pid = 0
	p.mm = nil

	return nil
}

// PID returns the attached process ID.
func (p *LinuxProvider) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// UpdateMemoryMap re-reads /proc/<pid>/maps. Call after the target has
// loaded or unloaded modules.
func (p *LinuxProvider) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return ErrProcessNotOpen
	}

	mm, err := readMaps(p.pid)
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	// mappingFor relies on the map being sorted by address
	sort.Slice(mm, func(i, j int) bool {
		return mm[i].region.Base < mm[j].region.Base
	})

	p.mm = mm
	return nil
}

// readMaps parses /proc/<pid>/maps into mappings.
func readMaps(pid int) ([]mapping, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var mm []mapping
	s := bufio.NewScanner(file)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 2 {
			continue
		}

		// Address range like "00400000-0040b000"
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}
		start, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil {
			continue
		}

		var path string
		if len(fields) >= 6 {
			path = fields[5]
		}

		mm = append(mm, mapping{
			region: MemoryRegion{
				Base:  memory.Address(start),
				Size:  memory.Size(end - start),
				Perms: fields[1],
			},
			path: path,
		})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	return mm, nil
}

// mappingFor locates the mapping containing addr via binary search.
// Caller must hold the mutex.
func (p *LinuxProvider) mappingFor(addr memory.Address) *mapping {
	i := sort.Search(len(p.mm), func(i int) bool {
		m := p.mm[i].region
		return uint64(m.Base)+uint64(m.Size) > uint64(addr)
	})
	if i < len(p.mm) && p.mm[i].region.Base <= addr {
		return &p.mm[i]
	}
	return nil
}

func (p *LinuxProvider) IsValidAddress(addr memory.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isValidAddressInternal(addr)
}

// Internal helper that assumes the mutex is already locked
func (p *LinuxProvider) isValidAddressInternal(addr memory.Address) bool {
	if addr <= 0x10000 {
		return false
	}
	if addr > 0x700000000000 {
		return false
	}

	if m := p.mappingFor(addr); m != nil {
		return m.region.IsReadable()
	}
	return false
}

// ReadMemory reads exactly size bytes from the target. Unmapped or
// unreadable ranges fail with ErrReadFailure; partial reads are never
// returned.
func (p *LinuxProvider) ReadMemory(addr memory.Address, size memory.Size) ([]byte, error) {
	p.mu.Lock()
	pid := p.pid
	valid := pid != 0 && p.isValidAddressInternal(addr)
	p.mu.Unlock()

	if pid == 0 {
		return nil, ErrProcessNotOpen
	}
	if !valid {
		return nil, fmt.Errorf("%w: %s not mapped", ErrReadFailure, addr.ToString())
	}

	// The syscall runs without the lock; reads are snapshots anyway.
	data, err := processVMReadv(pid, addr, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	return data, nil
}

// WriteMemory writes data into the target process.
func (p *LinuxProvider) WriteMemory(addr memory.Address, data []byte) error {
	p.mu.Lock()
	pid := p.pid
	valid := pid != 0 && p.isValidAddressInternal(addr)
	p.mu.Unlock()

	if pid == 0 {
		return ErrProcessNotOpen
	}
	if !valid {
		return fmt.Errorf("%w: %s not mapped", ErrReadFailure, addr.ToString())
	}

	if err := processVMWritev(pid, addr, data); err != nil {
		return fmt.Errorf("write at %s: %w", addr.ToString(), err)
	}
	return nil
}

// moduleMappings returns every mapping whose backing file basename
// equals name. Caller must hold the mutex.
func (p *LinuxProvider) moduleMappings(name string) []*mapping {
	var out []*mapping
	for i := range p.mm {
		if p.mm[i].path == "" {
			continue
		}
		if filepath.Base(p.mm[i].path) == name {
			out = append(out, &p.mm[i])
		}
	}
	return out
}

func (p *LinuxProvider) ModuleBase(name string) (memory.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return 0, ErrProcessNotOpen
	}

	mods := p.moduleMappings(name)
	if len(mods) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}
	return mods[0].region.Base, nil
}

func (p *LinuxProvider) ModuleSize(name string) (memory.Size, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return 0, ErrProcessNotOpen
	}

	mods := p.moduleMappings(name)
	if len(mods) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}

	// Module extent: from the first mapping's base to the end of the last.
	first := uint64(mods[0].region.Base)
	last := mods[len(mods)-1].region
	return memory.Size(uint64(last.Base) + uint64(last.Size) - first), nil
}

// MainModule resolves the basename of /proc/<pid>/exe.
func (p *LinuxProvider) MainModule() (string, error) {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return "", ErrProcessNotOpen
	}

	exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", fmt.Errorf("resolve main module: %w", err)
	}
	return filepath.Base(exe), nil
}

// Regions returns a copy of the current memory map.
func (p *LinuxProvider) Regions() ([]MemoryRegion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, ErrProcessNotOpen
	}

	out := make([]MemoryRegion, len(p.mm))
	for i := range p.mm {
		out[i] = p.mm[i].region
	}
	return out, nil
}
