//go:build linux

package provider

import (
	"fmt"
	"unsafe"

	"github.com/alinkof1/supertux-trainer/memory"

	"golang.org/x/sys/unix"
)

// processVMReadv reads remote process memory via the process_vm_readv
// syscall without ptrace-attaching to the target.
func processVMReadv(pid int, remoteAddr memory.Address, size memory.Size) ([]byte, error) {
	if size == 0 {
		return nil, fmt.Errorf("zero-length read")
	}

	localBuf := make([]byte, size)

	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(size),
	}
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(size),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return nil, fmt.Errorf("process_vm_readv failed: %s (errno: %d)", errno.Error(), errno)
	}
	if uint(n) != uint(size) {
		return nil, fmt.Errorf("partial read: %d of %d bytes", n, size)
	}

	return localBuf, nil
}

// processVMWritev writes into remote process memory via process_vm_writev.
func processVMWritev(pid int, remoteAddr memory.Address, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("zero-length write")
	}

	localIov := unix.Iovec{
		Base: &data[0],
		Len:  uint64(len(data)),
	}
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(data),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		uintptr(1),
		uintptr(unsafe.Pointer(&remoteIov)),
		uintptr(1),
		uintptr(0),
	)

	if errno != 0 {
		return fmt.Errorf("process_vm_writev failed: %s (errno: %d)", errno.Error(), errno)
	}
	if int(n) != len(data) {
		return fmt.Errorf("partial write: %d of %d bytes", n, len(data))
	}

	return nil
}
