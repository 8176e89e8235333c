package memory

import (
	"fmt"
)

// Address represents a memory address within a target process
type Address uint64

func (a Address) ToString() string {
	return fmt.Sprintf("0x%X", uint64(a))
}

// Add applies a signed delta to the address. No bounds validation is
// performed; speculative offsets during pattern discovery are expected
// to produce addresses that may not be mapped.
func (a Address) Add(delta int64) Address {
	return Address(uint64(int64(a) + delta))
}

// Size represents a size of memory region
type Size uint

func (s Size) ToString() string {
	return fmt.Sprintf("%d bytes", uint(s))
}

// PointerSize is the width of a pointer value read during pointer
// chain resolution.
const PointerSize = Size(8)
