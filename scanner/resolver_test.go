package scanner

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/alinkof1/supertux-trainer/memory"
	"github.com/alinkof1/supertux-trainer/provider"
)

// chainProvider seeds two regions with a pointer chain:
//
//	0x400000+0x10 -> 0x500000
//	0x500000+0x20 -> 0x500100
//
// so base=0x400000 with offsets [0x10, 0x20, 0x8] resolves to 0x500108.
func chainProvider(t *testing.T) *provider.MockProvider {
	t.Helper()

	m := provider.NewMock()

	regionA := make([]byte, 0x100)
	binary.LittleEndian.PutUint64(regionA[0x10:], 0x500000)
	m.AddRegion(0x400000, regionA)

	regionB := make([]byte, 0x200)
	binary.LittleEndian.PutUint64(regionB[0x20:], 0x500100)
	m.AddRegion(0x500000, regionB)

	return m
}

func TestResolvePointerChain_Empty(t *testing.T) {
	r := NewResolver(chainProvider(t))

	addr, err := r.ResolvePointerChain(0x400000, nil)
	if err != nil {
		t.Fatalf("resolve failed - %s", err)
	}
	if addr != 0x400000 {
		t.Fatalf("empty chain must return base unchanged, got %s", addr.ToString())
	}
}

func TestResolvePointerChain_SingleOffsetNoDereference(t *testing.T) {
	m := provider.NewMock() // no regions at all: a read would fail
	r := NewResolver(m)

	addr, err := r.ResolvePointerChain(0x400000, []int64{0x30})
	if err != nil {
		t.Fatalf("single offset must not dereference, got error - %s", err)
	}
	if addr != 0x400030 {
		t.Fatalf("addr = %s, want 0x400030", addr.ToString())
	}
}

func TestResolvePointerChain_MultiStep(t *testing.T) {
	r := NewResolver(chainProvider(t))

	addr, err := r.ResolvePointerChain(0x400000, []int64{0x10, 0x20, 0x8})
	if err != nil {
		t.Fatalf("resolve failed - %s", err)
	}
	if addr != 0x500108 {
		t.Fatalf("addr = %s, want 0x500108", addr.ToString())
	}
}

func TestResolvePointerChain_NegativeLastOffset(t *testing.T) {
	r := NewResolver(chainProvider(t))

	addr, err := r.ResolvePointerChain(0x400000, []int64{0x10, -0x10})
	if err != nil {
		t.Fatalf("resolve failed - %s", err)
	}
	if addr != memory.Address(0x500000-0x10) {
		t.Fatalf("addr = %s, want 0x4FFFF0", addr.ToString())
	}
}

func TestResolvePointerChain_UnreadableStep(t *testing.T) {
	r := NewResolver(chainProvider(t))

	// 0x400000+0x2000 is outside every region
	_, err := r.ResolvePointerChain(0x400000, []int64{0x2000, 0x0})
	if !errors.Is(err, ErrUnresolvedPointer) {
		t.Fatalf("expected ErrUnresolvedPointer, got %v", err)
	}
}

func TestResolvePointerChain_NullPointer(t *testing.T) {
	m := provider.NewMock()
	m.AddRegion(0x400000, make([]byte, 0x100)) // all zero: NULL slots
	r := NewResolver(m)

	_, err := r.ResolvePointerChain(0x400000, []int64{0x10, 0x0})
	if !errors.Is(err, ErrUnresolvedPointer) {
		t.Fatalf("expected ErrUnresolvedPointer for NULL step, got %v", err)
	}
}

func TestResolvePointerChain_UnmappedPointer(t *testing.T) {
	m := provider.NewMock()
	region := make([]byte, 0x100)
	binary.LittleEndian.PutUint64(region[0x10:], 0xDEAD0000) // nothing mapped there
	m.AddRegion(0x400000, region)
	r := NewResolver(m)

	_, err := r.ResolvePointerChain(0x400000, []int64{0x10, 0x0})
	if !errors.Is(err, ErrUnresolvedPointer) {
		t.Fatalf("expected ErrUnresolvedPointer for unmapped pointer, got %v", err)
	}
}
