package scanner

import (
	"bytes"
	"errors"
	"testing"

	"github.com/alinkof1/supertux-trainer/memory"
	"github.com/alinkof1/supertux-trainer/provider"
)

const testBase = memory.Address(0x400000)

func mustPattern(t *testing.T, text, name string) memory.Pattern {
	t.Helper()

	p, err := memory.NewPattern(text, name)
	if err != nil {
		t.Fatalf("failed to parse pattern %q - %s", text, err)
	}
	return p
}

// seededProvider builds a mock target with the canonical trainer layout:
// a module filled with NOPs carrying a few known instruction sequences.
func seededProvider(t *testing.T) *provider.MockProvider {
	t.Helper()

	data := bytes.Repeat([]byte{0x90}, 0x1000)
	copy(data[0x345:], []byte{0x8B, 0x05, 0x78, 0x56, 0x34, 0x12}) // mov eax, [mem]
	copy(data[0x456:], []byte{0x01, 0x1D, 0xBC, 0x9A, 0x78, 0x56}) // add [mem], ebx
	copy(data[0x567:], []byte{0x55, 0x8B, 0xEC})                   // push ebp; mov ebp, esp

	m := provider.NewMock()
	m.AddRegion(testBase, data)
	m.AddModule("supertux.exe", testBase, memory.Size(len(data)))

	return m
}

func TestScanRange_CanonicalExample(t *testing.T) {
	// Region [8B 05 78 56 34 12] at 0x400000, pattern "8B 05 ?? ?? ?? ??"
	region := []byte{0x8B, 0x05, 0x78, 0x56, 0x34, 0x12}

	m := provider.NewMock()
	m.AddRegion(testBase, region)

	for _, variant := range []struct {
		name string
		opts []Option
	}{
		{name: "Accelerated"},
		{name: "Naive", opts: []Option{WithNaiveScan()}},
	} {
		t.Run(variant.name, func(t *testing.T) {
			s := New(m, variant.opts...)

			result, err := s.ScanRange(mustPattern(t, "8B 05 ?? ?? ?? ??", "health"), testBase, 6)
			if err != nil {
				t.Fatalf("scan failed - %s", err)
			}
			if result == nil {
				t.Fatal("expected a match")
			}
			if result.Address != testBase {
				t.Fatalf("match address = %s, want %s", result.Address.ToString(), testBase.ToString())
			}
			if !bytes.Equal(result.MatchedBytes, region) {
				t.Fatalf("matched bytes = %x, want %x", result.MatchedBytes, region)
			}
			if result.PatternName != "health" {
				t.Fatalf("pattern name = %q, want %q", result.PatternName, "health")
			}
		})
	}
}

func TestScanRange_NotFoundIsNotAnError(t *testing.T) {
	m := seededProvider(t)
	s := New(m)

	result, err := s.ScanRange(mustPattern(t, "de ad be ef", ""), testBase, 0x1000)
	if err != nil {
		t.Fatalf("no match must not be an error, got %s", err)
	}
	if result != nil {
		t.Fatalf("expected no match, got %s", result.Address.ToString())
	}
}

func TestScanRange_FirstMatchWins(t *testing.T) {
	data := bytes.Repeat([]byte{0x00}, 64)
	copy(data[10:], []byte{0xAA, 0xBB, 0xCC})
	copy(data[40:], []byte{0xAA, 0xBB, 0xCC})

	m := provider.NewMock()
	m.AddRegion(testBase, data)
	s := New(m)

	result, err := s.ScanRange(mustPattern(t, "aa bb cc", ""), testBase, 64)
	if err != nil {
		t.Fatalf("scan failed - %s", err)
	}
	if result == nil {
		t.Fatal("expected a match")
	}
	if want := testBase.Add(10); result.Address != want {
		t.Fatalf("match address = %s, want lowest address %s", result.Address.ToString(), want.ToString())
	}
}

func TestScanRange_ReadFailure(t *testing.T) {
	m := seededProvider(t)
	s := New(m)

	// Range extends past the mapped region; reads are all-or-nothing.
	_, err := s.ScanRange(mustPattern(t, "90 90", ""), testBase, 0x2000)
	if !errors.Is(err, provider.ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
}

func TestScanModule(t *testing.T) {
	m := seededProvider(t)
	s := New(m)

	result, err := s.ScanModule(mustPattern(t, "55 8b ec", "prologue"), "supertux.exe")
	if err != nil {
		t.Fatalf("scan failed - %s", err)
	}
	if result == nil {
		t.Fatal("expected a match")
	}
	if want := testBase.Add(0x567); result.Address != want {
		t.Fatalf("match address = %s, want %s", result.Address.ToString(), want.ToString())
	}
}

func TestScanModule_NotFound(t *testing.T) {
	m := seededProvider(t)
	s := New(m)

	_, err := s.ScanModule(mustPattern(t, "90", ""), "missing.dll")
	if !errors.Is(err, provider.ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestScanProcess(t *testing.T) {
	m := seededProvider(t)
	s := New(m)

	result, err := s.ScanProcess(mustPattern(t, "01 1d ?? ?? ?? ??", "coins"))
	if err != nil {
		t.Fatalf("scan failed - %s", err)
	}
	if result == nil {
		t.Fatal("expected a match")
	}
	if want := testBase.Add(0x456); result.Address != want {
		t.Fatalf("match address = %s, want %s", result.Address.ToString(), want.ToString())
	}
}

func TestScanMultiple_OrderAndOmission(t *testing.T) {
	m := seededProvider(t)
	s := New(m, WithMaxParallel(4))

	pats := []memory.Pattern{
		mustPattern(t, "8b 05 ?? ?? ?? ??", "health"),
		mustPattern(t, "de ad be ef", "absent"),
		mustPattern(t, "55 8b ec", "prologue"),
	}

	results, err := s.ScanMultiple(pats, testBase, 0x1000)
	if err != nil {
		t.Fatalf("scan failed - %s", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].PatternName != "health" || results[1].PatternName != "prologue" {
		t.Fatalf("results out of input order: %q, %q", results[0].PatternName, results[1].PatternName)
	}
}

func TestScanRegions_AllOccurrences(t *testing.T) {
	m := provider.NewMock()

	regionA := bytes.Repeat([]byte{0x00}, 64)
	copy(regionA[5:], []byte{0xAA, 0xBB})
	copy(regionA[30:], []byte{0xAA, 0xBB})
	m.AddRegion(0x400000, regionA)

	regionB := bytes.Repeat([]byte{0x00}, 64)
	copy(regionB[12:], []byte{0xAA, 0xBB})
	m.AddRegion(0x500000, regionB)

	s := New(m)

	results, err := s.ScanRegions(mustPattern(t, "aa bb", ""))
	if err != nil {
		t.Fatalf("sweep failed - %s", err)
	}

	want := []memory.Address{0x400005, 0x40001E, 0x50000C}
	if len(results) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(results))
	}
	for i, w := range want {
		if results[i].Address != w {
			t.Fatalf("match %d = %s, want %s", i, results[i].Address.ToString(), w.ToString())
		}
	}
}
