package memory

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestNewPattern_RoundTrip(t *testing.T) {
	cases := []string{
		"48 8b 05 ?? ?? ?? ?? 48 85 c0",
		"8B 05 ?? ?? ?? ??",
		"55 8b ec",
		"??",
		"90",
		"01 1D ?? ?? ?? ??",
	}

	for _, text := range cases {
		t.Run(text, func(t *testing.T) {
			p, err := NewPattern(text, "test")
			if err != nil {
				t.Fatalf("failed to parse %q - %s", text, err)
			}

			reparsed, err := NewPattern(p.String(), "test")
			if err != nil {
				t.Fatalf("failed to reparse %q - %s", p.String(), err)
			}

			if !bytes.Equal(p.Bytes(), reparsed.Bytes()) {
				t.Fatalf("bytes differ after round-trip: %v vs %v", p.Bytes(), reparsed.Bytes())
			}
			if !boolsEqual(p.Mask(), reparsed.Mask()) {
				t.Fatalf("mask differs after round-trip: %v vs %v", p.Mask(), reparsed.Mask())
			}
		})
	}
}

func TestNewPattern_Malformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"zz",
		"4",
		"123",
		"48 8b x? 05",
		"48 8b ? 05",
	}

	for _, text := range cases {
		if _, err := NewPattern(text, ""); !errors.Is(err, ErrMalformedPattern) {
			t.Fatalf("expected ErrMalformedPattern for %q, got %v", text, err)
		}
	}
}

func TestNewPattern_CaseInsensitive(t *testing.T) {
	upper, err := NewPattern("8B 05 FF", "")
	if err != nil {
		t.Fatalf("failed to parse - %s", err)
	}
	lower, err := NewPattern("8b 05 ff", "")
	if err != nil {
		t.Fatalf("failed to parse - %s", err)
	}

	if !bytes.Equal(upper.Bytes(), lower.Bytes()) {
		t.Fatalf("case should not affect parsed bytes: %v vs %v", upper.Bytes(), lower.Bytes())
	}
}

func TestNewPatternBytes_Invalid(t *testing.T) {
	if _, err := NewPatternBytes([]byte{0x48, 0x8b}, []bool{true}, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for mismatched lengths, got %v", err)
	}
	if _, err := NewPatternBytes(nil, nil, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty pattern, got %v", err)
	}
}

func TestNewPatternBytes_Immutable(t *testing.T) {
	raw := []byte{0x48, 0x8b, 0x05}
	mask := []bool{true, true, false}

	p, err := NewPatternBytes(raw, mask, "")
	if err != nil {
		t.Fatalf("failed to build - %s", err)
	}

	raw[0] = 0x00
	mask[0] = false

	if p.Bytes()[0] != 0x48 {
		t.Fatal("pattern bytes mutated through caller slice")
	}
	if !p.Mask()[0] {
		t.Fatal("pattern mask mutated through caller slice")
	}
}

func TestPattern_IsWildcard(t *testing.T) {
	p, err := NewPattern("48 ?? 05", "")
	if err != nil {
		t.Fatalf("failed to parse - %s", err)
	}

	for i, want := range []bool{false, true, false} {
		got, err := p.IsWildcard(i)
		if err != nil {
			t.Fatalf("IsWildcard(%d) failed - %s", i, err)
		}
		if got != want {
			t.Fatalf("IsWildcard(%d) = %v, want %v", i, got, want)
		}
	}

	if _, err := p.IsWildcard(3); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for out-of-range query, got %v", err)
	}
	if _, err := p.IsWildcard(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative query, got %v", err)
	}
}

// TestPattern_MatchesRandomized checks the fixed-positions-only contract
// over random fixed/wildcard placements: a pattern extracted from a
// buffer matches regardless of what the buffer holds at wildcard
// positions, and corrupting any fixed position breaks the match.
func TestPattern_MatchesRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		size := 1 + rng.Intn(24)

		buf := make([]byte, size)
		rng.Read(buf)

		mask := make([]bool, size)
		fixedCount := 0
		for i := range mask {
			mask[i] = rng.Intn(2) == 0
			if mask[i] {
				fixedCount++
			}
		}

		patBytes := make([]byte, size)
		copy(patBytes, buf)
		for i := range patBytes {
			if !mask[i] {
				// Wildcard positions hold arbitrary values
				patBytes[i] = byte(rng.Intn(256))
			}
		}

		p, err := NewPatternBytes(patBytes, mask, "")
		if err != nil {
			t.Fatalf("failed to build - %s", err)
		}

		if !p.Matches(buf) {
			t.Fatalf("iter %d: pattern derived from buffer should match", iter)
		}

		if fixedCount == 0 {
			continue
		}

		// Corrupt one fixed position
		idx := -1
		for i := range mask {
			if mask[i] {
				idx = i
				break
			}
		}
		corrupted := make([]byte, size)
		copy(corrupted, buf)
		corrupted[idx] ^= 0xFF

		if p.Matches(corrupted) {
			t.Fatalf("iter %d: corrupted fixed byte at %d should not match", iter, idx)
		}
	}
}

func TestPattern_MatchesShortInput(t *testing.T) {
	p, err := NewPattern("48 8b 05", "")
	if err != nil {
		t.Fatalf("failed to parse - %s", err)
	}
	if p.Matches([]byte{0x48, 0x8b}) {
		t.Fatal("input shorter than the pattern should never match")
	}
}

func boolsEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
