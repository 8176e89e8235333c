package scanner

import (
	"math/rand"
	"testing"
)

func TestBuildSkipTable_Usability(t *testing.T) {
	cases := []struct {
		name   string
		pat    []byte
		fixed  []bool
		usable bool
	}{
		{
			name:   "AllFixed",
			pat:    []byte{0x48, 0x8b, 0x05, 0x12},
			fixed:  []bool{true, true, true, true},
			usable: true,
		},
		{
			name:   "LeadingWildcards",
			pat:    []byte{0x00, 0x00, 0x05, 0x12, 0x34},
			fixed:  []bool{false, false, true, true, true},
			usable: true,
		},
		{
			name:   "WildcardNextToLast",
			pat:    []byte{0x48, 0x8b, 0x00, 0x12},
			fixed:  []bool{true, true, false, true},
			usable: false,
		},
		{
			name:   "AllWildcards",
			pat:    []byte{0x00, 0x00, 0x00, 0x00},
			fixed:  []bool{false, false, false, false},
			usable: false,
		},
		{
			name:   "TooShort",
			pat:    []byte{0x48, 0x8b},
			fixed:  []bool{true, true},
			usable: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, usable := buildSkipTable(c.pat, c.fixed); usable != c.usable {
				t.Fatalf("usable = %v, want %v", usable, c.usable)
			}
		})
	}
}

func TestBuildSkipTable_Shifts(t *testing.T) {
	// Pattern: 48 8b ?? 05 12. Bytes absent before the final position may
	// shift at most past the wildcard at index 2 (shift 2).
	pat := []byte{0x48, 0x8b, 0x00, 0x05, 0x12}
	fixed := []bool{true, true, false, true, true}

	table, usable := buildSkipTable(pat, fixed)
	if !usable {
		t.Fatal("expected a usable table")
	}

	if table[0xaa] != 2 {
		t.Fatalf("absent byte shift = %d, want 2 (capped by the wildcard)", table[0xaa])
	}
	if table[0x05] != 1 {
		t.Fatalf("shift for 0x05 = %d, want 1", table[0x05])
	}
	// The wildcard caps every other shift at 2 as well
	if table[0x8b] != 2 {
		t.Fatalf("shift for 0x8b = %d, want 2", table[0x8b])
	}
	if table[0x48] != 2 {
		t.Fatalf("shift for 0x48 = %d, want 2", table[0x48])
	}
}

// TestHorspoolMatchesNaive cross-checks the accelerated scan against the
// naive scan over randomized data and wildcard placements. Any skip that
// could jump a valid match would show up as a disagreement here.
func TestHorspoolMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 500; iter++ {
		data := make([]byte, 256+rng.Intn(1024))
		// Narrow alphabet to force frequent matches and near-matches
		for i := range data {
			data[i] = byte(rng.Intn(8))
		}

		patLen := 3 + rng.Intn(12)
		pat := make([]byte, patLen)
		fixed := make([]bool, patLen)

		if rng.Intn(2) == 0 && len(data) > patLen {
			// Take the pattern from the data so matches exist
			start := rng.Intn(len(data) - patLen)
			copy(pat, data[start:start+patLen])
		} else {
			for i := range pat {
				pat[i] = byte(rng.Intn(8))
			}
		}
		for i := range fixed {
			fixed[i] = rng.Intn(4) != 0
		}

		table, usable := buildSkipTable(pat, fixed)
		if !usable {
			continue
		}

		want := findFirstNaive(data, pat, fixed)
		got := findFirstHorspool(data, pat, fixed, &table)
		if got != want {
			t.Fatalf("iter %d: horspool found %d, naive found %d (pattern %x fixed %v)",
				iter, got, want, pat, fixed)
		}
	}
}

func TestFindFirst_EdgeCases(t *testing.T) {
	pat := []byte{0x01, 0x02, 0x03}
	fixed := []bool{true, true, true}

	if got := findFirstNaive([]byte{0x01, 0x02}, pat, fixed); got != -1 {
		t.Fatalf("data shorter than pattern: got %d, want -1", got)
	}

	// Match exactly at the final viable offset
	data := []byte{0x00, 0x00, 0x01, 0x02, 0x03}
	if got := findFirstNaive(data, pat, fixed); got != 2 {
		t.Fatalf("match at end: got %d, want 2", got)
	}

	table, usable := buildSkipTable(pat, fixed)
	if !usable {
		t.Fatal("expected a usable table")
	}
	if got := findFirstHorspool(data, pat, fixed, &table); got != 2 {
		t.Fatalf("horspool match at end: got %d, want 2", got)
	}
}
