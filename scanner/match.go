package scanner

// Matching algorithms over an in-memory snapshot of a region. Both
// return the lowest offset at which the pattern matches, or -1.

// findFirstNaive slides a window across every offset, short-circuiting
// on the first mismatched fixed byte. O(len(data) * len(pat)).
func findFirstNaive(data, pat []byte, fixed []bool) int {
	if len(pat) == 0 || len(data) < len(pat) {
		return -1
	}

	for i := 0; i <= len(data)-len(pat); i++ {
		if matchesAt(data, i, pat, fixed) {
			return i
		}
	}
	return -1
}

// matchesAt compares fixed positions right to left. Right-to-left
// ordering pairs with the Horspool skip loop, where mismatches cluster
// near the window's end.
func matchesAt(data []byte, at int, pat []byte, fixed []bool) bool {
	for j := len(pat) - 1; j >= 0; j-- {
		if fixed[j] && data[at+j] != pat[j] {
			return false
		}
	}
	return true
}

// skipTable is a Boyer-Moore-Horspool bad-character table adjusted for
// wildcards. A wildcard position can match every byte value, so for the
// purpose of the occurrence function it counts as an occurrence of all
// 256 values. The shift for text byte c is therefore
//
//	len(pat)-1 - max(rightmost fixed j<last with pat[j]==c, rightmost wildcard j<last)
//
// which guarantees no viable alignment is ever skipped: any smaller
// shift would require a position right of that maximum to match c, and
// every such position is fixed to a different byte.
type skipTable [256]int

// buildSkipTable derives the table from the pattern's fixed bytes.
// usable is false when acceleration cannot outrun the naive scan: a
// wildcard at or next to the final position caps every shift at 1, and
// tiny patterns do not amortize the table setup.
func buildSkipTable(pat []byte, fixed []bool) (table skipTable, usable bool) {
	n := len(pat)
	if n < 3 {
		return table, false
	}
	last := n - 1

	// Rightmost wildcard before the final position.
	lastWild := -1
	for j := 0; j < last; j++ {
		if !fixed[j] {
			lastWild = j
		}
	}

	// Default shift: full pattern length unless a wildcard caps it.
	def := n
	if lastWild >= 0 {
		def = last - lastWild
	}
	if def <= 1 {
		return table, false
	}

	for c := range table {
		table[c] = def
	}
	for j := 0; j < last; j++ {
		if !fixed[j] {
			continue
		}
		if shift := last - j; shift < table[pat[j]] {
			table[pat[j]] = shift
		}
	}

	return table, true
}

// findFirstHorspool runs the accelerated scan. The table must have been
// built from the same pattern.
func findFirstHorspool(data, pat []byte, fixed []bool, table *skipTable) int {
	n := len(pat)
	if n == 0 || len(data) < n {
		return -1
	}

	i := 0
	limit := len(data) - n
	for i <= limit {
		if matchesAt(data, i, pat, fixed) {
			return i
		}
		i += table[data[i+n-1]]
	}
	return -1
}
