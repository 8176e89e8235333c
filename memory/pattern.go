package memory

import (
	"fmt"
	"strconv"
	"strings"
)

// Wildcard is the pattern token that matches any byte value.
const Wildcard = "??"

// Pattern is an immutable byte template for memory scanning. Positions
// are either fixed (must equal the corresponding byte) or wildcards
// (always match). The optional name identifies the pattern in results
// and is not used for equality.
type Pattern struct {
	bytes []byte
	fixed []bool
	name  string
}

// NewPattern parses a whitespace-separated token stream like
// "48 8B ?? 05" into a Pattern. Tokens are two-hex-digit bytes in
// either case, or the wildcard marker. Any other token, or an empty
// stream, fails with ErrMalformedPattern.
func NewPattern(text, name string) (Pattern, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Pattern{}, fmt.Errorf("%w: empty pattern string", ErrMalformedPattern)
	}

	p := Pattern{
		bytes: make([]byte, 0, len(tokens)),
		fixed: make([]bool, 0, len(tokens)),
		name:  name,
	}

	for _, token := range tokens {
		if token == Wildcard {
			p.bytes = append(p.bytes, 0x00)
			p.fixed = append(p.fixed, false)
			continue
		}

		if len(token) != 2 {
			return Pattern{}, fmt.Errorf("%w: token %q", ErrMalformedPattern, token)
		}

		value, err := strconv.ParseUint(token, 16, 8)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: token %q", ErrMalformedPattern, token)
		}

		p.bytes = append(p.bytes, byte(value))
		p.fixed = append(p.fixed, true)
	}

	return p, nil
}

// NewPatternBytes builds a Pattern from parallel byte and mask slices.
// A true mask entry marks a fixed position, false marks a wildcard.
// Mismatched lengths or empty input fail with ErrInvalidArgument.
// Both slices are copied, so the Pattern stays immutable even if the
// caller mutates its arguments afterwards.
func NewPatternBytes(bytes []byte, mask []bool, name string) (Pattern, error) {
	if len(bytes) != len(mask) {
		return Pattern{}, fmt.Errorf("%w: byte length (%d) does not match mask length (%d)",
			ErrInvalidArgument, len(bytes), len(mask))
	}
	if len(bytes) == 0 {
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidArgument)
	}

	p := Pattern{
		bytes: make([]byte, len(bytes)),
		fixed: make([]bool, len(mask)),
		name:  name,
	}
	copy(p.bytes, bytes)
	copy(p.fixed, mask)

	return p, nil
}

// Name returns the pattern's human-readable name, which may be empty.
func (p Pattern) Name() string {
	return p.name
}

// Size returns the pattern length in bytes.
func (p Pattern) Size() int {
	return len(p.bytes)
}

// Bytes returns a copy of the pattern bytes. Wildcard positions hold 0x00.
func (p Pattern) Bytes() []byte {
	out := make([]byte, len(p.bytes))
	copy(out, p.bytes)
	return out
}

// Mask returns a copy of the fixed-position mask.
func (p Pattern) Mask() []bool {
	out := make([]bool, len(p.fixed))
	copy(out, p.fixed)
	return out
}

// IsWildcard reports whether the position is a wildcard. Out-of-range
// positions fail with ErrInvalidArgument.
func (p Pattern) IsWildcard(pos int) (bool, error) {
	if pos < 0 || pos >= len(p.fixed) {
		return false, fmt.Errorf("%w: position %d out of range [0, %d)",
			ErrInvalidArgument, pos, len(p.fixed))
	}
	return !p.fixed[pos], nil
}

// Matches compares the pattern against data at offset 0. Only fixed
// positions are compared; wildcards always match. The caller must
// supply at least Size() bytes; shorter input never matches.
func (p Pattern) Matches(data []byte) bool {
	if len(data) < len(p.bytes) {
		return false
	}
	for i := range p.bytes {
		if p.fixed[i] && data[i] != p.bytes[i] {
			return false
		}
	}
	return true
}

// String renders the pattern back into token text. A pattern built from
// NewPattern round-trips to an equivalent (lowercase) form.
func (p Pattern) String() string {
	var sb strings.Builder
	for i, b := range p.bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.fixed[i] {
			fmt.Fprintf(&sb, "%02x", b)
		} else {
			sb.WriteString(Wildcard)
		}
	}
	return sb.String()
}
