package memory

import "errors"

var (
	// ErrMalformedPattern is returned when a textual pattern contains a token
	// that is neither a two-hex-digit byte nor the wildcard marker, or when
	// the token stream is empty.
	ErrMalformedPattern = errors.New("malformed pattern")

	// ErrInvalidArgument is returned for mismatched byte/mask lengths and
	// out-of-range position queries.
	ErrInvalidArgument = errors.New("invalid argument")
)
