package memory

// PatternResult is the outcome of a successful scan: the address the
// pattern matched at, the raw bytes that matched, and the originating
// pattern's name. Results are owned by the caller and read-only after
// creation.
type PatternResult struct {
	Address      Address
	PatternName  string
	MatchedBytes []byte
}

// Offset applies a signed delta to the match address. Pure arithmetic,
// no validation.
func (r PatternResult) Offset(delta int64) Address {
	return r.Address.Add(delta)
}
