package hooks

import "golang.org/x/exp/constraints"

// align rounds v up to the next multiple of b. b must be a power of two.
func align[I constraints.Integer](v, b I) I {
	return (v + b - 1) &^ (b - 1)
}
