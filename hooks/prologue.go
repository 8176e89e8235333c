package hooks

import (
	"encoding/binary"
	"math"

	"golang.org/x/arch/x86/x86asm"

	"github.com/pkg/errors"
)

// jumpPatchLen is the size of the rel32 jump written over the target's
// prologue (E9 + 4-byte displacement).
const jumpPatchLen = 5

// prologueReadLen is how many bytes of the target function we read to
// find instruction boundaries. x86-64 instructions are at most 15 bytes,
// so this always covers the patch window plus one trailing instruction.
const prologueReadLen = 32

// stolenByteCount decodes instructions from the start of code until at
// least minBytes are covered, returning the total length of that
// instruction run. The patch must steal whole instructions: a jump
// written over a partial instruction would leave the remainder as
// garbage that the trampoline's jump-back lands on.
func stolenByteCount(code []byte, minBytes int) (int, error) {
	total := 0
	for total < minBytes {
		inst, err := x86asm.Decode(code[total:], 64)
		if err != nil {
			return 0, errors.Wrapf(err, "decode instruction at prologue offset %d", total)
		}
		total += inst.Len
	}
	return total, nil
}

// relocateStolen rewrites a stolen instruction run so it executes
// correctly at a new address. RIP-relative operands and relative
// branches encode a displacement from the instruction's own location;
// copying them verbatim would make the relocated copy compute on the
// wrong addresses. Each PC-relative disp32 is adjusted by the move
// delta; an instruction whose displacement is narrower than 32 bits
// (rel8/rel16 branches) cannot absorb the delta and fails the
// relocation.
func relocateStolen(stolen []byte, from, to uint64) ([]byte, error) {
	out := make([]byte, len(stolen))
	copy(out, stolen)

	delta := int64(from) - int64(to)

	offset := 0
	for offset < len(out) {
		inst, err := x86asm.Decode(out[offset:], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "decode instruction at prologue offset %d", offset)
		}

		if inst.PCRel > 0 {
			if inst.PCRel != 4 {
				return nil, errors.Errorf(
					"instruction %s at prologue offset %d has a %d-byte relative displacement and cannot be relocated",
					inst.Op, offset, inst.PCRel)
			}

			pos := offset + inst.PCRelOff
			disp := int64(int32(binary.LittleEndian.Uint32(out[pos:]))) + delta
			if disp > math.MaxInt32 || disp < math.MinInt32 {
				return nil, errors.Errorf(
					"relocating %s at prologue offset %d exceeds rel32 range", inst.Op, offset)
			}
			binary.LittleEndian.PutUint32(out[pos:], uint32(int32(disp)))
		}

		offset += inst.Len
	}

	return out, nil
}

// encodeJump builds a rel32 jump from `from` to `to`. The displacement
// is relative to the end of the jump instruction and must fit in 32
// bits; a farther target fails rather than encoding a truncated jump.
func encodeJump(from, to uint64) ([]byte, error) {
	rel := int64(to) - int64(from) - jumpPatchLen
	if rel > math.MaxInt32 || rel < math.MinInt32 {
		return nil, errors.Errorf("jump from 0x%X to 0x%X exceeds rel32 range", from, to)
	}
	return []byte{
		0xE9,
		byte(rel),
		byte(rel >> 8),
		byte(rel >> 16),
		byte(rel >> 24),
	}, nil
}
