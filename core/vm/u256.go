package vm

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/types"
)

// Conversions between the interpreter's 256-bit stack words
// (uint256.Int) and the fixed-size byte views crossing the host
// boundary. Words serialize big-endian; addresses occupy the low
// 20 bytes of a word with the high 96 bits zeroed.

// wordToHash returns the big-endian 32-byte form of a word.
func wordToHash(v *uint256.Int) types.Hash {
	return types.Hash(v.Bytes32())
}

// hashToWord interprets a 32-byte value as a big-endian word.
func hashToWord(h types.Hash) uint256.Int {
	var v uint256.Int
	v.SetBytes32(h[:])
	return v
}

// wordToAddress truncates a word to its low 20 bytes.
func wordToAddress(v *uint256.Int) types.Address {
	return types.Address(v.Bytes20())
}

// addressToWord zero-extends a 20-byte address to a word.
func addressToWord(a types.Address) uint256.Int {
	var v uint256.Int
	v.SetBytes20(a[:])
	return v
}

// u64WithOverflow returns the low 64 bits of v and whether any higher
// bit was set.
func u64WithOverflow(v *uint256.Int) (uint64, bool) {
	return v.Uint64(), !v.IsUint64()
}

// u64Saturating clamps v to the u64 range.
func u64Saturating(v *uint256.Int) uint64 {
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}
