package vm

import (
	"math"
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/types"
)

func TestWordHashRoundTrip(t *testing.T) {
	var h types.Hash
	for i := range h {
		h[i] = byte(i + 1)
	}
	w := hashToWord(h)
	if got := wordToHash(&w); got != h {
		t.Errorf("round trip = %v, want %v", got, h)
	}

	// And the other direction.
	v := new(uint256.Int).SetUint64(0xdeadbeef)
	h2 := wordToHash(v)
	w2 := hashToWord(h2)
	if !w2.Eq(v) {
		t.Errorf("round trip = %v, want %v", &w2, v)
	}
}

func TestWordAddressConversions(t *testing.T) {
	addr := types.HexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	w := addressToWord(addr)

	// The high 96 bits are zero.
	b32 := w.Bytes32()
	for i := 0; i < 12; i++ {
		if b32[i] != 0 {
			t.Fatalf("byte %d of address word = %#x, want 0", i, b32[i])
		}
	}
	if got := wordToAddress(&w); got != addr {
		t.Errorf("round trip = %v, want %v", got, addr)
	}

	// Truncation drops the high bytes.
	full := new(uint256.Int).SetAllOne()
	got := wordToAddress(full)
	for i := range got {
		if got[i] != 0xff {
			t.Fatalf("truncated address byte %d = %#x, want 0xff", i, got[i])
		}
	}
}

func TestU64WithOverflow(t *testing.T) {
	v, overflow := u64WithOverflow(u64(42))
	if v != 42 || overflow {
		t.Errorf("u64WithOverflow(42) = (%d, %v), want (42, false)", v, overflow)
	}

	max := new(uint256.Int).SetUint64(math.MaxUint64)
	v, overflow = u64WithOverflow(max)
	if v != math.MaxUint64 || overflow {
		t.Errorf("u64WithOverflow(2^64-1) = (%d, %v), want (max, false)", v, overflow)
	}

	big := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	v, overflow = u64WithOverflow(big)
	if v != 0 || !overflow {
		t.Errorf("u64WithOverflow(2^64) = (%d, %v), want (0, true)", v, overflow)
	}

	// The low limb is still reported on overflow.
	bigPlus := new(uint256.Int).Add(big, uint256.NewInt(7))
	v, overflow = u64WithOverflow(bigPlus)
	if v != 7 || !overflow {
		t.Errorf("u64WithOverflow(2^64+7) = (%d, %v), want (7, true)", v, overflow)
	}
}

func TestU64Saturating(t *testing.T) {
	if got := u64Saturating(u64(9)); got != 9 {
		t.Errorf("u64Saturating(9) = %d, want 9", got)
	}
	big := new(uint256.Int).Lsh(uint256.NewInt(1), 70)
	if got := u64Saturating(big); got != math.MaxUint64 {
		t.Errorf("u64Saturating(2^70) = %d, want max", got)
	}
}

func TestSignedArithmeticBoundaries(t *testing.T) {
	// SDIV(MIN, -1) wraps to MIN.
	minInt := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	negOne := new(uint256.Int).SetAllOne()
	var q uint256.Int
	q.SDiv(minInt, negOne)
	if !q.Eq(minInt) {
		t.Errorf("SDIV(MIN, -1) = %v, want MIN", &q)
	}

	// Division and remainder by zero yield zero, signed and unsigned.
	var z uint256.Int
	z.Div(u64(5), u64(0))
	if !z.IsZero() {
		t.Errorf("DIV(5, 0) = %v, want 0", &z)
	}
	z.SDiv(negOne, new(uint256.Int))
	if !z.IsZero() {
		t.Errorf("SDIV(-1, 0) = %v, want 0", &z)
	}
	z.Mod(u64(5), u64(0))
	if !z.IsZero() {
		t.Errorf("MOD(5, 0) = %v, want 0", &z)
	}
	z.SMod(negOne, new(uint256.Int))
	if !z.IsZero() {
		t.Errorf("SMOD(-1, 0) = %v, want 0", &z)
	}
}

func TestSignExtendIdentity(t *testing.T) {
	// signextend(k, x) with k >= 31 is the identity.
	x := new(uint256.Int).SetBytes([]byte{0x80, 1, 2, 3})
	var got uint256.Int
	got.ExtendSign(x, u64(31))
	if !got.Eq(x) {
		t.Errorf("signextend(31, x) = %v, want x", &got)
	}
	got.ExtendSign(x, u64(200))
	if !got.Eq(x) {
		t.Errorf("signextend(200, x) = %v, want x", &got)
	}

	// Sign-extending the single byte 0xff yields -1.
	got.ExtendSign(u64(0xff), u64(0))
	if !got.Eq(new(uint256.Int).SetAllOne()) {
		t.Errorf("signextend(0, 0xff) = %v, want all ones", &got)
	}

	// A positive byte clears everything above it.
	withJunk := new(uint256.Int).SetBytes([]byte{0xaa, 0xbb, 0x7f})
	got.ExtendSign(withJunk, u64(0))
	if got.Uint64() != 0x7f {
		t.Errorf("signextend(0, ...7f) = %v, want 0x7f", &got)
	}
}
