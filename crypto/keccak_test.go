package crypto

import (
	"bytes"
	"testing"

	"github.com/eth2030/evmcore/core/types"
)

func TestKeccak256EmptyInput(t *testing.T) {
	got := Keccak256()
	want := types.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if !bytes.Equal(got, want.Bytes()) {
		t.Errorf("Keccak256() = %x, want %x", got, want)
	}
}

func TestKeccak256KnownVector(t *testing.T) {
	got := Keccak256Hash([]byte("abc"))
	want := types.HexToHash("0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45")
	if got != want {
		t.Errorf("Keccak256Hash(abc) = %v, want %v", got, want)
	}
}

func TestKeccak256MultipleSlices(t *testing.T) {
	joined := Keccak256([]byte("ab"), []byte("c"))
	direct := Keccak256([]byte("abc"))
	if !bytes.Equal(joined, direct) {
		t.Errorf("split input hash = %x, direct = %x", joined, direct)
	}
}

func TestCachedKeccak256MatchesDirect(t *testing.T) {
	for _, size := range []int{0, 1, 31, 32, 33, 64, 65, 100} {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(i * 7)
		}
		direct := types.BytesToHash(Keccak256(data))
		cached := CachedKeccak256(data)
		if cached != direct {
			t.Errorf("size %d: cached = %v, direct = %v", size, cached, direct)
		}
		// Hit the cache a second time (32/64 only internally).
		if again := CachedKeccak256(data); again != direct {
			t.Errorf("size %d: second lookup = %v, want %v", size, again, direct)
		}
	}
}

func TestCachedKeccak256DistinguishesInputs(t *testing.T) {
	a := make([]byte, 32)
	b := make([]byte, 32)
	b[31] = 1
	if CachedKeccak256(a) == CachedKeccak256(b) {
		t.Error("different inputs must hash differently")
	}
}
