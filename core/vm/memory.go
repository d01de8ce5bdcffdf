package vm

import (
	"github.com/holiman/uint256"
)

// Memory is the byte-addressable linear memory of one execution. It
// starts empty and grows in 32-byte-aligned steps; every growth charges
// the quadratic expansion cost against the execution's gas counter
// before a single byte is zeroed.
//
// Invariant: len(store) is always a multiple of 32.
type Memory struct {
	store []byte
}

// NewMemory returns a new empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryFrom returns a memory seeded with the given contents, used
// when resuming a stepped execution. The input is padded up to a word
// boundary to restore the invariant.
func NewMemoryFrom(data []byte) *Memory {
	store := make([]byte, len(data))
	copy(store, data)
	if rem := len(store) % 32; rem != 0 {
		store = append(store, make([]byte, 32-rem)...)
	}
	return &Memory{store: store}
}

// Len returns the current memory size in bytes.
func (m *Memory) Len() uint64 { return uint64(len(m.store)) }

// Data returns the full backing slice.
func (m *Memory) Data() []byte { return m.store }

// memoryCost is C(s) = 3*ceil(s/32) + ceil(s/32)^2/512. Any overflow
// along the way is out of gas: the cost would exceed any gas budget.
func memoryCost(size uint64) (uint64, error) {
	words, err := wordSize(size)
	if err != nil {
		return 0, err
	}
	square := words * words
	if words != 0 && square/words != words {
		return 0, ErrOutOfGas
	}
	linear := words * GasMemory // words <= 2^59, no overflow
	cost := square/512 + linear
	if cost < linear {
		return 0, ErrOutOfGas
	}
	return cost, nil
}

// expand grows memory so that at least end bytes are addressable,
// rounding up to a word boundary and charging the cost difference.
func (m *Memory) expand(end uint64, gas *Gas) error {
	words, err := wordSize(end)
	if err != nil {
		return err
	}
	newLen := words * 32
	if newLen <= uint64(len(m.store)) {
		return nil
	}
	newCost, err := memoryCost(newLen)
	if err != nil {
		return err
	}
	oldCost, err := memoryCost(uint64(len(m.store)))
	if err != nil {
		return err
	}
	if err := gas.Consume(newCost - oldCost); err != nil {
		return err
	}
	m.store = append(m.store, make([]byte, newLen-uint64(len(m.store)))...)
	return nil
}

// GetSlice resolves (offset, size) to a mutable view of memory,
// expanding first if needed. A zero size never touches memory or gas.
// Offset overflow or end-of-range overflow is out of gas.
func (m *Memory) GetSlice(offset *uint256.Int, size uint64, gas *Gas) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	off, overflow := u64WithOverflow(offset)
	end := off + size
	if overflow || end < off {
		return nil, ErrOutOfGas
	}
	if err := m.expand(end, gas); err != nil {
		return nil, err
	}
	return m.store[off:end], nil
}

// GetWord reads the 32-byte big-endian word at offset, expanding as
// needed.
func (m *Memory) GetWord(offset *uint256.Int, gas *Gas) (uint256.Int, error) {
	slice, err := m.GetSlice(offset, 32, gas)
	if err != nil {
		return uint256.Int{}, err
	}
	var w uint256.Int
	w.SetBytes32(slice)
	return w, nil
}

// SetByte writes a single byte at offset, expanding as needed.
func (m *Memory) SetByte(offset *uint256.Int, b byte, gas *Gas) error {
	slice, err := m.GetSlice(offset, 1, gas)
	if err != nil {
		return err
	}
	slice[0] = b
	return nil
}

// CopyWithin relocates length bytes from src to dst inside memory,
// handling overlap, charging the per-word copy cost plus any expansion
// of the farther-reaching region.
func (m *Memory) CopyWithin(src, dst, length *uint256.Int, gas *Gas) error {
	srcOff, srcOverflow := u64WithOverflow(src)
	dstOff, dstOverflow := u64WithOverflow(dst)
	n, nOverflow := u64WithOverflow(length)
	far := max(srcOff, dstOff)
	end := far + n
	if srcOverflow || dstOverflow || nOverflow || end < far {
		return ErrOutOfGas
	}
	if err := gas.ConsumeCopyCost(n); err != nil {
		return err
	}
	if err := m.expand(end, gas); err != nil {
		return err
	}
	copy(m.store[dstOff:dstOff+n], m.store[srcOff:srcOff+n])
	return nil
}
