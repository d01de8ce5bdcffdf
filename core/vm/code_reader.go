package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/types"
)

// errOutOfCode is returned by CodeReader.Get when the program counter
// has run past the end of the code. It is not a failure: the dispatch
// loop treats it as an implicit STOP.
var errOutOfCode = errors.New("program counter out of code range")

// CodeReader is the program-counter cursor over a bytecode blob,
// backed by its analysis.
type CodeReader struct {
	code     []byte
	analysis *CodeAnalysis
	pc       uint64
}

// NewCodeReader creates a cursor positioned at pc. The code hash, when
// known and non-zero, keys the process-wide analysis cache.
func NewCodeReader(code []byte, codeHash types.Hash, pc uint64) *CodeReader {
	return &CodeReader{
		code:     code,
		analysis: NewCodeAnalysis(code, codeHash),
		pc:       pc,
	}
}

// PC returns the current program counter.
func (r *CodeReader) PC() uint64 { return r.pc }

// Len returns the code length.
func (r *CodeReader) Len() int { return len(r.code) }

// Code returns the underlying bytecode.
func (r *CodeReader) Code() []byte { return r.code }

// Get returns the opcode at the current position. Past the end of the
// code it returns errOutOfCode; on a byte the analysis classified as
// data it returns ErrInvalidInstruction.
func (r *CodeReader) Get() (OpCode, error) {
	if r.pc >= uint64(len(r.code)) {
		return 0, errOutOfCode
	}
	if r.analysis.Kind(r.pc) == CodeByteDataOrInvalid {
		return 0, ErrInvalidInstruction
	}
	return OpCode(r.code[r.pc]), nil
}

// Next advances the program counter by one.
func (r *CodeReader) Next() { r.pc++ }

// TryJump moves the program counter to dest. The destination must fit
// in a u64 and point at a JUMPDEST byte; anything else is
// ErrBadJumpDestination.
func (r *CodeReader) TryJump(dest *uint256.Int) error {
	target, overflow := u64WithOverflow(dest)
	if overflow || !r.analysis.IsJumpDest(target) {
		return ErrBadJumpDestination
	}
	r.pc = target
	return nil
}

// GetPushData reads the next n bytes of code as a big-endian push
// immediate and advances the program counter past them. When the code
// ends early the immediate behaves as if the missing trailing bytes
// were zero.
func (r *CodeReader) GetPushData(n int) uint256.Int {
	var buf [32]byte
	if r.pc < uint64(len(r.code)) {
		avail := min(n, len(r.code)-int(r.pc))
		copy(buf[32-n:32-n+avail], r.code[r.pc:r.pc+uint64(avail)])
	}
	r.pc += uint64(n)
	var v uint256.Int
	v.SetBytes32(buf[:])
	return v
}
