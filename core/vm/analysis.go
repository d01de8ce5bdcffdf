package vm

import (
	"encoding/binary"

	"github.com/VictoriaMetrics/metrics"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eth2030/evmcore/core/types"
)

// CodeByteType classifies one byte of a bytecode blob. Exactly one
// classification applies to every position, and the classification is a
// pure function of the code alone.
type CodeByteType byte

const (
	// DataOrInvalid marks push immediates and bytes not assigned to
	// any opcode. Executing one fails with ErrInvalidInstruction.
	CodeByteDataOrInvalid CodeByteType = iota
	// Opcode marks a regular executable opcode byte.
	CodeByteOpcode
	// Push marks a PUSH1..PUSH32 opcode byte; the following 1..32
	// bytes are immediates.
	CodeBytePush
	// JumpDest marks a JUMPDEST byte, the only valid jump target.
	CodeByteJumpDest
)

// codeByteType returns the classification of an opcode byte plus the
// number of immediate data bytes that follow it.
func codeByteType(b byte) (CodeByteType, int) {
	op := OpCode(b)
	switch {
	case op.IsPush():
		return CodeBytePush, op.PushDataLen()
	case op == JUMPDEST:
		return CodeByteJumpDest, 0
	case op.IsKnown():
		return CodeByteOpcode, 0
	default:
		return CodeByteDataOrInvalid, 0
	}
}

// CodeAnalysis holds the per-byte classification of a bytecode blob.
// Instances are immutable after construction and may be shared across
// concurrent executions of the same code.
type CodeAnalysis struct {
	kinds []CodeByteType
}

// analysisCacheSize bounds the process-wide analysis cache.
const analysisCacheSize = 1 << 16

var (
	// analysisCache maps the low 64 bits of a code's Keccak hash to
	// its analysis. The hash input is already uniformly distributed,
	// so the truncated key needs no further mixing. golang-lru
	// serializes access internally; entries are immutable, so a
	// cloned handle stays valid regardless of later evictions.
	analysisCache, _ = lru.New[uint64, *CodeAnalysis](analysisCacheSize)

	analysisCacheHits   = metrics.NewCounter(`evmcore_analysis_cache_hits_total`)
	analysisCacheMisses = metrics.NewCounter(`evmcore_analysis_cache_misses_total`)
)

// AnalyzeCode classifies every byte of code in a single linear pass.
// PUSHk opcodes mark their k immediate bytes as data; unassigned bytes
// classify as data as well.
func AnalyzeCode(code []byte) *CodeAnalysis {
	kinds := make([]CodeByteType, len(code))
	for pc := 0; pc < len(code); {
		kind, data := codeByteType(code[pc])
		kinds[pc] = kind
		pc += 1 + data
	}
	return &CodeAnalysis{kinds: kinds}
}

// NewCodeAnalysis returns the analysis of code, consulting the
// process-wide cache when the caller supplies the code's Keccak hash.
// A zero hash means "unknown" and bypasses the cache.
func NewCodeAnalysis(code []byte, codeHash types.Hash) *CodeAnalysis {
	if codeHash.IsZero() {
		return AnalyzeCode(code)
	}
	key := binary.BigEndian.Uint64(codeHash[types.HashLength-8:])
	if analysis, ok := analysisCache.Get(key); ok {
		analysisCacheHits.Inc()
		return analysis
	}
	analysisCacheMisses.Inc()
	analysis := AnalyzeCode(code)
	analysisCache.Add(key, analysis)
	return analysis
}

// Len returns the analyzed code length.
func (a *CodeAnalysis) Len() int { return len(a.kinds) }

// Kind returns the classification at pc. Positions past the end of the
// code are data.
func (a *CodeAnalysis) Kind(pc uint64) CodeByteType {
	if pc >= uint64(len(a.kinds)) {
		return CodeByteDataOrInvalid
	}
	return a.kinds[pc]
}

// IsJumpDest reports whether pc is a valid jump target.
func (a *CodeAnalysis) IsJumpDest(pc uint64) bool {
	return a.Kind(pc) == CodeByteJumpDest
}
