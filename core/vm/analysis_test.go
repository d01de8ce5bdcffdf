package vm

import (
	"testing"

	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/crypto"
)

func TestAnalyzeCodeBasic(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0x5b, // 0x5b here is push data, not a JUMPDEST
		byte(JUMPDEST),
		byte(ADD),
		0x0c, // unassigned byte
	}
	a := AnalyzeCode(code)

	want := []CodeByteType{
		CodeBytePush,
		CodeByteDataOrInvalid,
		CodeByteJumpDest,
		CodeByteOpcode,
		CodeByteDataOrInvalid,
	}
	for pc, kind := range want {
		if got := a.Kind(uint64(pc)); got != kind {
			t.Errorf("Kind(%d) = %d, want %d", pc, got, kind)
		}
	}
}

func TestAnalyzeCodePushSkipsData(t *testing.T) {
	// PUSH32 swallows the next 32 bytes even if they look like opcodes.
	code := make([]byte, 34)
	code[0] = byte(PUSH32)
	for i := 1; i <= 32; i++ {
		code[i] = byte(JUMPDEST)
	}
	code[33] = byte(JUMPDEST)

	a := AnalyzeCode(code)
	if a.Kind(0) != CodeBytePush {
		t.Errorf("Kind(0) = %d, want push", a.Kind(0))
	}
	for pc := uint64(1); pc <= 32; pc++ {
		if a.Kind(pc) != CodeByteDataOrInvalid {
			t.Errorf("Kind(%d) = %d, want data", pc, a.Kind(pc))
		}
	}
	if !a.IsJumpDest(33) {
		t.Error("Kind(33) should be a JUMPDEST")
	}
}

func TestAnalyzeCodeTruncatedPush(t *testing.T) {
	// A PUSH3 with only one data byte left still classifies cleanly.
	code := []byte{byte(PUSH3), 0x01}
	a := AnalyzeCode(code)
	if a.Kind(0) != CodeBytePush {
		t.Errorf("Kind(0) = %d, want push", a.Kind(0))
	}
	if a.Kind(1) != CodeByteDataOrInvalid {
		t.Errorf("Kind(1) = %d, want data", a.Kind(1))
	}
	if a.Kind(2) != CodeByteDataOrInvalid {
		t.Errorf("Kind(2) past end = %d, want data", a.Kind(2))
	}
}

func TestAnalyzeCodeEmpty(t *testing.T) {
	a := AnalyzeCode(nil)
	if a.Len() != 0 {
		t.Errorf("Len() = %d, want 0", a.Len())
	}
	if a.IsJumpDest(0) {
		t.Error("IsJumpDest(0) on empty code should be false")
	}
}

func TestAnalyzeCodeIsPure(t *testing.T) {
	code := []byte{byte(PUSH2), 1, 2, byte(JUMPDEST), byte(STOP)}
	a1 := AnalyzeCode(code)
	a2 := AnalyzeCode(code)
	for pc := uint64(0); pc < uint64(len(code)); pc++ {
		if a1.Kind(pc) != a2.Kind(pc) {
			t.Fatalf("classification at %d differs between runs", pc)
		}
	}
}

func TestCodeAnalysisCache(t *testing.T) {
	code := []byte{byte(PUSH1), 0x01, byte(JUMPDEST)}
	hash := crypto.Keccak256Hash(code)

	a1 := NewCodeAnalysis(code, hash)
	a2 := NewCodeAnalysis(code, hash)
	if a1 != a2 {
		t.Error("cached analysis should return the shared instance")
	}

	// A zero hash bypasses the cache.
	b1 := NewCodeAnalysis(code, types.Hash{})
	b2 := NewCodeAnalysis(code, types.Hash{})
	if b1 == b2 {
		t.Error("zero code hash must not hit the cache")
	}
}
