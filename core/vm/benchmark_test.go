package vm

import (
	"testing"

	"github.com/eth2030/evmcore/crypto"
)

// countdownLoop builds a program that counts down from n to zero:
//
//	PUSH2 n; JUMPDEST; PUSH1 1; SWAP1; SUB; DUP1; PUSH1 3; JUMPI; STOP
func countdownLoop(n uint16) []byte {
	return []byte{
		byte(PUSH2), byte(n >> 8), byte(n),
		byte(JUMPDEST), // pc 3
		byte(PUSH1), 0x01,
		byte(SWAP1),
		byte(SUB),
		byte(DUP1),
		byte(PUSH1), 0x03,
		byte(JUMPI),
		byte(STOP),
	}
}

func TestCountdownLoop(t *testing.T) {
	res, _ := runCode(Cancun, countdownLoop(100), 1_000_000)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %v, want success", res.Status)
	}
}

func BenchmarkInterpreterLoop(b *testing.B) {
	code := countdownLoop(1000)
	host := newMockHost()
	msg := testMessage(10_000_000)
	vm := NewVM()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		res := vm.Execute(Cancun, code, msg, host)
		if res.Status != StatusSuccess {
			b.Fatalf("Status = %v", res.Status)
		}
	}
}

func BenchmarkAnalyzeCode(b *testing.B) {
	code := make([]byte, 4096)
	for i := range code {
		code[i] = byte(i)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		AnalyzeCode(code)
	}
}

func BenchmarkAnalysisCacheHit(b *testing.B) {
	code := countdownLoop(10)
	hash := crypto.Keccak256Hash(code)
	NewCodeAnalysis(code, hash)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		NewCodeAnalysis(code, hash)
	}
}

func BenchmarkKeccakOpcode(b *testing.B) {
	code := []byte{
		byte(PUSH1), 0x20,
		byte(PUSH1), 0x00,
		byte(KECCAK256),
		byte(POP),
		byte(STOP),
	}
	host := newMockHost()
	msg := testMessage(1_000_000)
	vm := NewVM()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		vm.Execute(Cancun, code, msg, host)
	}
}
