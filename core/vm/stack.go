package vm

import (
	"sync"

	"github.com/holiman/uint256"
)

// StackLimit is the maximum depth of the EVM operand stack.
const StackLimit = 1024

// stackPool recycles the 1024-slot backing arrays across invocations
// so back-to-back executions do not reallocate them. Reuse has no
// observable effect beyond timing.
var stackPool = sync.Pool{
	New: func() any {
		s := make([]uint256.Int, 0, StackLimit)
		return &s
	},
}

// Stack is the EVM operand stack: a LIFO of 256-bit words with
// capacity exactly StackLimit.
type Stack struct {
	data []uint256.Int
}

// NewStack returns a new empty stack backed by a pooled buffer.
func NewStack() *Stack {
	buf := *stackPool.Get().(*[]uint256.Int)
	return &Stack{data: buf[:0]}
}

// NewStackFrom returns a stack pre-loaded with words, bottom first.
// Input beyond the stack capacity is truncated; a resumed stepper can
// never have produced more than StackLimit entries legitimately.
func NewStackFrom(words []uint256.Int) *Stack {
	if len(words) > StackLimit {
		words = words[:StackLimit]
	}
	st := NewStack()
	st.data = append(st.data, words...)
	return st
}

// Release returns the backing buffer to the pool. The stack must not
// be used afterwards.
func (st *Stack) Release() {
	buf := st.data[:0]
	st.data = nil
	stackPool.Put(&buf)
}

// Len returns the number of items on the stack.
func (st *Stack) Len() int { return len(st.data) }

// Data returns the stack contents, bottom to top.
func (st *Stack) Data() []uint256.Int { return st.data }

// Push pushes a copy of val. Pushing onto a full stack fails with
// ErrStackOverflow and leaves the stack unchanged.
func (st *Stack) Push(val *uint256.Int) error {
	if len(st.data) >= StackLimit {
		return ErrStackOverflow
	}
	st.data = append(st.data, *val)
	return nil
}

// Pop removes and returns the top element, or ErrStackUnderflow on an
// empty stack. When several operands are popped in sequence the first
// Pop yields the top of the stack.
func (st *Stack) Pop() (uint256.Int, error) {
	if len(st.data) == 0 {
		return uint256.Int{}, ErrStackUnderflow
	}
	return st.pop(), nil
}

// Peek returns a reference to the top element, or nil on an empty
// stack.
func (st *Stack) Peek() *uint256.Int {
	if len(st.data) == 0 {
		return nil
	}
	return &st.data[len(st.data)-1]
}

// Nth returns the (n+1)-th element from the top (n=0 is the top).
func (st *Stack) Nth(n int) (uint256.Int, error) {
	if len(st.data) < n+1 {
		return uint256.Int{}, ErrStackUnderflow
	}
	return st.data[len(st.data)-1-n], nil
}

// SwapWithTop exchanges the top element with the (n+1)-th from the top.
func (st *Stack) SwapWithTop(n int) error {
	if len(st.data) < n+1 {
		return ErrStackUnderflow
	}
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
	return nil
}

// The unchecked variants below are used by the opcode handlers. The
// dispatch loop has already validated the operation's stack
// requirements against the jump table, so bounds rechecks would be
// dead branches on the hot path.

func (st *Stack) push(val *uint256.Int) {
	st.data = append(st.data, *val)
}

func (st *Stack) pushUint64(v uint64) {
	var x uint256.Int
	x.SetUint64(v)
	st.data = append(st.data, x)
}

func (st *Stack) pushBool(b bool) {
	var x uint256.Int
	if b {
		x.SetOne()
	}
	st.data = append(st.data, x)
}

func (st *Stack) pop() uint256.Int {
	v := st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return v
}

// peek returns the top element for in-place mutation.
func (st *Stack) peek() *uint256.Int {
	return &st.data[len(st.data)-1]
}

// back returns the (n+1)-th element from the top.
func (st *Stack) back(n int) *uint256.Int {
	return &st.data[len(st.data)-1-n]
}

func (st *Stack) swap(n int) {
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
}

func (st *Stack) dup(n int) {
	st.data = append(st.data, st.data[len(st.data)-n])
}
