package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/log"
)

// Config holds interpreter configuration options.
type Config struct {
	// Logger, when set, receives debug lines on the start and
	// termination of Execute, and an error line when Execute or StepN
	// recovers a panic. StepN logs nothing else. Nothing is logged on
	// the per-opcode path.
	Logger *log.Logger
}

// VM is a reusable interpreter instance. It is stateless between
// invocations and safe for concurrent use; each Execute/StepN call
// builds its own Interpreter.
type VM struct {
	cfg Config
}

// NewVM creates a VM with default configuration.
func NewVM() *VM {
	return &VM{}
}

// NewVMWithConfig creates a VM with the given configuration.
func NewVMWithConfig(cfg Config) *VM {
	return &VM{cfg: cfg}
}

// Interpreter is the state of one execution: the code cursor, operand
// stack, linear memory, gas counters and termination bookkeeping. It is
// created per invocation and consumed by run.
type Interpreter struct {
	revision Revision
	msg      *Message
	host     Host
	table    *JumpTable

	code   *CodeReader
	stack  *Stack
	memory *Memory
	gas    Gas
	refund Refund

	// returnData holds the output of the most recent nested call,
	// addressed by RETURNDATASIZE/RETURNDATACOPY.
	returnData []byte

	// output is set by RETURN and REVERT.
	output []byte

	stepStatus StepStatus
	status     StatusCode

	// steps is the remaining step budget; negative means unlimited.
	steps int64

	// txCtx caches the host's transaction context after first use.
	txCtx *TxContext
}

// txContext returns the transaction context, fetching it from the host
// on first access.
func (in *Interpreter) txContext() *TxContext {
	if in.txCtx == nil {
		ctx := in.host.GetTxContext()
		in.txCtx = &ctx
	}
	return in.txCtx
}

// staticViolation reports whether a state-mutating opcode runs in
// static mode. The static flag exists only from Byzantium on.
func (in *Interpreter) staticViolation() bool {
	return in.revision >= Byzantium && in.msg.Static()
}

// run is the dispatch loop: fetch, validate, charge, execute, advance.
// It returns nil on any successful termination (including an exhausted
// step budget) and one of the Err* taxonomy otherwise.
func (in *Interpreter) run() error {
	for {
		if in.steps == 0 {
			in.stepStatus = StepRunning
			return nil
		}
		if in.steps > 0 {
			in.steps--
		}

		op, err := in.code.Get()
		if err == errOutOfCode {
			// Fell off the end of the code: implicit STOP.
			in.stepStatus = StepStopped
			return nil
		}
		if err != nil {
			return err
		}

		operation := in.table[op]
		if operation == nil {
			return ErrUndefinedInstruction
		}
		if n := in.stack.Len(); n < operation.minStack {
			return ErrStackUnderflow
		} else if n > operation.maxStack {
			return ErrStackOverflow
		}
		if operation.constantGas > 0 {
			if err := in.gas.Consume(operation.constantGas); err != nil {
				return err
			}
		}
		if err := operation.execute(in); err != nil {
			return err
		}
		if operation.halts {
			return nil
		}
		if !operation.managesPC {
			in.code.Next()
		}
	}
}

// Execute runs code to completion for the given message against the
// host and returns the terminal result. This is the EVMC execute
// surface.
func (vm *VM) Execute(revision Revision, code []byte, msg *Message, host Host) (res Result) {
	if !revision.Supported() {
		return Result{Status: StatusRejected}
	}
	in := &Interpreter{
		revision:   revision,
		msg:        msg,
		host:       host,
		table:      jumpTableFor(revision),
		code:       NewCodeReader(code, msg.CodeHash, 0),
		stack:      NewStack(),
		memory:     NewMemory(),
		gas:        NewGas(msg.Gas),
		stepStatus: StepRunning,
		status:     StatusSuccess,
		steps:      -1,
	}
	defer in.stack.Release()
	defer func() {
		// A panic must not cross the embedding boundary; internal
		// logic never unwinds on purpose.
		if r := recover(); r != nil {
			if vm.cfg.Logger != nil {
				vm.cfg.Logger.Error("interpreter panic", "panic", r)
			}
			res = Result{Status: StatusInternalError}
		}
	}()
	if vm.cfg.Logger != nil {
		vm.cfg.Logger.Debug("execute",
			"revision", revision.String(),
			"codeSize", len(code),
			"gas", msg.Gas,
			"depth", msg.Depth,
			"static", msg.Static())
	}

	err := in.run()
	if err != nil {
		if vm.cfg.Logger != nil {
			vm.cfg.Logger.Debug("execution failed", "status", StatusOf(err).String())
		}
		return Result{Status: StatusOf(err)}
	}
	if in.stepStatus == StepReverted {
		in.status = StatusRevert
	}
	if vm.cfg.Logger != nil {
		vm.cfg.Logger.Debug("execution finished",
			"status", in.status.String(),
			"gasLeft", in.gas.Left(),
			"outputSize", len(in.output))
	}
	return Result{
		Status:    in.status,
		GasLeft:   int64(in.gas.Left()),
		GasRefund: in.refund.Total(),
		Output:    in.output,
	}
}

// StepResult is the outcome of a StepN invocation: the terminal (or
// suspended) status plus the complete resumable machine state.
type StepResult struct {
	StepStatus StepStatus
	Status     StatusCode
	Revision   Revision
	PC         uint64
	GasLeft    int64
	GasRefund  int64
	Output     []byte

	Stack              []uint256.Int // bottom to top
	Memory             []byte
	LastCallReturnData []byte
}

// StepN resumes (or starts) an execution and runs at most steps
// opcodes, exposing the live machine state afterwards. A negative
// steps value removes the budget. This is the EVMC step_n surface.
func (vm *VM) StepN(
	revision Revision,
	code []byte,
	msg *Message,
	host Host,
	stepStatus StepStatus,
	pc uint64,
	gasRefund int64,
	stack []uint256.Int,
	memory []byte,
	lastCallReturnData []byte,
	steps int64,
) (res StepResult) {
	if !revision.Supported() {
		return StepResult{StepStatus: StepFailed, Status: StatusRejected, Revision: revision}
	}
	in := &Interpreter{
		revision:   revision,
		msg:        msg,
		host:       host,
		table:      jumpTableFor(revision),
		code:       NewCodeReader(code, msg.CodeHash, pc),
		stack:      NewStackFrom(stack),
		memory:     NewMemoryFrom(memory),
		gas:        NewGas(msg.Gas),
		refund:     NewRefund(gasRefund),
		returnData: append([]byte(nil), lastCallReturnData...),
		stepStatus: stepStatus,
		status:     StatusSuccess,
		steps:      steps,
	}
	defer func() {
		if r := recover(); r != nil {
			if vm.cfg.Logger != nil {
				vm.cfg.Logger.Error("interpreter panic", "panic", r)
			}
			res = StepResult{StepStatus: StepFailed, Status: StatusInternalError, Revision: revision}
		}
	}()

	err := in.run()
	if err != nil {
		in.stack.Release()
		return StepResult{
			StepStatus: StepFailed,
			Status:     StatusOf(err),
			Revision:   revision,
		}
	}
	if in.stepStatus == StepReverted {
		in.status = StatusRevert
	}
	outStack := append([]uint256.Int(nil), in.stack.Data()...)
	in.stack.Release()
	return StepResult{
		StepStatus:         in.stepStatus,
		Status:             in.status,
		Revision:           revision,
		PC:                 in.code.PC(),
		GasLeft:            int64(in.gas.Left()),
		GasRefund:          in.refund.Total(),
		Output:             in.output,
		Stack:              outStack,
		Memory:             in.memory.Data(),
		LastCallReturnData: in.returnData,
	}
}

// Execute runs code with a default VM. See VM.Execute.
func Execute(revision Revision, code []byte, msg *Message, host Host) Result {
	return defaultVM.Execute(revision, code, msg, host)
}

var defaultVM = NewVM()

// cloneBytes copies host-provided or memory-backed data that must
// survive later memory mutation.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
