package vm

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/types"
)

// makeLog builds the handler for LOG0..LOG4. The 375 base cost is the
// operation's constant gas; topics and data bytes are charged here.
func makeLog(topicCount int) executionFunc {
	return func(in *Interpreter) error {
		if in.staticViolation() {
			return ErrStaticModeViolation
		}
		offset := in.stack.pop()
		length := in.stack.pop()
		topics := make([]types.Hash, topicCount)
		for i := 0; i < topicCount; i++ {
			topic := in.stack.pop()
			topics[i] = wordToHash(&topic)
		}
		size, sizeOverflow := u64WithOverflow(&length)
		if sizeOverflow || size > math.MaxUint64/GasLogData {
			return ErrOutOfGas
		}
		cost := uint64(topicCount)*GasLogTopic + size*GasLogData
		if cost < size*GasLogData {
			return ErrOutOfGas
		}
		if err := in.gas.Consume(cost); err != nil {
			return err
		}
		data, err := in.memory.GetSlice(&offset, size, &in.gas)
		if err != nil {
			return err
		}
		in.host.EmitLog(in.msg.Recipient, data, topics)
		return nil
	}
}

// doCreate implements CREATE and CREATE2. The 32000 base cost is the
// operation's constant gas.
func doCreate(in *Interpreter, create2 bool) error {
	if in.staticViolation() {
		return ErrStaticModeViolation
	}
	value := in.stack.pop()
	offset := in.stack.pop()
	length := in.stack.pop()
	var salt uint256.Int
	if create2 {
		salt = in.stack.pop()
	}
	size, overflow := u64WithOverflow(&length)
	if overflow {
		return ErrOutOfGas
	}
	words, err := wordSize(size)
	if err != nil {
		return err
	}
	if in.revision >= Shanghai {
		if size > MaxInitCodeSize {
			return ErrOutOfGas
		}
		if err := in.gas.Consume(words * InitCodeWordGas); err != nil {
			return err
		}
	}
	if create2 {
		// CREATE2 hashes the init code to derive the address.
		if err := in.gas.Consume(words * GasKeccak256Word); err != nil {
			return err
		}
	}
	initCode, err := in.memory.GetSlice(&offset, size, &in.gas)
	if err != nil {
		return err
	}

	balance := hashToWord(in.host.GetBalance(in.msg.Recipient))
	if value.Gt(&balance) {
		in.returnData = nil
		in.stack.pushUint64(0)
		return nil
	}

	// All but one 64th of the remaining gas goes to the init code.
	gasLimit := in.gas.Left() - in.gas.Left()/64
	if err := in.gas.Consume(gasLimit); err != nil {
		return err
	}

	kind := Create
	if create2 {
		kind = Create2
	}
	msg := &Message{
		Kind:        kind,
		Flags:       in.msg.Flags,
		Depth:       in.msg.Depth + 1,
		Gas:         int64(gasLimit),
		Sender:      in.msg.Recipient,
		Input:       initCode,
		Value:       value,
		Create2Salt: wordToHash(&salt),
	}
	result := in.host.CallContext(msg)

	if err := in.gas.Add(result.GasLeft); err != nil {
		return err
	}
	if err := in.refund.Add(result.GasRefund); err != nil {
		return err
	}

	if result.Status == StatusSuccess {
		if result.CreateAddress.IsZero() {
			return ErrInternal
		}
		in.returnData = nil
		addr := addressToWord(result.CreateAddress)
		in.stack.push(&addr)
	} else {
		in.returnData = cloneBytes(result.Output)
		in.stack.pushUint64(0)
	}
	return nil
}

func opCreate(in *Interpreter) error  { return doCreate(in, false) }
func opCreate2(in *Interpreter) error { return doCreate(in, true) }

// doCall implements CALL and CALLCODE.
func doCall(in *Interpreter, callCode bool) error {
	if in.revision < Berlin {
		if err := in.gas.Consume(LegacyCallCost); err != nil {
			return err
		}
	}
	gasWord := in.stack.pop()
	addrWord := in.stack.pop()
	value := in.stack.pop()
	argsOffset := in.stack.pop()
	argsLength := in.stack.pop()
	retOffset := in.stack.pop()
	retLength := in.stack.pop()

	if !callCode && !value.IsZero() && in.staticViolation() {
		return ErrStaticModeViolation
	}

	addr := wordToAddress(&addrWord)
	argsLen, argsOverflow := u64WithOverflow(&argsLength)
	retLen, retOverflow := u64WithOverflow(&retLength)
	if argsOverflow || retOverflow {
		return ErrOutOfGas
	}

	if err := in.gas.ConsumeAddressAccessCost(addr, in.revision, in.host); err != nil {
		return err
	}
	// Touch the return region first so its expansion is charged even
	// when the call itself aborts later.
	if _, err := in.memory.GetSlice(&retOffset, retLen, &in.gas); err != nil {
		return err
	}
	input, err := in.memory.GetSlice(&argsOffset, argsLen, &in.gas)
	if err != nil {
		return err
	}
	if err := in.gas.ConsumePositiveValueCost(&value); err != nil {
		return err
	}
	if !callCode {
		if err := in.gas.ConsumeValueToEmptyAccountCost(&value, addr, in.host); err != nil {
			return err
		}
	}

	limit := in.gas.Left() - in.gas.Left()/64
	endowment := u64Saturating(&gasWord)
	if in.revision >= TangerineWhistle {
		// Cap at all but one 64th of the gas left.
		endowment = min(endowment, limit)
	}
	var stipend uint64
	if !value.IsZero() {
		stipend = CallStipend
	}
	if err := in.gas.Add(int64(stipend)); err != nil {
		return err
	}

	balance := hashToWord(in.host.GetBalance(in.msg.Recipient))
	if value.Gt(&balance) {
		in.returnData = nil
		in.stack.pushUint64(0)
		return nil
	}

	msg := &Message{
		Flags:       in.msg.Flags,
		Depth:       in.msg.Depth + 1,
		Gas:         int64(endowment + stipend),
		Sender:      in.msg.Recipient,
		Input:       input,
		Value:       value,
		CodeAddress: addr,
	}
	if callCode {
		msg.Kind = CallCode
		msg.Recipient = in.msg.Recipient
	} else {
		msg.Kind = Call
		msg.Recipient = addr
	}
	result := in.host.CallContext(msg)

	in.returnData = cloneBytes(result.Output)
	dst, err := in.memory.GetSlice(&retOffset, retLen, &in.gas)
	if err != nil {
		return err
	}
	copy(dst, in.returnData)

	if err := in.gas.Add(result.GasLeft); err != nil {
		return err
	}
	// Settle the endowment and stipend that were notionally forwarded.
	if err := in.gas.Consume(endowment); err != nil {
		return err
	}
	if err := in.gas.Consume(stipend); err != nil {
		return err
	}
	if err := in.refund.Add(result.GasRefund); err != nil {
		return err
	}

	in.stack.pushBool(result.Status == StatusSuccess)
	return nil
}

func opCall(in *Interpreter) error     { return doCall(in, false) }
func opCallCode(in *Interpreter) error { return doCall(in, true) }

// doStaticDelegateCall implements DELEGATECALL and STATICCALL, which
// share a stack layout (no value operand).
func doStaticDelegateCall(in *Interpreter, delegate bool) error {
	if in.revision < Berlin {
		if err := in.gas.Consume(LegacyCallCost); err != nil {
			return err
		}
	}
	gasWord := in.stack.pop()
	addrWord := in.stack.pop()
	argsOffset := in.stack.pop()
	argsLength := in.stack.pop()
	retOffset := in.stack.pop()
	retLength := in.stack.pop()

	addr := wordToAddress(&addrWord)
	argsLen, argsOverflow := u64WithOverflow(&argsLength)
	retLen, retOverflow := u64WithOverflow(&retLength)
	if argsOverflow || retOverflow {
		return ErrOutOfGas
	}

	if err := in.gas.ConsumeAddressAccessCost(addr, in.revision, in.host); err != nil {
		return err
	}
	if _, err := in.memory.GetSlice(&retOffset, retLen, &in.gas); err != nil {
		return err
	}
	input, err := in.memory.GetSlice(&argsOffset, argsLen, &in.gas)
	if err != nil {
		return err
	}

	limit := in.gas.Left() - in.gas.Left()/64
	endowment := u64Saturating(&gasWord)
	if in.revision >= TangerineWhistle {
		endowment = min(endowment, limit)
	}

	msg := &Message{
		Depth:       in.msg.Depth + 1,
		Gas:         int64(endowment),
		Input:       input,
		CodeAddress: addr,
	}
	if delegate {
		// DELEGATECALL runs the callee's code in the caller's frame:
		// same recipient, same sender, same value.
		msg.Kind = DelegateCall
		msg.Flags = in.msg.Flags
		msg.Recipient = in.msg.Recipient
		msg.Sender = in.msg.Sender
		msg.Value = in.msg.Value
	} else {
		msg.Kind = Call
		msg.Flags = StaticFlag
		msg.Recipient = addr
		msg.Sender = in.msg.Recipient
	}
	result := in.host.CallContext(msg)

	in.returnData = cloneBytes(result.Output)
	dst, err := in.memory.GetSlice(&retOffset, retLen, &in.gas)
	if err != nil {
		return err
	}
	copy(dst, in.returnData)

	if err := in.gas.Add(result.GasLeft); err != nil {
		return err
	}
	if err := in.gas.Consume(endowment); err != nil {
		return err
	}
	if err := in.refund.Add(result.GasRefund); err != nil {
		return err
	}

	in.stack.pushBool(result.Status == StatusSuccess)
	return nil
}

func opDelegateCall(in *Interpreter) error { return doStaticDelegateCall(in, true) }
func opStaticCall(in *Interpreter) error   { return doStaticDelegateCall(in, false) }

// opSelfdestruct schedules the destruction of the executing account.
// The 5000 base cost is the operation's constant gas.
func opSelfdestruct(in *Interpreter) error {
	if in.staticViolation() {
		return ErrStaticModeViolation
	}
	addrWord := in.stack.pop()
	beneficiary := wordToAddress(&addrWord)

	if in.revision >= Berlin && in.host.AccessAccount(beneficiary) == ColdAccess {
		if err := in.gas.Consume(ColdAccountAccessCost); err != nil {
			return err
		}
	}

	balance := hashToWord(in.host.GetBalance(in.msg.Recipient))
	if !balance.IsZero() && !in.host.AccountExists(beneficiary) {
		if err := in.gas.Consume(CallNewAccountCost); err != nil {
			return err
		}
	}

	destructed := in.host.Selfdestruct(in.msg.Recipient, beneficiary)
	if in.revision <= Berlin && destructed {
		if err := in.refund.Add(SelfdestructRefund); err != nil {
			return err
		}
	}

	in.stepStatus = StepStopped
	in.code.Next()
	return nil
}
