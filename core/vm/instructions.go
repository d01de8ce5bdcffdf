package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/crypto"
)

// The handlers below rely on the dispatch loop having validated the
// operation's stack bounds and charged its constant gas. Dynamic costs
// (EXP bytes, copies, memory expansion, warm/cold accesses) are charged
// here.

func opStop(in *Interpreter) error {
	in.stepStatus = StepStopped
	in.status = StatusSuccess
	return nil
}

func opAdd(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.Add(&x, y)
	return nil
}

func opMul(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.Mul(&x, y)
	return nil
}

func opSub(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.Sub(&x, y)
	return nil
}

func opDiv(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.Div(&x, y)
	return nil
}

func opSdiv(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.SDiv(&x, y)
	return nil
}

func opMod(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.Mod(&x, y)
	return nil
}

func opSmod(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.SMod(&x, y)
	return nil
}

func opAddmod(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.pop()
	m := in.stack.peek()
	m.AddMod(&x, &y, m)
	return nil
}

func opMulmod(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.pop()
	m := in.stack.peek()
	m.MulMod(&x, &y, m)
	return nil
}

func opExp(in *Interpreter) error {
	base := in.stack.pop()
	exp := in.stack.peek()
	byteSize := uint64((exp.BitLen() + 7) / 8)
	if err := in.gas.Consume(byteSize * GasExpByte); err != nil {
		return err
	}
	exp.Exp(&base, exp)
	return nil
}

func opSignExtend(in *Interpreter) error {
	k := in.stack.pop()
	x := in.stack.peek()
	x.ExtendSign(x, &k)
	return nil
}

func opLt(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opGt(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opSlt(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opSgt(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opEq(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opIsZero(in *Interpreter) error {
	x := in.stack.peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil
}

func opAnd(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.And(&x, y)
	return nil
}

func opOr(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.Or(&x, y)
	return nil
}

func opXor(in *Interpreter) error {
	x := in.stack.pop()
	y := in.stack.peek()
	y.Xor(&x, y)
	return nil
}

func opNot(in *Interpreter) error {
	x := in.stack.peek()
	x.Not(x)
	return nil
}

func opByte(in *Interpreter) error {
	i := in.stack.pop()
	x := in.stack.peek()
	x.Byte(&i)
	return nil
}

func opSHL(in *Interpreter) error {
	shift := in.stack.pop()
	value := in.stack.peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opSHR(in *Interpreter) error {
	shift := in.stack.pop()
	value := in.stack.peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opSAR(in *Interpreter) error {
	shift := in.stack.pop()
	value := in.stack.peek()
	if shift.LtUint64(256) {
		value.SRsh(value, uint(shift.Uint64()))
	} else if value.Sign() < 0 {
		value.SetAllOne()
	} else {
		value.Clear()
	}
	return nil
}

func opKeccak256(in *Interpreter) error {
	offset := in.stack.pop()
	length := in.stack.peek()
	size, overflow := u64WithOverflow(length)
	if overflow {
		return ErrOutOfGas
	}
	words, err := wordSize(size)
	if err != nil {
		return err
	}
	if err := in.gas.Consume(words * GasKeccak256Word); err != nil {
		return err
	}
	data, err := in.memory.GetSlice(&offset, size, &in.gas)
	if err != nil {
		return err
	}
	hash := crypto.CachedKeccak256(data)
	length.SetBytes32(hash[:])
	return nil
}

func opAddress(in *Interpreter) error {
	addr := addressToWord(in.msg.Recipient)
	in.stack.push(&addr)
	return nil
}

func opBalance(in *Interpreter) error {
	if in.revision < Berlin {
		if err := in.gas.Consume(LegacyAccountAccessCost); err != nil {
			return err
		}
	}
	slot := in.stack.peek()
	addr := wordToAddress(slot)
	if err := in.gas.ConsumeAddressAccessCost(addr, in.revision, in.host); err != nil {
		return err
	}
	balance := in.host.GetBalance(addr)
	slot.SetBytes32(balance[:])
	return nil
}

func opOrigin(in *Interpreter) error {
	origin := addressToWord(in.txContext().Origin)
	in.stack.push(&origin)
	return nil
}

func opCaller(in *Interpreter) error {
	caller := addressToWord(in.msg.Sender)
	in.stack.push(&caller)
	return nil
}

func opCallValue(in *Interpreter) error {
	in.stack.push(&in.msg.Value)
	return nil
}

func opCalldataLoad(in *Interpreter) error {
	offset := in.stack.peek()
	off, overflow := u64WithOverflow(offset)
	input := in.msg.Input
	if overflow || off >= uint64(len(input)) {
		offset.Clear()
		return nil
	}
	var buf [32]byte
	copy(buf[:], input[off:])
	offset.SetBytes32(buf[:])
	return nil
}

func opCalldataSize(in *Interpreter) error {
	in.stack.pushUint64(uint64(len(in.msg.Input)))
	return nil
}

func opCalldataCopy(in *Interpreter) error {
	dest := in.stack.pop()
	offset := in.stack.pop()
	length := in.stack.pop()
	if length.IsZero() {
		return nil
	}
	size, overflow := u64WithOverflow(&length)
	if overflow {
		return ErrInvalidMemoryAccess
	}
	src := sliceWithinBounds(in.msg.Input, &offset, size)
	dst, err := in.memory.GetSlice(&dest, size, &in.gas)
	if err != nil {
		return err
	}
	return copyPadded(dst, src, &in.gas)
}

func opCodeSize(in *Interpreter) error {
	in.stack.pushUint64(uint64(in.code.Len()))
	return nil
}

func opCodeCopy(in *Interpreter) error {
	dest := in.stack.pop()
	offset := in.stack.pop()
	length := in.stack.pop()
	if length.IsZero() {
		return nil
	}
	size, overflow := u64WithOverflow(&length)
	if overflow {
		return ErrOutOfGas
	}
	src := sliceWithinBounds(in.code.Code(), &offset, size)
	dst, err := in.memory.GetSlice(&dest, size, &in.gas)
	if err != nil {
		return err
	}
	return copyPadded(dst, src, &in.gas)
}

func opGasPrice(in *Interpreter) error {
	in.stack.push(&in.txContext().GasPrice)
	return nil
}

func opExtCodeSize(in *Interpreter) error {
	if in.revision < Berlin {
		if err := in.gas.Consume(LegacyAccountAccessCost); err != nil {
			return err
		}
	}
	slot := in.stack.peek()
	addr := wordToAddress(slot)
	if err := in.gas.ConsumeAddressAccessCost(addr, in.revision, in.host); err != nil {
		return err
	}
	slot.SetUint64(in.host.GetCodeSize(addr))
	return nil
}

func opExtCodeCopy(in *Interpreter) error {
	if in.revision < Berlin {
		if err := in.gas.Consume(LegacyAccountAccessCost); err != nil {
			return err
		}
	}
	addrWord := in.stack.pop()
	dest := in.stack.pop()
	offset := in.stack.pop()
	length := in.stack.pop()
	addr := wordToAddress(&addrWord)
	if err := in.gas.ConsumeAddressAccessCost(addr, in.revision, in.host); err != nil {
		return err
	}
	if length.IsZero() {
		return nil
	}
	size, overflow := u64WithOverflow(&length)
	if overflow {
		return ErrOutOfGas
	}
	dst, err := in.memory.GetSlice(&dest, size, &in.gas)
	if err != nil {
		return err
	}
	off, offOverflow := u64WithOverflow(&offset)
	if err := in.gas.ConsumeCopyCost(size); err != nil {
		return err
	}
	written := in.host.CopyCode(addr, off, dst)
	if offOverflow {
		// The code offset cannot address real code; the read is all
		// zero padding.
		clear(dst)
	} else if uint64(written) < size {
		clear(dst[written:])
	}
	return nil
}

func opReturndataSize(in *Interpreter) error {
	in.stack.pushUint64(uint64(len(in.returnData)))
	return nil
}

func opReturndataCopy(in *Interpreter) error {
	dest := in.stack.pop()
	offset := in.stack.pop()
	length := in.stack.pop()
	off, offOverflow := u64WithOverflow(&offset)
	size, sizeOverflow := u64WithOverflow(&length)
	end := off + size
	if offOverflow || sizeOverflow || end < off || end > uint64(len(in.returnData)) {
		return ErrInvalidMemoryAccess
	}
	if size == 0 {
		return nil
	}
	src := in.returnData[off:end]
	dst, err := in.memory.GetSlice(&dest, size, &in.gas)
	if err != nil {
		return err
	}
	return copyPadded(dst, src, &in.gas)
}

func opExtCodeHash(in *Interpreter) error {
	if in.revision < Berlin {
		if err := in.gas.Consume(LegacyAccountAccessCost); err != nil {
			return err
		}
	}
	slot := in.stack.peek()
	addr := wordToAddress(slot)
	if err := in.gas.ConsumeAddressAccessCost(addr, in.revision, in.host); err != nil {
		return err
	}
	hash := in.host.GetCodeHash(addr)
	slot.SetBytes32(hash[:])
	return nil
}

func opBlockhash(in *Interpreter) error {
	num := in.stack.peek()
	idx, overflow := u64WithOverflow(num)
	if overflow {
		num.Clear()
		return nil
	}
	hash := in.host.GetBlockHash(int64(idx))
	num.SetBytes32(hash[:])
	return nil
}

func opCoinbase(in *Interpreter) error {
	coinbase := addressToWord(in.txContext().Coinbase)
	in.stack.push(&coinbase)
	return nil
}

func opTimestamp(in *Interpreter) error {
	in.stack.pushUint64(uint64(in.txContext().Timestamp))
	return nil
}

func opNumber(in *Interpreter) error {
	in.stack.pushUint64(uint64(in.txContext().Number))
	return nil
}

func opPrevRandao(in *Interpreter) error {
	in.stack.push(&in.txContext().PrevRandao)
	return nil
}

func opGasLimit(in *Interpreter) error {
	in.stack.pushUint64(uint64(in.txContext().GasLimit))
	return nil
}

func opChainID(in *Interpreter) error {
	in.stack.push(&in.txContext().ChainID)
	return nil
}

func opSelfBalance(in *Interpreter) error {
	if in.msg.Recipient.IsZero() {
		in.stack.pushUint64(0)
		return nil
	}
	balance := in.host.GetBalance(in.msg.Recipient)
	w := hashToWord(balance)
	in.stack.push(&w)
	return nil
}

func opBaseFee(in *Interpreter) error {
	in.stack.push(&in.txContext().BaseFee)
	return nil
}

func opBlobHash(in *Interpreter) error {
	idx := in.stack.peek()
	i, overflow := u64WithOverflow(idx)
	hashes := in.txContext().BlobHashes
	if overflow || i >= uint64(len(hashes)) {
		idx.Clear()
		return nil
	}
	idx.SetBytes32(hashes[i][:])
	return nil
}

func opBlobBaseFee(in *Interpreter) error {
	in.stack.push(&in.txContext().BlobBaseFee)
	return nil
}

func opPop(in *Interpreter) error {
	in.stack.pop()
	return nil
}

func opMload(in *Interpreter) error {
	offset := in.stack.peek()
	word, err := in.memory.GetWord(offset, &in.gas)
	if err != nil {
		return err
	}
	*offset = word
	return nil
}

func opMstore(in *Interpreter) error {
	offset := in.stack.pop()
	value := in.stack.pop()
	dst, err := in.memory.GetSlice(&offset, 32, &in.gas)
	if err != nil {
		return err
	}
	b32 := value.Bytes32()
	copy(dst, b32[:])
	return nil
}

func opMstore8(in *Interpreter) error {
	offset := in.stack.pop()
	value := in.stack.pop()
	return in.memory.SetByte(&offset, byte(value.Uint64()), &in.gas)
}

func opSload(in *Interpreter) error {
	if in.revision < Berlin {
		if err := in.gas.Consume(LegacySloadCost); err != nil {
			return err
		}
	}
	slot := in.stack.peek()
	key := wordToHash(slot)
	addr := in.msg.Recipient
	if in.revision >= Berlin {
		if in.host.AccessStorage(addr, key) == ColdAccess {
			if err := in.gas.Consume(ColdSloadCost); err != nil {
				return err
			}
		} else {
			if err := in.gas.Consume(WarmStorageReadCost); err != nil {
				return err
			}
		}
	}
	value := in.host.GetStorage(addr, key)
	slot.SetBytes32(value[:])
	return nil
}

// sstoreGasTable returns the (dyn1, dyn2, dyn3, r1, r2, r3) tuple of
// SSTORE dynamic gas charges and refund deltas for a revision.
func sstoreGasTable(rev Revision) (dyn1, dyn2, dyn3 uint64, r1, r2, r3 int64) {
	switch {
	case rev >= London:
		return 100, 2900, 20000, 5000 - 2100 - 100, 4800, 20000 - 100
	case rev >= Berlin:
		return 100, 2900, 20000, 5000 - 2100 - 100, 15000, 20000 - 100
	case rev >= Istanbul:
		return 800, 5000, 20000, 4200, 15000, 19200
	default:
		return 5000, 5000, 20000, 0, 0, 0
	}
}

func opSstore(in *Interpreter) error {
	if in.staticViolation() {
		return ErrStaticModeViolation
	}
	if in.revision >= Istanbul && in.gas.Left() <= SstoreSentryGas {
		return ErrOutOfGas
	}
	keyWord := in.stack.pop()
	valueWord := in.stack.pop()
	key := wordToHash(&keyWord)
	value := wordToHash(&valueWord)
	addr := in.msg.Recipient

	dyn1, dyn2, dyn3, r1, r2, r3 := sstoreGasTable(in.revision)

	var (
		dynGas       uint64
		refundChange int64
	)
	switch in.host.SetStorage(addr, key, value) {
	case StorageAssigned:
		dynGas = dyn1
	case StorageAdded:
		dynGas = dyn3
	case StorageDeleted:
		dynGas, refundChange = dyn2, r2
	case StorageModified:
		dynGas = dyn2
	case StorageDeletedAdded:
		dynGas, refundChange = dyn1, -r2
	case StorageModifiedDeleted:
		dynGas, refundChange = dyn1, r2
	case StorageDeletedRestored:
		dynGas, refundChange = dyn1, -r2+r1
	case StorageAddedDeleted:
		dynGas, refundChange = dyn1, r3
	case StorageModifiedRestored:
		dynGas, refundChange = dyn1, r1
	}
	if in.revision >= Berlin && in.host.AccessStorage(addr, key) == ColdAccess {
		dynGas += ColdSloadCost
	}
	if err := in.gas.Consume(dynGas); err != nil {
		return err
	}
	return in.refund.Add(refundChange)
}

func opJump(in *Interpreter) error {
	dest := in.stack.pop()
	return in.code.TryJump(&dest)
}

func opJumpi(in *Interpreter) error {
	dest := in.stack.pop()
	cond := in.stack.pop()
	if cond.IsZero() {
		in.code.Next()
		return nil
	}
	return in.code.TryJump(&dest)
}

func opPc(in *Interpreter) error {
	in.stack.pushUint64(in.code.PC())
	return nil
}

func opMsize(in *Interpreter) error {
	in.stack.pushUint64(in.memory.Len())
	return nil
}

func opGas(in *Interpreter) error {
	in.stack.pushUint64(in.gas.Left())
	return nil
}

func opJumpdest(in *Interpreter) error {
	return nil
}

func opTload(in *Interpreter) error {
	slot := in.stack.peek()
	key := wordToHash(slot)
	value := in.host.GetTransientStorage(in.msg.Recipient, key)
	slot.SetBytes32(value[:])
	return nil
}

func opTstore(in *Interpreter) error {
	if in.staticViolation() {
		return ErrStaticModeViolation
	}
	key := in.stack.pop()
	value := in.stack.pop()
	in.host.SetTransientStorage(in.msg.Recipient, wordToHash(&key), wordToHash(&value))
	return nil
}

func opMcopy(in *Interpreter) error {
	dest := in.stack.pop()
	src := in.stack.pop()
	length := in.stack.pop()
	if length.IsZero() {
		return nil
	}
	return in.memory.CopyWithin(&src, &dest, &length, &in.gas)
}

func opPush0(in *Interpreter) error {
	var zero uint256.Int
	in.stack.push(&zero)
	return nil
}

// makePush builds the handler for PUSH1..PUSH32, which reads its n
// immediate bytes and manages the program counter itself.
func makePush(n int) executionFunc {
	return func(in *Interpreter) error {
		in.code.Next()
		v := in.code.GetPushData(n)
		in.stack.push(&v)
		return nil
	}
}

// makeDup builds the handler for DUP1..DUP16.
func makeDup(n int) executionFunc {
	return func(in *Interpreter) error {
		in.stack.dup(n)
		return nil
	}
}

// makeSwap builds the handler for SWAP1..SWAP16.
func makeSwap(n int) executionFunc {
	return func(in *Interpreter) error {
		in.stack.swap(n)
		return nil
	}
}

func opReturn(in *Interpreter) error {
	offset := in.stack.pop()
	length := in.stack.pop()
	size, overflow := u64WithOverflow(&length)
	if overflow {
		return ErrOutOfGas
	}
	data, err := in.memory.GetSlice(&offset, size, &in.gas)
	if err != nil {
		return err
	}
	in.output = cloneBytes(data)
	in.stepStatus = StepReturned
	in.code.Next()
	return nil
}

func opRevert(in *Interpreter) error {
	offset := in.stack.pop()
	length := in.stack.pop()
	size, overflow := u64WithOverflow(&length)
	if overflow {
		return ErrOutOfGas
	}
	data, err := in.memory.GetSlice(&offset, size, &in.gas)
	if err != nil {
		return err
	}
	in.output = cloneBytes(data)
	in.stepStatus = StepReverted
	in.status = StatusRevert
	in.code.Next()
	return nil
}

func opInvalid(in *Interpreter) error {
	return ErrInvalidInstruction
}

// sliceWithinBounds clips (offset, length) against data, returning the
// in-range prefix. Out-of-range reads resolve to an empty slice; the
// caller zero-pads.
func sliceWithinBounds(data []byte, offset *uint256.Int, length uint64) []byte {
	if length == 0 {
		return nil
	}
	off, overflow := u64WithOverflow(offset)
	if overflow || off >= uint64(len(data)) {
		return nil
	}
	end := off + length
	if end < off || end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return data[off:end]
}

// copyPadded charges the copy cost for dst, copies src into its front
// and zero-fills the remainder.
func copyPadded(dst, src []byte, gas *Gas) error {
	if err := gas.ConsumeCopyCost(uint64(len(dst))); err != nil {
		return err
	}
	n := copy(dst, src)
	clear(dst[n:])
	return nil
}
