package vm

import (
	"github.com/eth2030/evmcore/core/types"
)

// mockAccount is the in-memory account state of the test host.
type mockAccount struct {
	exists   bool
	balance  types.Hash
	code     []byte
	codeHash types.Hash

	// original is the slot state at transaction start; storage is the
	// current state. Both feed the StorageStatus classification.
	original map[types.Hash]types.Hash
	storage  map[types.Hash]types.Hash
}

// emittedLog records one EmitLog call.
type emittedLog struct {
	addr   types.Address
	data   []byte
	topics []types.Hash
}

// selfdestructRecord records one Selfdestruct call.
type selfdestructRecord struct {
	addr        types.Address
	beneficiary types.Address
}

// mockHost is a scriptable in-memory Host for interpreter tests.
type mockHost struct {
	txCtx    TxContext
	accounts map[types.Address]*mockAccount

	transient map[types.Address]map[types.Hash]types.Hash

	warmAccounts map[types.Address]bool
	warmSlots    map[types.Address]map[types.Hash]bool

	logs          []emittedLog
	selfdestructs []selfdestructRecord
	calls         []Message

	// callResults are returned by CallContext in order; when
	// exhausted, a zeroed failure result is returned.
	callResults []Result

	// selfdestructResult is what Selfdestruct reports.
	selfdestructResult bool

	blockHashes map[int64]types.Hash
}

var _ Host = (*mockHost)(nil)

func newMockHost() *mockHost {
	return &mockHost{
		accounts:     make(map[types.Address]*mockAccount),
		transient:    make(map[types.Address]map[types.Hash]types.Hash),
		warmAccounts: make(map[types.Address]bool),
		warmSlots:    make(map[types.Address]map[types.Hash]bool),
		blockHashes:  make(map[int64]types.Hash),
	}
}

func (h *mockHost) account(addr types.Address) *mockAccount {
	acc, ok := h.accounts[addr]
	if !ok {
		acc = &mockAccount{
			original: make(map[types.Hash]types.Hash),
			storage:  make(map[types.Hash]types.Hash),
		}
		h.accounts[addr] = acc
	}
	return acc
}

// setBalance is a test helper installing an existing account with the
// given balance.
func (h *mockHost) setBalance(addr types.Address, balance uint64) {
	acc := h.account(addr)
	acc.exists = true
	acc.balance = types.Hash{}
	for i := 0; i < 8; i++ {
		acc.balance[31-i] = byte(balance >> (8 * i))
	}
}

// seedStorage installs a slot with identical original and current
// values.
func (h *mockHost) seedStorage(addr types.Address, key, value types.Hash) {
	acc := h.account(addr)
	acc.original[key] = value
	acc.storage[key] = value
}

func (h *mockHost) GetTxContext() TxContext { return h.txCtx }

func (h *mockHost) AccountExists(addr types.Address) bool {
	acc, ok := h.accounts[addr]
	return ok && acc.exists
}

func (h *mockHost) GetStorage(addr types.Address, key types.Hash) types.Hash {
	return h.account(addr).storage[key]
}

func (h *mockHost) SetStorage(addr types.Address, key, value types.Hash) StorageStatus {
	acc := h.account(addr)
	original := acc.original[key]
	current := acc.storage[key]
	acc.storage[key] = value
	return classifyStorage(original, current, value)
}

// classifyStorage maps the (original, current, new) value triple to the
// EVMC StorageStatus driving SSTORE pricing.
func classifyStorage(x, y, z types.Hash) StorageStatus {
	var zero types.Hash
	if y == z {
		return StorageAssigned
	}
	if x == y {
		if x == zero {
			return StorageAdded
		}
		if z == zero {
			return StorageDeleted
		}
		return StorageModified
	}
	if x == zero {
		if z == zero {
			return StorageAddedDeleted
		}
		return StorageAssigned
	}
	if y == zero {
		if z == x {
			return StorageDeletedRestored
		}
		return StorageDeletedAdded
	}
	if z == zero {
		return StorageModifiedDeleted
	}
	if z == x {
		return StorageModifiedRestored
	}
	return StorageAssigned
}

func (h *mockHost) GetBalance(addr types.Address) types.Hash {
	return h.account(addr).balance
}

func (h *mockHost) GetCodeSize(addr types.Address) uint64 {
	return uint64(len(h.account(addr).code))
}

func (h *mockHost) GetCodeHash(addr types.Address) types.Hash {
	return h.account(addr).codeHash
}

func (h *mockHost) CopyCode(addr types.Address, codeOffset uint64, buf []byte) int {
	code := h.account(addr).code
	if codeOffset >= uint64(len(code)) {
		return 0
	}
	return copy(buf, code[codeOffset:])
}

func (h *mockHost) Selfdestruct(addr, beneficiary types.Address) bool {
	h.selfdestructs = append(h.selfdestructs, selfdestructRecord{addr, beneficiary})
	return h.selfdestructResult
}

func (h *mockHost) CallContext(msg *Message) Result {
	h.calls = append(h.calls, *msg)
	if len(h.callResults) == 0 {
		return Result{Status: StatusFailure}
	}
	res := h.callResults[0]
	h.callResults = h.callResults[1:]
	return res
}

func (h *mockHost) GetBlockHash(number int64) types.Hash {
	return h.blockHashes[number]
}

func (h *mockHost) EmitLog(addr types.Address, data []byte, topics []types.Hash) {
	h.logs = append(h.logs, emittedLog{
		addr:   addr,
		data:   append([]byte(nil), data...),
		topics: append([]types.Hash(nil), topics...),
	})
}

func (h *mockHost) AccessAccount(addr types.Address) AccessStatus {
	if h.warmAccounts[addr] {
		return WarmAccess
	}
	h.warmAccounts[addr] = true
	return ColdAccess
}

func (h *mockHost) AccessStorage(addr types.Address, key types.Hash) AccessStatus {
	slots, ok := h.warmSlots[addr]
	if !ok {
		slots = make(map[types.Hash]bool)
		h.warmSlots[addr] = slots
	}
	if slots[key] {
		return WarmAccess
	}
	slots[key] = true
	return ColdAccess
}

func (h *mockHost) GetTransientStorage(addr types.Address, key types.Hash) types.Hash {
	return h.transient[addr][key]
}

func (h *mockHost) SetTransientStorage(addr types.Address, key, value types.Hash) {
	slots, ok := h.transient[addr]
	if !ok {
		slots = make(map[types.Hash]types.Hash)
		h.transient[addr] = slots
	}
	slots[key] = value
}
