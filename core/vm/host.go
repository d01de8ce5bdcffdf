package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/types"
)

// AccessStatus is the EIP-2929 warm/cold classification of an account
// or storage slot access. Values match evmc_access_status.
type AccessStatus int32

const (
	ColdAccess AccessStatus = 0
	WarmAccess AccessStatus = 1
)

// StorageStatus classifies the effect of an SSTORE relative to the
// slot's original and current values. The nine values drive the
// dynamic gas and refund tables. Values match evmc_storage_status.
type StorageStatus int32

const (
	StorageAssigned         StorageStatus = 0 // X -> Y -> Z, all distinct combinations not below
	StorageAdded            StorageStatus = 1 // 0 -> 0 -> Z
	StorageDeleted          StorageStatus = 2 // X -> X -> 0
	StorageModified         StorageStatus = 3 // X -> X -> Z
	StorageDeletedAdded     StorageStatus = 4 // X -> 0 -> Z
	StorageModifiedDeleted  StorageStatus = 5 // X -> Y -> 0
	StorageDeletedRestored  StorageStatus = 6 // X -> 0 -> X
	StorageAddedDeleted     StorageStatus = 7 // 0 -> Y -> 0
	StorageModifiedRestored StorageStatus = 8 // X -> Y -> X
)

// CallKind is the kind of an execution message. Values match
// evmc_call_kind.
type CallKind int32

const (
	Call         CallKind = 0
	DelegateCall CallKind = 1
	CallCode     CallKind = 2
	Create       CallKind = 3
	Create2      CallKind = 4
	EofCreate    CallKind = 5
)

// StaticFlag marks a message executing in static mode (bit 0 of the
// message flags, matching EVMC_STATIC).
const StaticFlag uint32 = 1

// Message describes one execution request: the call or create being
// run, who sent it, with how much gas and value, and on which code.
type Message struct {
	Kind  CallKind
	Flags uint32
	Depth int32
	Gas   int64

	Recipient types.Address
	Sender    types.Address
	Input     []byte
	Value     uint256.Int

	// Create2Salt is only meaningful for Kind == Create2.
	Create2Salt types.Hash

	// CodeAddress is the account whose code runs (differs from
	// Recipient for DELEGATECALL and CALLCODE).
	CodeAddress types.Address

	// Code optionally carries the code to execute; CodeHash, when
	// non-zero, is its Keccak-256 and keys the analysis cache.
	Code     []byte
	CodeHash types.Hash
}

// Static reports whether the message executes in static mode.
func (m *Message) Static() bool {
	return m.Flags&StaticFlag != 0
}

// Result is the outcome of an execution or of a nested call dispatched
// through the host.
type Result struct {
	Status    StatusCode
	GasLeft   int64
	GasRefund int64
	Output    []byte

	// CreateAddress is the address of the deployed contract for a
	// successful create message.
	CreateAddress types.Address
}

// Initcode is a transaction-level initcode entry (TXCREATE plumbing):
// the code together with its Keccak-256.
type Initcode struct {
	Hash types.Hash
	Code []byte
}

// TxContext is the transaction/block context snapshot, fetched from
// the host on first use and valid for the whole execution.
type TxContext struct {
	GasPrice   uint256.Int
	Origin     types.Address
	Coinbase   types.Address
	Number     int64
	Timestamp  int64
	GasLimit   int64
	PrevRandao uint256.Int
	ChainID    uint256.Int
	BaseFee    uint256.Int

	// EIP-4844 / EIP-7516 blob data.
	BlobBaseFee uint256.Int
	BlobHashes  []types.Hash

	// Transaction initcodes (TXCREATE).
	Initcodes []Initcode
}

// Host is the embedder-provided callback set giving the interpreter
// access to blockchain state. The interpreter only ever calls these
// methods; ownership and internal synchronization stay with the
// embedder.
type Host interface {
	// GetTxContext returns the transaction context snapshot.
	GetTxContext() TxContext

	// AccountExists reports whether an account exists.
	AccountExists(addr types.Address) bool

	// GetStorage reads a storage slot; absent slots read as zero.
	GetStorage(addr types.Address, key types.Hash) types.Hash

	// SetStorage writes a storage slot and classifies the effect.
	SetStorage(addr types.Address, key, value types.Hash) StorageStatus

	// GetBalance returns the balance of an account.
	GetBalance(addr types.Address) types.Hash

	// GetCodeSize returns the size of an account's code in bytes.
	GetCodeSize(addr types.Address) uint64

	// GetCodeHash returns the Keccak-256 of an account's code.
	GetCodeHash(addr types.Address) types.Hash

	// CopyCode copies the account's code starting at codeOffset into
	// buf, returning the number of bytes written (at most len(buf)).
	// The caller zero-fills anything beyond the written prefix.
	CopyCode(addr types.Address, codeOffset uint64, buf []byte) int

	// Selfdestruct schedules the destruction of addr, sending its
	// balance to beneficiary. It reports whether this is the first
	// destruction of addr in the current transaction.
	Selfdestruct(addr, beneficiary types.Address) bool

	// CallContext executes a nested message and returns its result.
	CallContext(msg *Message) Result

	// GetBlockHash returns the hash of the given block number, or
	// zero if unavailable.
	GetBlockHash(number int64) types.Hash

	// EmitLog records a log event.
	EmitLog(addr types.Address, data []byte, topics []types.Hash)

	// AccessAccount records an account access and reports whether it
	// was warm or cold.
	AccessAccount(addr types.Address) AccessStatus

	// AccessStorage records a storage slot access and reports whether
	// it was warm or cold.
	AccessStorage(addr types.Address, key types.Hash) AccessStatus

	// GetTransientStorage reads a transient storage slot (EIP-1153).
	GetTransientStorage(addr types.Address, key types.Hash) types.Hash

	// SetTransientStorage writes a transient storage slot (EIP-1153).
	SetTransientStorage(addr types.Address, key, value types.Hash)
}
