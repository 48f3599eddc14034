// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package evm bridges the runtime's world state to the external EVM
// interpreter: a journaled StateDB implementation the interpreter mutates
// during a block, and the executor that drives one transaction through it.
package evm

import (
	"github.com/holiman/uint256"
	gethcommon "github.com/luxfi/geth/common"
	gethstate "github.com/luxfi/geth/core/state"
	"github.com/luxfi/geth/core/stateless"
	"github.com/luxfi/geth/core/tracing"
	gethtypes "github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/params"
	trieutils "github.com/luxfi/geth/trie/utils"

	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
)

// journalAccount is one account's working copy inside a block under
// execution.
type journalAccount struct {
	balance        *uint256.Int
	nonce          uint64
	codeHash       gethcommon.Hash
	code           []byte
	exists         bool
	created        bool // created during this block
	createdThisTx  bool
	selfDestructed bool
	touched        bool
}

func (a *journalAccount) copy() *journalAccount {
	cp := *a
	cp.balance = new(uint256.Int).Set(a.balance)
	return &cp
}

// Journal implements the EVM's StateDB interface over a read-only base
// state. All writes stay in the journal for the duration of one block;
// BlockDiff converts them into the state diff the miner commits.
//
// EVM snapshots copy the dirty overlay, which stays small for the
// transaction sizes a development chain sees.
type Journal struct {
	base state.Reader

	accounts map[gethcommon.Address]*journalAccount
	storage  map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash
	// committed caches the base state's value per slot, for
	// GetCommittedState and for diff extraction.
	committed map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash

	transient map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash
	refund    uint64

	accessAddrs map[gethcommon.Address]bool
	accessSlots map[gethcommon.Address]map[gethcommon.Hash]bool

	logs    []*gethtypes.Log
	txLogs  []*gethtypes.Log
	txHash  gethcommon.Hash
	txIndex int

	snapshots  []*journalSnapshot
	nextSnapID int
}

type journalSnapshot struct {
	id          int
	accounts    map[gethcommon.Address]*journalAccount
	storage     map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash
	transient   map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash
	refund      uint64
	accessAddrs map[gethcommon.Address]bool
	accessSlots map[gethcommon.Address]map[gethcommon.Hash]bool
	logCount    int
	txLogCount  int
}

// NewJournal opens a journal over the given base state.
func NewJournal(base state.Reader) *Journal {
	return &Journal{
		base:        base,
		accounts:    make(map[gethcommon.Address]*journalAccount),
		storage:     make(map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash),
		committed:   make(map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash),
		transient:   make(map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash),
		accessAddrs: make(map[gethcommon.Address]bool),
		accessSlots: make(map[gethcommon.Address]map[gethcommon.Hash]bool),
	}
}

// SetTxContext starts a new transaction inside the block: per-transaction
// log collection, transient storage, and creation tracking reset.
func (j *Journal) SetTxContext(hash gethcommon.Hash, index int) {
	j.txHash = hash
	j.txIndex = index
	j.txLogs = nil
	j.transient = make(map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash)
	for _, acct := range j.accounts {
		acct.createdThisTx = false
	}
}

// TxLogs returns the logs emitted by the current transaction.
func (j *Journal) TxLogs() []*gethtypes.Log { return j.txLogs }

// loadAccount pulls addr into the journal, reading through to the base
// state on first touch. A nil base account is recorded as non-existent.
func (j *Journal) loadAccount(addr gethcommon.Address) *journalAccount {
	if acct, ok := j.accounts[addr]; ok {
		return acct
	}
	acct := &journalAccount{balance: new(uint256.Int), codeHash: gethcommon.Hash(types.EmptyCodeHash)}
	base, err := j.base.Account(addr)
	if err == nil && base != nil {
		acct.exists = true
		acct.nonce = base.Nonce
		if base.Balance != nil {
			acct.balance.Set(base.Balance)
		}
		acct.codeHash = gethcommon.Hash(base.CodeHash)
	}
	j.accounts[addr] = acct
	return acct
}

func (j *Journal) CreateAccount(addr gethcommon.Address) {
	prev := j.loadAccount(addr)
	acct := &journalAccount{
		balance:  new(uint256.Int).Set(prev.balance),
		codeHash: gethcommon.Hash(types.EmptyCodeHash),
		exists:   true,
		created:  true,
		touched:  true,
	}
	j.accounts[addr] = acct
	delete(j.storage, addr)
}

func (j *Journal) CreateContract(addr gethcommon.Address) {
	acct := j.loadAccount(addr)
	acct.created = true
	acct.createdThisTx = true
	acct.exists = true
	acct.touched = true
}

func (j *Journal) SubBalance(addr gethcommon.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	acct := j.loadAccount(addr)
	prev := *acct.balance
	acct.balance.Sub(acct.balance, amount)
	acct.exists = true
	acct.touched = true
	return prev
}

func (j *Journal) AddBalance(addr gethcommon.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	acct := j.loadAccount(addr)
	prev := *acct.balance
	acct.balance.Add(acct.balance, amount)
	acct.exists = true
	acct.touched = true
	return prev
}

func (j *Journal) GetBalance(addr gethcommon.Address) *uint256.Int {
	return new(uint256.Int).Set(j.loadAccount(addr).balance)
}

func (j *Journal) GetNonce(addr gethcommon.Address) uint64 {
	return j.loadAccount(addr).nonce
}

func (j *Journal) SetNonce(addr gethcommon.Address, nonce uint64, _ tracing.NonceChangeReason) {
	acct := j.loadAccount(addr)
	acct.nonce = nonce
	acct.exists = true
	acct.touched = true
}

func (j *Journal) GetCodeHash(addr gethcommon.Address) gethcommon.Hash {
	acct := j.loadAccount(addr)
	if !acct.exists {
		return gethcommon.Hash{}
	}
	return acct.codeHash
}

func (j *Journal) GetCode(addr gethcommon.Address) []byte {
	acct := j.loadAccount(addr)
	if acct.code != nil {
		return acct.code
	}
	if acct.codeHash == gethcommon.Hash(types.EmptyCodeHash) {
		return nil
	}
	code, err := j.base.Code(types.Hash(acct.codeHash))
	if err != nil {
		return nil
	}
	acct.code = code
	return code
}

func (j *Journal) GetCodeSize(addr gethcommon.Address) int {
	return len(j.GetCode(addr))
}

func (j *Journal) SetCode(addr gethcommon.Address, code []byte) []byte {
	acct := j.loadAccount(addr)
	prev := j.GetCode(addr)
	acct.code = code
	acct.codeHash = gethcommon.Hash(types.Keccak256Hash(code))
	acct.exists = true
	acct.touched = true
	return prev
}

func (j *Journal) AddRefund(gas uint64) { j.refund += gas }

func (j *Journal) SubRefund(gas uint64) {
	if gas > j.refund {
		panic("refund counter below zero")
	}
	j.refund -= gas
}

func (j *Journal) GetRefund() uint64 { return j.refund }

func (j *Journal) GetCommittedState(addr gethcommon.Address, key gethcommon.Hash) gethcommon.Hash {
	if slots, ok := j.committed[addr]; ok {
		if value, ok := slots[key]; ok {
			return value
		}
	}
	var value gethcommon.Hash
	if acct := j.loadAccount(addr); !acct.created {
		v, err := j.base.StorageSlot(types.Address(addr), types.Hash(key))
		if err == nil {
			value = gethcommon.Hash(v)
		}
	}
	if j.committed[addr] == nil {
		j.committed[addr] = make(map[gethcommon.Hash]gethcommon.Hash)
	}
	j.committed[addr][key] = value
	return value
}

func (j *Journal) GetState(addr gethcommon.Address, key gethcommon.Hash) gethcommon.Hash {
	if slots, ok := j.storage[addr]; ok {
		if value, ok := slots[key]; ok {
			return value
		}
	}
	return j.GetCommittedState(addr, key)
}

func (j *Journal) GetStateAndCommittedState(addr gethcommon.Address, key gethcommon.Hash) (gethcommon.Hash, gethcommon.Hash) {
	return j.GetState(addr, key), j.GetCommittedState(addr, key)
}

func (j *Journal) SetState(addr gethcommon.Address, key, value gethcommon.Hash) gethcommon.Hash {
	prev := j.GetState(addr, key)
	if j.storage[addr] == nil {
		j.storage[addr] = make(map[gethcommon.Hash]gethcommon.Hash)
	}
	j.storage[addr][key] = value
	acct := j.loadAccount(addr)
	acct.touched = true
	return prev
}

func (j *Journal) GetStorageRoot(addr gethcommon.Address) gethcommon.Hash {
	// Only consulted by the 6780 rules to distinguish empty storage; the
	// journal does not track per-account roots mid-block.
	if len(j.storage[addr]) > 0 {
		return gethcommon.Hash{0x01}
	}
	return gethcommon.Hash(types.EmptyRootHash)
}

func (j *Journal) GetTransientState(addr gethcommon.Address, key gethcommon.Hash) gethcommon.Hash {
	return j.transient[addr][key]
}

func (j *Journal) SetTransientState(addr gethcommon.Address, key, value gethcommon.Hash) {
	if j.transient[addr] == nil {
		j.transient[addr] = make(map[gethcommon.Hash]gethcommon.Hash)
	}
	j.transient[addr][key] = value
}

func (j *Journal) SelfDestruct(addr gethcommon.Address) uint256.Int {
	acct := j.loadAccount(addr)
	prev := *acct.balance
	acct.balance.Clear()
	acct.selfDestructed = true
	acct.touched = true
	return prev
}

func (j *Journal) HasSelfDestructed(addr gethcommon.Address) bool {
	return j.loadAccount(addr).selfDestructed
}

func (j *Journal) SelfDestruct6780(addr gethcommon.Address) (uint256.Int, bool) {
	acct := j.loadAccount(addr)
	if acct.createdThisTx {
		return j.SelfDestruct(addr), true
	}
	prev := *acct.balance
	acct.balance.Clear()
	acct.touched = true
	return prev, false
}

func (j *Journal) Exist(addr gethcommon.Address) bool {
	return j.loadAccount(addr).exists
}

func (j *Journal) Empty(addr gethcommon.Address) bool {
	acct := j.loadAccount(addr)
	return !acct.exists ||
		(acct.nonce == 0 && acct.balance.IsZero() && acct.codeHash == gethcommon.Hash(types.EmptyCodeHash))
}

func (j *Journal) AddressInAccessList(addr gethcommon.Address) bool {
	return j.accessAddrs[addr]
}

func (j *Journal) SlotInAccessList(addr gethcommon.Address, slot gethcommon.Hash) (bool, bool) {
	slots, ok := j.accessSlots[addr]
	if !ok {
		return j.accessAddrs[addr], false
	}
	return j.accessAddrs[addr], slots[slot]
}

func (j *Journal) AddAddressToAccessList(addr gethcommon.Address) {
	j.accessAddrs[addr] = true
}

func (j *Journal) AddSlotToAccessList(addr gethcommon.Address, slot gethcommon.Hash) {
	j.accessAddrs[addr] = true
	if j.accessSlots[addr] == nil {
		j.accessSlots[addr] = make(map[gethcommon.Hash]bool)
	}
	j.accessSlots[addr][slot] = true
}

func (j *Journal) PointCache() *trieutils.PointCache { return nil }

func (j *Journal) Prepare(rules params.Rules, sender, coinbase gethcommon.Address, dest *gethcommon.Address, precompiles []gethcommon.Address, txAccesses gethtypes.AccessList) {
	if rules.IsBerlin {
		j.accessAddrs = make(map[gethcommon.Address]bool)
		j.accessSlots = make(map[gethcommon.Address]map[gethcommon.Hash]bool)
		j.AddAddressToAccessList(sender)
		if dest != nil {
			j.AddAddressToAccessList(*dest)
		}
		for _, addr := range precompiles {
			j.AddAddressToAccessList(addr)
		}
		for _, tuple := range txAccesses {
			j.AddAddressToAccessList(tuple.Address)
			for _, key := range tuple.StorageKeys {
				j.AddSlotToAccessList(tuple.Address, key)
			}
		}
		if rules.IsShanghai {
			j.AddAddressToAccessList(coinbase)
		}
	}
}

func (j *Journal) Snapshot() int {
	id := j.nextSnapID
	j.nextSnapID++
	snap := &journalSnapshot{
		id:          id,
		accounts:    make(map[gethcommon.Address]*journalAccount, len(j.accounts)),
		storage:     copyStorage(j.storage),
		transient:   copyStorage(j.transient),
		refund:      j.refund,
		accessAddrs: make(map[gethcommon.Address]bool, len(j.accessAddrs)),
		accessSlots: make(map[gethcommon.Address]map[gethcommon.Hash]bool, len(j.accessSlots)),
		logCount:    len(j.logs),
		txLogCount:  len(j.txLogs),
	}
	for addr, acct := range j.accounts {
		snap.accounts[addr] = acct.copy()
	}
	for addr := range j.accessAddrs {
		snap.accessAddrs[addr] = true
	}
	for addr, slots := range j.accessSlots {
		m := make(map[gethcommon.Hash]bool, len(slots))
		for k := range slots {
			m[k] = true
		}
		snap.accessSlots[addr] = m
	}
	j.snapshots = append(j.snapshots, snap)
	return id
}

func (j *Journal) RevertToSnapshot(id int) {
	for i := len(j.snapshots) - 1; i >= 0; i-- {
		snap := j.snapshots[i]
		if snap.id != id {
			continue
		}
		j.accounts = snap.accounts
		j.storage = snap.storage
		j.transient = snap.transient
		j.refund = snap.refund
		j.accessAddrs = snap.accessAddrs
		j.accessSlots = snap.accessSlots
		j.logs = j.logs[:snap.logCount]
		j.txLogs = j.txLogs[:snap.txLogCount]
		j.snapshots = j.snapshots[:i]
		return
	}
	panic("revert to unknown journal snapshot")
}

func (j *Journal) AddLog(entry *gethtypes.Log) {
	entry.TxHash = j.txHash
	entry.TxIndex = uint(j.txIndex)
	entry.Index = uint(len(j.logs))
	j.logs = append(j.logs, entry)
	j.txLogs = append(j.txLogs, entry)
}

func (j *Journal) AddPreimage(gethcommon.Hash, []byte) {}

func (j *Journal) Witness() *stateless.Witness { return nil }

func (j *Journal) AccessEvents() *gethstate.AccessEvents { return nil }

// Finalise is a no-op: empty-account deletion is applied when the block
// diff is committed to the trie state.
func (j *Journal) Finalise(bool) {}

func copyStorage(in map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash) map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash {
	out := make(map[gethcommon.Address]map[gethcommon.Hash]gethcommon.Hash, len(in))
	for addr, slots := range in {
		m := make(map[gethcommon.Hash]gethcommon.Hash, len(slots))
		for k, v := range slots {
			m[k] = v
		}
		out[addr] = m
	}
	return out
}

// BlockDiff converts the journal into the state diff of the block:
// self-destructed accounts are marked destroyed, created accounts carry a
// cleared-storage marker, and every changed slot appears with its final
// value (zero meaning deletion).
func (j *Journal) BlockDiff() types.StateDiff {
	diff := make(types.StateDiff)
	for addr, acct := range j.accounts {
		if !acct.touched {
			continue
		}
		if acct.selfDestructed {
			diff[types.Address(addr)] = &types.AccountChange{Status: types.AccountSelfDestructed}
			continue
		}
		change := &types.AccountChange{
			Status: types.AccountTouched,
			Info: &types.Account{
				Nonce:    acct.nonce,
				Balance:  new(uint256.Int).Set(acct.balance),
				CodeHash: types.Hash(acct.codeHash),
			},
		}
		if acct.created {
			change.Status = types.AccountCreated
		}
		if acct.code != nil {
			change.Code = append([]byte(nil), acct.code...)
		}
		if slots := j.storage[addr]; len(slots) > 0 {
			change.Storage = make(map[types.Hash]types.Hash, len(slots))
			for key, value := range slots {
				change.Storage[types.Hash(key)] = types.Hash(value)
			}
		}
		diff[types.Address(addr)] = change
	}
	return diff
}

// Logs returns every log emitted during the block, converted to the
// runtime's log type.
func (j *Journal) Logs() []*types.Log {
	out := make([]*types.Log, len(j.logs))
	for i, l := range j.logs {
		out[i] = convertLog(l)
	}
	return out
}

func convertLog(l *gethtypes.Log) *types.Log {
	return &types.Log{
		Address:     l.Address,
		Topics:      l.Topics,
		Data:        l.Data,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		TxIndex:     l.TxIndex,
		BlockHash:   l.BlockHash,
		Index:       l.Index,
		Removed:     l.Removed,
	}
}
