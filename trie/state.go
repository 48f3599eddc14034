// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trie

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/rlp"

	"github.com/devchain-labs/devchain/core/types"
)

// accountRLP is the canonical account-leaf encoding.
type accountRLP struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot types.Hash
	CodeHash    types.Hash
}

// StateRepr maintains the account trie, one storage trie per non-empty
// account, and the content-addressed code store. All mutation goes through
// a Mutation guard; storage roots and the state root are recomputed only
// when the guard closes, so a batch of updates pays one hash per changed
// path.
type StateRepr struct {
	accountTrie  *Trie
	storageTries map[types.Address]*Trie
	accounts     map[types.Address]*types.Account
	storage      map[types.Address]map[types.Hash]types.Hash
	codes        map[types.Hash][]byte

	mutating bool
}

// NewStateRepr returns an empty state.
func NewStateRepr() *StateRepr {
	return &StateRepr{
		accountTrie:  New(),
		storageTries: make(map[types.Address]*Trie),
		accounts:     make(map[types.Address]*types.Account),
		storage:      make(map[types.Address]map[types.Hash]types.Hash),
		codes:        make(map[types.Hash][]byte),
	}
}

// Clone returns an independent copy. Tries share all unmodified nodes with
// the original; the flat indices are copied.
func (s *StateRepr) Clone() *StateRepr {
	cp := &StateRepr{
		accountTrie:  s.accountTrie.Copy(),
		storageTries: make(map[types.Address]*Trie, len(s.storageTries)),
		accounts:     make(map[types.Address]*types.Account, len(s.accounts)),
		storage:      make(map[types.Address]map[types.Hash]types.Hash, len(s.storage)),
		codes:        make(map[types.Hash][]byte, len(s.codes)),
	}
	for addr, t := range s.storageTries {
		cp.storageTries[addr] = t.Copy()
	}
	for addr, acct := range s.accounts {
		cp.accounts[addr] = acct.Copy()
	}
	for addr, slots := range s.storage {
		m := make(map[types.Hash]types.Hash, len(slots))
		for k, v := range slots {
			m[k] = v
		}
		cp.storage[addr] = m
	}
	for h, code := range s.codes {
		cp.codes[h] = code
	}
	return cp
}

// Account returns the account stored at addr, or nil.
func (s *StateRepr) Account(addr types.Address) *types.Account {
	return s.accounts[addr].Copy()
}

// StorageSlot returns the value of one storage slot; the zero hash when
// the slot is absent.
func (s *StateRepr) StorageSlot(addr types.Address, key types.Hash) types.Hash {
	return s.storage[addr][key]
}

// Code returns the bytecode stored under the given code hash. An unknown
// hash is an invariant violation: code is inserted into the store in the
// same mutation that installs its hash on an account.
func (s *StateRepr) Code(codeHash types.Hash) ([]byte, error) {
	if codeHash == types.EmptyCodeHash {
		return nil, nil
	}
	code, ok := s.codes[codeHash]
	if !ok {
		return nil, fmt.Errorf("code store: unknown code hash %s", codeHash)
	}
	return code, nil
}

// StateRoot returns the root of the account trie.
func (s *StateRepr) StateRoot() types.Hash {
	if s.mutating {
		panic("state root requested inside an open mutation")
	}
	return s.accountTrie.Root()
}

// StorageRoot returns the storage root of one account; the empty root for
// accounts without storage.
func (s *StateRepr) StorageRoot(addr types.Address) types.Hash {
	if t, ok := s.storageTries[addr]; ok {
		return t.Root()
	}
	return EmptyRoot
}

// Mutation batches writes against a StateRepr. Storage-root and
// account-leaf updates are deferred until Close.
type Mutation struct {
	state        *StateRepr
	dirtyAccount map[types.Address]bool
	dirtyStorage map[types.Address]bool
}

// BeginMutation opens the single mutation guard. Only one may be open at
// a time.
func (s *StateRepr) BeginMutation() *Mutation {
	if s.mutating {
		panic("nested state mutation")
	}
	s.mutating = true
	return &Mutation{
		state:        s,
		dirtyAccount: make(map[types.Address]bool),
		dirtyStorage: make(map[types.Address]bool),
	}
}

// SetAccount overwrites addr's account fields, creating it if absent.
func (m *Mutation) SetAccount(addr types.Address, acct *types.Account) {
	m.state.accounts[addr] = acct.Copy()
	m.dirtyAccount[addr] = true
}

// RemoveAccount deletes the account and its storage.
func (m *Mutation) RemoveAccount(addr types.Address) {
	delete(m.state.accounts, addr)
	delete(m.state.storage, addr)
	delete(m.state.storageTries, addr)
	m.dirtyAccount[addr] = true
	delete(m.dirtyStorage, addr)
}

// ClearStorage drops every storage slot of addr, as required when an
// account is re-created at an address that held storage before.
func (m *Mutation) ClearStorage(addr types.Address) {
	delete(m.state.storage, addr)
	delete(m.state.storageTries, addr)
	m.dirtyStorage[addr] = true
	m.dirtyAccount[addr] = true
}

// SetStorageSlot writes one slot; a zero value deletes it.
func (m *Mutation) SetStorageSlot(addr types.Address, key, value types.Hash) {
	s := m.state
	t, ok := s.storageTries[addr]
	if !ok {
		t = New()
		s.storageTries[addr] = t
		s.storage[addr] = make(map[types.Hash]types.Hash)
	}
	hashedKey := types.Keccak256Hash(key.Bytes())
	if value == (types.Hash{}) {
		delete(s.storage[addr], key)
		t.Delete(hashedKey.Bytes())
	} else {
		s.storage[addr][key] = value
		enc, err := rlp.EncodeToBytes(new(big.Int).SetBytes(value.Bytes()))
		if err != nil {
			panic(err)
		}
		t.Update(hashedKey.Bytes(), enc)
	}
	m.dirtyStorage[addr] = true
	m.dirtyAccount[addr] = true
}

// SetCode installs bytecode on addr, storing it in the content-addressed
// code store and pointing the account's code hash at it.
func (m *Mutation) SetCode(addr types.Address, code []byte) {
	s := m.state
	acct := s.accounts[addr]
	if acct == nil {
		acct = types.NewEmptyAccount()
	} else {
		acct = acct.Copy()
	}
	if len(code) == 0 {
		acct.CodeHash = types.EmptyCodeHash
	} else {
		hash := types.Keccak256Hash(code)
		s.codes[hash] = append([]byte(nil), code...)
		acct.CodeHash = hash
	}
	s.accounts[addr] = acct
	m.dirtyAccount[addr] = true
}

// InsertCode stores bytecode under its hash without touching any account.
func (m *Mutation) InsertCode(code []byte) types.Hash {
	hash := types.Keccak256Hash(code)
	m.state.codes[hash] = append([]byte(nil), code...)
	return hash
}

// Close flushes the batch: recomputes the storage root of every
// storage-dirty account, rewrites every dirty account leaf, and releases
// the guard.
func (m *Mutation) Close() {
	s := m.state
	for addr := range m.dirtyAccount {
		hashedAddr := types.Keccak256Hash(addr.Bytes())
		acct, ok := s.accounts[addr]
		if !ok {
			s.accountTrie.Delete(hashedAddr.Bytes())
			continue
		}
		balance := new(big.Int)
		if acct.Balance != nil {
			balance = acct.Balance.ToBig()
		}
		enc, err := rlp.EncodeToBytes(&accountRLP{
			Nonce:       acct.Nonce,
			Balance:     balance,
			StorageRoot: s.StorageRoot(addr),
			CodeHash:    acct.CodeHash,
		})
		if err != nil {
			panic(err)
		}
		s.accountTrie.Update(hashedAddr.Bytes(), enc)
	}
	s.mutating = false
	m.state = nil
}

// Commit applies one block's worth of account changes under a single
// mutation:
//
//  1. a touched account that ended empty without being created this block,
//     or that self-destructed, is removed together with its storage;
//  2. otherwise a created account has its storage cleared first, then the
//     account fields are overwritten and the storage deltas applied, a
//     zero value deleting the slot.
func (s *StateRepr) Commit(changes types.StateDiff) {
	m := s.BeginMutation()
	defer m.Close()
	for addr, change := range changes {
		switch {
		case change.Status == types.AccountSelfDestructed,
			change.Status == types.AccountTouched && change.Info.IsEmpty():
			m.RemoveAccount(addr)
		default:
			if change.Status == types.AccountCreated {
				m.ClearStorage(addr)
			}
			if change.Code != nil {
				m.InsertCode(change.Code)
			}
			m.SetAccount(addr, change.Info)
			for key, value := range change.Storage {
				m.SetStorageSlot(addr, key, value)
			}
		}
	}
}

// ApplyOverride applies one cheat-operation override set: partial account
// overwrites layered on whatever is present.
func (s *StateRepr) ApplyOverride(override types.StateOverride) {
	m := s.BeginMutation()
	defer m.Close()
	for addr, ov := range override {
		acct := s.accounts[addr]
		if acct == nil {
			acct = types.NewEmptyAccount()
		} else {
			acct = acct.Copy()
		}
		if ov.Balance != nil {
			acct.Balance = new(uint256.Int).Set(ov.Balance)
		}
		if ov.Nonce != nil {
			acct.Nonce = *ov.Nonce
		}
		m.SetAccount(addr, acct)
		if ov.Code != nil {
			m.SetCode(addr, ov.Code)
		}
		for key, value := range ov.Storage {
			m.SetStorageSlot(addr, key, value)
		}
	}
}

// Accounts returns the set of addresses with a stored account, for
// iteration by the serializer and tests.
func (s *StateRepr) Accounts() []types.Address {
	out := make([]types.Address, 0, len(s.accounts))
	for addr := range s.accounts {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Cmp(out[j]) < 0
	})
	return out
}

type dumpAccount struct {
	Balance  string            `json:"balance"`
	Nonce    uint64            `json:"nonce"`
	CodeHash string            `json:"codeHash"`
	Code     string            `json:"code,omitempty"`
	Storage  map[string]string `json:"storage,omitempty"`
}

// DumpJSON produces a deterministic serialization of the full state,
// sorted by address and per account by storage key, suitable for
// golden-file comparison.
func (s *StateRepr) DumpJSON() ([]byte, error) {
	out := make(map[string]dumpAccount, len(s.accounts))
	for _, addr := range s.Accounts() {
		acct := s.accounts[addr]
		entry := dumpAccount{
			Balance:  acct.Balance.Dec(),
			Nonce:    acct.Nonce,
			CodeHash: acct.CodeHash.Hex(),
		}
		if acct.CodeHash != types.EmptyCodeHash {
			code, err := s.Code(acct.CodeHash)
			if err != nil {
				return nil, err
			}
			entry.Code = fmt.Sprintf("0x%x", code)
		}
		if slots := s.storage[addr]; len(slots) > 0 {
			entry.Storage = make(map[string]string, len(slots))
			for k, v := range slots {
				entry.Storage[k.Hex()] = v.Hex()
			}
		}
		out[addr.Hex()] = entry
	}
	return json.MarshalIndent(out, "", "  ")
}
