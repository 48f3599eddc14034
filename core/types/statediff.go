// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/holiman/uint256"
)

// AccountStatus describes what happened to an account during one block.
type AccountStatus uint8

const (
	AccountTouched AccountStatus = iota
	AccountCreated
	AccountSelfDestructed
)

// AccountChange is one account's entry in a StateDiff: the new account
// fields plus the storage slots the block wrote. Storage entries replace
// the slot's value outright; a zero value deletes the slot.
type AccountChange struct {
	Status  AccountStatus
	Info    *Account // nil when the account was destroyed
	Code    []byte   // set when the change installs new bytecode
	Storage map[Hash]Hash
}

// Copy returns a deep copy so diffs can be retained after the working
// structures that produced them are reused.
func (c *AccountChange) Copy() *AccountChange {
	cp := &AccountChange{Status: c.Status, Info: c.Info.Copy()}
	if c.Code != nil {
		cp.Code = append([]byte(nil), c.Code...)
	}
	if c.Storage != nil {
		cp.Storage = make(map[Hash]Hash, len(c.Storage))
		for k, v := range c.Storage {
			cp.Storage[k] = v
		}
	}
	return cp
}

// StateDiff is a finite description of what one block changed relative to
// its parent. Applying a block's diff to the state at its parent must yield
// a state whose root equals the block's state root.
type StateDiff map[Address]*AccountChange

// Copy deep-copies the diff.
func (d StateDiff) Copy() StateDiff {
	cp := make(StateDiff, len(d))
	for addr, change := range d {
		cp[addr] = change.Copy()
	}
	return cp
}

// Merge folds other into d, later writes winning per account and per slot.
// It is used when several transactions' journals fold into one block diff.
func (d StateDiff) Merge(other StateDiff) {
	for addr, change := range other {
		prev, ok := d[addr]
		if !ok || change.Status == AccountSelfDestructed || change.Status == AccountCreated {
			d[addr] = change.Copy()
			continue
		}
		prev.Info = change.Info.Copy()
		if change.Code != nil {
			prev.Code = append([]byte(nil), change.Code...)
		}
		if prev.Storage == nil && len(change.Storage) > 0 {
			prev.Storage = make(map[Hash]Hash, len(change.Storage))
		}
		for k, v := range change.Storage {
			prev.Storage[k] = v
		}
	}
}

// AccountOverride is a full or partial overwrite of one account applied by
// a cheat operation.
type AccountOverride struct {
	Balance *uint256.Int // nil leaves the balance alone
	Nonce   *uint64
	Code    []byte // nil leaves the code alone; empty installs empty code
	Storage map[Hash]Hash
}

// StateOverride is the irregular state injected at one block number by
// cheat operations (setBalance, setCode, setNonce, setStorageAt). It is
// not derivable from any transaction and is layered after the block's own
// diff when historical state is reconstructed, never merged into it.
type StateOverride map[Address]*AccountOverride

// Copy deep-copies the override set.
func (o StateOverride) Copy() StateOverride {
	cp := make(StateOverride, len(o))
	for addr, ov := range o {
		nv := &AccountOverride{}
		if ov.Balance != nil {
			nv.Balance = new(uint256.Int).Set(ov.Balance)
		}
		if ov.Nonce != nil {
			n := *ov.Nonce
			nv.Nonce = &n
		}
		if ov.Code != nil {
			nv.Code = append([]byte(nil), ov.Code...)
		}
		if ov.Storage != nil {
			nv.Storage = make(map[Hash]Hash, len(ov.Storage))
			for k, v := range ov.Storage {
				nv.Storage[k] = v
			}
		}
		cp[addr] = nv
	}
	return cp
}
