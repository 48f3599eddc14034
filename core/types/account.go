// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/holiman/uint256"
)

// Account is the leaf value of the account trie: balance, nonce, and a
// pointer (by hash) to the account's bytecode. The bytecode itself is held
// in a content-addressed store keyed by CodeHash, never inline in the trie.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash Hash
}

// IsEmpty reports whether the account matches the EIP-161 definition of an
// empty account: zero nonce, zero balance, and no code.
func (a *Account) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && a.CodeHash == EmptyCodeHash
}

// Copy returns a deep copy of the account suitable for storing in a new
// trie layer without aliasing the original's *uint256.Int.
func (a *Account) Copy() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Balance != nil {
		cp.Balance = new(uint256.Int).Set(a.Balance)
	}
	return &cp
}

// NewEmptyAccount returns an account with zero balance/nonce and the empty
// code hash, i.e. the account created implicitly by a first-time balance
// transfer.
func NewEmptyAccount() *Account {
	return &Account{Balance: new(uint256.Int), CodeHash: EmptyCodeHash}
}
