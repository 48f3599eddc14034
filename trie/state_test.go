// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trie

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func hash(b byte) types.Hash {
	var h types.Hash
	h[31] = b
	return h
}

func fundedAccount(wei uint64) *types.Account {
	return &types.Account{
		Balance:  uint256.NewInt(wei),
		CodeHash: types.EmptyCodeHash,
	}
}

func TestEmptyStateRoot(t *testing.T) {
	require.Equal(t, EmptyRoot, NewStateRepr().StateRoot())
}

func TestSetAccountChangesRoot(t *testing.T) {
	st := NewStateRepr()
	m := st.BeginMutation()
	m.SetAccount(addr(1), fundedAccount(1000))
	m.Close()

	require.NotEqual(t, EmptyRoot, st.StateRoot())
	acct := st.Account(addr(1))
	require.NotNil(t, acct)
	require.Equal(t, uint64(1000), acct.Balance.Uint64())
}

func TestRemoveAccountRestoresEmptyRoot(t *testing.T) {
	st := NewStateRepr()
	m := st.BeginMutation()
	m.SetAccount(addr(1), fundedAccount(1000))
	m.Close()

	m = st.BeginMutation()
	m.RemoveAccount(addr(1))
	m.Close()
	require.Equal(t, EmptyRoot, st.StateRoot())
	require.Nil(t, st.Account(addr(1)))
}

func TestStorageZeroIsDeletion(t *testing.T) {
	st := NewStateRepr()
	m := st.BeginMutation()
	m.SetAccount(addr(1), fundedAccount(1))
	m.SetStorageSlot(addr(1), hash(1), hash(42))
	m.Close()
	withSlot := st.StorageRoot(addr(1))
	require.NotEqual(t, EmptyRoot, withSlot)

	m = st.BeginMutation()
	m.SetStorageSlot(addr(1), hash(1), types.Hash{})
	m.Close()
	require.Equal(t, EmptyRoot, st.StorageRoot(addr(1)))
	require.Equal(t, types.Hash{}, st.StorageSlot(addr(1), hash(1)))
}

func TestCodeStore(t *testing.T) {
	st := NewStateRepr()
	code := []byte{0x60, 0x00, 0x60, 0x00}
	m := st.BeginMutation()
	m.SetAccount(addr(1), fundedAccount(1))
	m.SetCode(addr(1), code)
	m.Close()

	acct := st.Account(addr(1))
	require.Equal(t, types.Keccak256Hash(code), acct.CodeHash)
	got, err := st.Code(acct.CodeHash)
	require.NoError(t, err)
	require.Equal(t, code, got)

	_, err = st.Code(hash(0xee))
	require.Error(t, err)
}

func TestCommitRules(t *testing.T) {
	st := NewStateRepr()
	m := st.BeginMutation()
	m.SetAccount(addr(1), fundedAccount(100))
	m.SetStorageSlot(addr(1), hash(1), hash(1))
	m.SetAccount(addr(2), fundedAccount(200))
	m.Close()

	st.Commit(types.StateDiff{
		// Self-destructed accounts vanish with their storage.
		addr(1): {Status: types.AccountSelfDestructed},
		// Touched-empty accounts vanish too.
		addr(2): {Status: types.AccountTouched, Info: types.NewEmptyAccount()},
		// Created accounts replace whatever storage was there.
		addr(3): {
			Status:  types.AccountCreated,
			Info:    fundedAccount(300),
			Storage: map[types.Hash]types.Hash{hash(7): hash(9)},
		},
	})

	require.Nil(t, st.Account(addr(1)))
	require.Equal(t, EmptyRoot, st.StorageRoot(addr(1)))
	require.Nil(t, st.Account(addr(2)))
	require.Equal(t, uint64(300), st.Account(addr(3)).Balance.Uint64())
	require.Equal(t, hash(9), st.StorageSlot(addr(3), hash(7)))
}

func TestCommitPermutationDeterminism(t *testing.T) {
	build := func(order []byte) types.Hash {
		st := NewStateRepr()
		for _, b := range order {
			st.Commit(types.StateDiff{
				addr(b): {
					Status:  types.AccountCreated,
					Info:    fundedAccount(uint64(b) * 10),
					Storage: map[types.Hash]types.Hash{hash(b): hash(b)},
				},
			})
		}
		return st.StateRoot()
	}
	require.Equal(t, build([]byte{1, 2, 3}), build([]byte{3, 1, 2}))
	require.Equal(t, build([]byte{1, 2, 3}), build([]byte{2, 3, 1}))
}

func TestCloneIsolation(t *testing.T) {
	st := NewStateRepr()
	m := st.BeginMutation()
	m.SetAccount(addr(1), fundedAccount(111))
	m.Close()
	snapRoot := st.StateRoot()

	clone := st.Clone()
	m = st.BeginMutation()
	m.SetAccount(addr(1), fundedAccount(999))
	m.Close()

	require.Equal(t, uint64(111), clone.Account(addr(1)).Balance.Uint64())
	require.Equal(t, snapRoot, clone.StateRoot())
	require.NotEqual(t, snapRoot, st.StateRoot())
}

func TestApplyOverridePartial(t *testing.T) {
	st := NewStateRepr()
	m := st.BeginMutation()
	m.SetAccount(addr(1), &types.Account{Nonce: 7, Balance: uint256.NewInt(100), CodeHash: types.EmptyCodeHash})
	m.Close()

	st.ApplyOverride(types.StateOverride{
		addr(1): {Balance: uint256.NewInt(42)},
	})
	acct := st.Account(addr(1))
	require.Equal(t, uint64(42), acct.Balance.Uint64())
	require.Equal(t, uint64(7), acct.Nonce, "override must not clobber untouched fields")
}

func TestDumpJSONDeterministic(t *testing.T) {
	build := func() *StateRepr {
		st := NewStateRepr()
		m := st.BeginMutation()
		m.SetAccount(addr(2), fundedAccount(2))
		m.SetAccount(addr(1), fundedAccount(1))
		m.SetStorageSlot(addr(1), hash(2), hash(2))
		m.SetStorageSlot(addr(1), hash(1), hash(1))
		m.Close()
		return st
	}
	a, err := build().DumpJSON()
	require.NoError(t, err)
	b, err := build().DumpJSON()
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Contains(t, string(a), "balance")
}

func TestRootRequestInsideMutationPanics(t *testing.T) {
	st := NewStateRepr()
	m := st.BeginMutation()
	defer m.Close()
	require.Panics(t, func() { st.StateRoot() })
}
