// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

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

func createDiff(a types.Address, wei uint64) types.StateDiff {
	return types.StateDiff{
		a: {
			Status: types.AccountCreated,
			Info:   &types.Account{Balance: uint256.NewInt(wei), CodeHash: types.EmptyCodeHash},
		},
	}
}

func balanceOf(t *testing.T, r Reader, a types.Address) uint64 {
	t.Helper()
	acct, err := r.Account(a)
	require.NoError(t, err)
	if acct == nil {
		return 0
	}
	return acct.Balance.Uint64()
}

func TestCommitBlockAdvancesRoot(t *testing.T) {
	st := NewLayeredState()
	genesisRoot, err := st.StateRoot()
	require.NoError(t, err)

	require.NoError(t, st.CommitBlock(0, createDiff(addr(1), 100)))
	root, err := st.StateRoot()
	require.NoError(t, err)
	require.NotEqual(t, genesisRoot, root)
	require.Equal(t, uint64(100), balanceOf(t, st, addr(1)))
}

// Replaying every committed diff from scratch reproduces the latest root.
func TestDiffSoundness(t *testing.T) {
	st := NewLayeredState()
	require.NoError(t, st.CommitBlock(0, createDiff(addr(1), 100)))
	require.NoError(t, st.CommitBlock(1, createDiff(addr(2), 200)))
	require.NoError(t, st.CommitBlock(2, types.StateDiff{
		addr(1): {
			Status:  types.AccountTouched,
			Info:    &types.Account{Balance: uint256.NewInt(50), CodeHash: types.EmptyCodeHash},
			Storage: map[types.Hash]types.Hash{hash(1): hash(2)},
		},
	}))
	latestRoot, err := st.StateRoot()
	require.NoError(t, err)

	replayed, err := st.StateAtBlock(2)
	require.NoError(t, err)
	require.Equal(t, uint64(50), balanceOf(t, replayed, addr(1)))

	// Reverting to the tip must be a no-op on the root.
	require.NoError(t, st.RevertToBlock(2))
	root, err := st.StateRoot()
	require.NoError(t, err)
	require.Equal(t, latestRoot, root)
}

func TestStateAtBlockHistorical(t *testing.T) {
	st := NewLayeredState()
	require.NoError(t, st.CommitBlock(0, createDiff(addr(1), 100)))
	require.NoError(t, st.CommitBlock(1, types.StateDiff{
		addr(1): {
			Status: types.AccountTouched,
			Info:   &types.Account{Balance: uint256.NewInt(75), CodeHash: types.EmptyCodeHash},
		},
	}))

	past, err := st.StateAtBlock(0)
	require.NoError(t, err)
	require.Equal(t, uint64(100), balanceOf(t, past, addr(1)))
	require.Equal(t, uint64(75), balanceOf(t, st, addr(1)))
}

// Irregular overrides layer after the block's own diff during replay.
func TestOverrideLayering(t *testing.T) {
	st := NewLayeredState()
	require.NoError(t, st.CommitBlock(0, createDiff(addr(1), 100)))
	require.NoError(t, st.ApplyOverride(0, types.StateOverride{
		addr(1): {Balance: uint256.NewInt(42)},
	}))
	require.NoError(t, st.CommitBlock(1, createDiff(addr(2), 1)))

	require.Equal(t, uint64(42), balanceOf(t, st, addr(1)))
	past, err := st.StateAtBlock(0)
	require.NoError(t, err)
	require.Equal(t, uint64(42), balanceOf(t, past, addr(1)), "override applies at its block during replay")
}

func TestSnapshotRestore(t *testing.T) {
	st := NewLayeredState()
	require.NoError(t, st.CommitBlock(0, createDiff(addr(1), 100)))
	root, err := st.Snapshot()
	require.NoError(t, err)

	require.NoError(t, st.CommitBlock(1, createDiff(addr(2), 200)))
	require.NoError(t, st.ApplyOverride(1, types.StateOverride{
		addr(1): {Balance: uint256.NewInt(1)},
	}))

	require.NoError(t, st.RestoreSnapshot(root))
	got, err := st.StateRoot()
	require.NoError(t, err)
	require.Equal(t, root, got)
	require.Equal(t, uint64(100), balanceOf(t, st, addr(1)))
	require.Equal(t, uint64(0), balanceOf(t, st, addr(2)))

	// Restoring twice is a no-op after the first.
	require.NoError(t, st.RestoreSnapshot(root))
	got, err = st.StateRoot()
	require.NoError(t, err)
	require.Equal(t, root, got)
}

func TestRestoreUnknownRoot(t *testing.T) {
	st := NewLayeredState()
	require.ErrorIs(t, st.RestoreSnapshot(hash(0xaa)), ErrInvalidStateRoot)
}

func TestRootAfterDoesNotCommit(t *testing.T) {
	st := NewLayeredState()
	require.NoError(t, st.CommitBlock(0, createDiff(addr(1), 100)))
	before, err := st.StateRoot()
	require.NoError(t, err)

	preview, err := st.RootAfter(createDiff(addr(2), 7))
	require.NoError(t, err)
	require.NotEqual(t, before, preview)

	after, err := st.StateRoot()
	require.NoError(t, err)
	require.Equal(t, before, after)

	// Committing the same diff adopts exactly the previewed root.
	require.NoError(t, st.CommitBlock(1, createDiff(addr(2), 7)))
	committed, err := st.StateRoot()
	require.NoError(t, err)
	require.Equal(t, preview, committed)
}
