// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package miner

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/blockchain"
	"github.com/devchain-labs/devchain/core/mempool"
	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
)

func testAddr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func newChainAndState(t *testing.T, spec types.SpecID) (*blockchain.LocalBlockchain, *state.LayeredState) {
	t.Helper()
	st := state.NewLayeredState()
	diff := blockchain.GenesisDiff(map[types.Address]*uint256.Int{
		testAddr(1): uint256.MustFromBig(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)),
	}, spec)
	require.NoError(t, st.CommitBlock(0, diff))
	root, err := st.StateRoot()
	require.NoError(t, err)
	bc, err := blockchain.NewLocalBlockchain(blockchain.Config{
		ChainID:  31337,
		Spec:     spec,
		GasLimit: 30_000_000,
	}, root, 1_700_000_000)
	require.NoError(t, err)
	return bc, st
}

func defaultOptions(bc *blockchain.LocalBlockchain) Options {
	parentTime := uint64(1_700_000_000)
	return Options{
		Builder: BuilderOptions{
			Timestamp: parentTime + 1,
			Coinbase:  testAddr(0xc0),
			GasLimit:  30_000_000,
		},
	}
}

func TestMineEmptyBlock(t *testing.T) {
	bc, st := newChainAndState(t, types.Shanghai)
	pool := mempool.New(30_000_000)

	result, err := MineBlock(bc, st, pool, defaultOptions(bc), nil)
	require.NoError(t, err)
	require.Empty(t, result.Included)

	block := result.Block
	require.Equal(t, uint64(1), block.NumberU64())
	require.Equal(t, types.EmptyRootHash, block.Header.TxHash)
	require.Equal(t, types.EmptyRootHash, block.Header.ReceiptHash)
	require.NotNil(t, block.Header.WithdrawalsHash)
	require.Zero(t, block.GasUsed())
	require.Zero(t, block.Header.Difficulty.Sign())
	var zeroBloom types.Bloom
	require.Equal(t, zeroBloom, block.Header.Bloom)

	// The miner does not commit: committing is the caller's move, and
	// afterwards the chain and state agree with the sealed header.
	require.Equal(t, uint64(0), bc.LastBlockNumber())
	require.NoError(t, bc.InsertBlock(block, result.Receipts))
	require.NoError(t, st.CommitBlock(1, result.StateDiff))
	root, err := st.StateRoot()
	require.NoError(t, err)
	require.Equal(t, block.Header.Root, root)
}

// Post-merge blocks pay no static reward; the empty block's diff is
// empty and the state root carries over.
func TestMineEmptyBlockPostMergeKeepsRoot(t *testing.T) {
	bc, st := newChainAndState(t, types.Shanghai)
	pool := mempool.New(30_000_000)
	parent, err := bc.LastBlock()
	require.NoError(t, err)

	result, err := MineBlock(bc, st, pool, defaultOptions(bc), nil)
	require.NoError(t, err)
	require.Empty(t, result.StateDiff)
	require.Equal(t, parent.Header.Root, result.Block.Header.Root)
}

// Pre-merge the coinbase earns the static reward.
func TestMineEmptyBlockPreMergeReward(t *testing.T) {
	bc, st := newChainAndState(t, types.Istanbul)
	pool := mempool.New(30_000_000)

	result, err := MineBlock(bc, st, pool, defaultOptions(bc), nil)
	require.NoError(t, err)
	change, ok := result.StateDiff[testAddr(0xc0)]
	require.True(t, ok, "coinbase must be credited")
	twoEther := new(big.Int).Mul(big.NewInt(2), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	require.Equal(t, twoEther, change.Info.Balance.ToBig())
	require.NotEqual(t, result.Block.Header.Root, types.EmptyRootHash)
}

func TestMineRespectsBaseFeeOverride(t *testing.T) {
	bc, st := newChainAndState(t, types.Shanghai)
	pool := mempool.New(30_000_000)
	opts := defaultOptions(bc)
	opts.Builder.BaseFee = big.NewInt(12345)

	result, err := MineBlock(bc, st, pool, opts, nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(12345), result.Block.Header.BaseFee)
}

func TestSpecBlockReward(t *testing.T) {
	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	require.Equal(t, new(big.Int).Mul(big.NewInt(5), ether), specBlockReward(types.Homestead))
	require.Equal(t, new(big.Int).Mul(big.NewInt(3), ether), specBlockReward(types.Byzantium))
	require.Equal(t, new(big.Int).Mul(big.NewInt(2), ether), specBlockReward(types.Istanbul))
	require.Zero(t, specBlockReward(types.Merge).Sign())
}

func TestMinePendingDoesNotCommit(t *testing.T) {
	bc, st := newChainAndState(t, types.Shanghai)
	pool := mempool.New(30_000_000)

	reader, result, err := MinePending(bc, st, pool, defaultOptions(bc))
	require.NoError(t, err)
	require.NotNil(t, reader)
	require.NotNil(t, result.Block)
	require.Equal(t, uint64(0), bc.LastBlockNumber())
}
