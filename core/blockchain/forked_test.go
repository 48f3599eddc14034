// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/types"
)

// fakeRemote serves a synthetic remote chain, materializing blocks on
// demand, and counts requests.
type fakeRemote struct {
	head     uint64
	blocks   map[uint64]*types.Block
	requests int
}

func newFakeRemote(head uint64) *fakeRemote {
	return &fakeRemote{head: head, blocks: make(map[uint64]*types.Block)}
}

func (r *fakeRemote) blockAt(number uint64) *types.Block {
	if block, ok := r.blocks[number]; ok {
		return block
	}
	header := &types.Header{
		ParentHash:  types.Keccak256Hash(big.NewInt(int64(number) - 1).Bytes()),
		UncleHash:   types.EmptyUncleHash,
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Difficulty:  new(big.Int),
		Number:      new(big.Int).SetUint64(number),
		GasLimit:    30_000_000,
		Time:        1_600_000_000 + number*12,
		BaseFee:     big.NewInt(7),
	}
	block := types.NewBlock(header, nil, nil, nil)
	r.blocks[number] = block
	return block
}

func (r *fakeRemote) BlockByNumber(number uint64) (*types.Block, error) {
	r.requests++
	if number > r.head {
		return nil, fmt.Errorf("no block %d", number)
	}
	return r.blockAt(number), nil
}

func (r *fakeRemote) BlockByHash(hash types.Hash) (*types.Block, error) {
	r.requests++
	for _, block := range r.blocks {
		if block.Hash() == hash {
			return block, nil
		}
	}
	return nil, fmt.Errorf("no block %s", hash)
}

func (r *fakeRemote) TransactionBlockAndReceipt(types.Hash) (*types.Block, *types.Receipt, int, error) {
	return nil, nil, 0, fmt.Errorf("no transactions on fake remote")
}

func (r *fakeRemote) LatestBlockNumber() (uint64, error) {
	return r.head, nil
}

func forkedConfig() Config {
	return Config{ChainID: 1, Spec: types.Shanghai, GasLimit: 30_000_000}
}

func TestForkedDefaultsToSafeHeight(t *testing.T) {
	remote := newFakeRemote(20_000_000)
	bc, err := NewForkedBlockchain(forkedConfig(), remote, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(20_000_000-5), bc.ForkHeight())
	require.Equal(t, bc.ForkHeight(), bc.LastBlockNumber())
}

func TestForkedRefusesPreSpuriousDragon(t *testing.T) {
	remote := newFakeRemote(100)
	_, err := NewForkedBlockchain(forkedConfig(), remote, 100)
	require.ErrorIs(t, err, ErrInvalidHardfork)
}

func TestForkedRefusesUnknownChain(t *testing.T) {
	remote := newFakeRemote(20_000_000)
	cfg := forkedConfig()
	cfg.ChainID = 555555
	_, err := NewForkedBlockchain(cfg, remote, 20_000_000-64)
	var missing *MissingHardforkActivationsError
	require.ErrorAs(t, err, &missing)
}

func TestForkedSpecAtBlock(t *testing.T) {
	remote := newFakeRemote(20_000_000)
	bc, err := NewForkedBlockchain(forkedConfig(), remote, 19_999_000)
	require.NoError(t, err)

	spec, err := bc.SpecAtBlock(12_965_000)
	require.NoError(t, err)
	require.Equal(t, types.London, spec)

	spec, err = bc.SpecAtBlock(19_999_001)
	require.NoError(t, err)
	require.Equal(t, types.Shanghai, spec)
}

func TestForkedRemoteLookupsAreCached(t *testing.T) {
	remote := newFakeRemote(20_000_000)
	bc, err := NewForkedBlockchain(forkedConfig(), remote, 19_999_000)
	require.NoError(t, err)

	before := remote.requests
	_, err = bc.BlockByNumber(19_000_000)
	require.NoError(t, err)
	afterFirst := remote.requests
	require.Greater(t, afterFirst, before)

	_, err = bc.BlockByNumber(19_000_000)
	require.NoError(t, err)
	require.Equal(t, afterFirst, remote.requests, "second lookup must be served locally")
}

func TestForkedInsertAndRevert(t *testing.T) {
	remote := newFakeRemote(20_000_000)
	bc, err := NewForkedBlockchain(forkedConfig(), remote, 19_999_000)
	require.NoError(t, err)

	forkBlock, err := bc.LastBlock()
	require.NoError(t, err)
	child := childOf(forkBlock, types.Shanghai)
	child.Header.BaseFee = big.NewInt(7)
	require.NoError(t, bc.InsertBlock(child, nil))
	require.Equal(t, uint64(19_999_001), bc.LastBlockNumber())

	require.ErrorIs(t, bc.RevertToBlock(19_998_000), ErrUnknownBlockNumber)
	require.NoError(t, bc.RevertToBlock(19_999_000))
	require.Equal(t, uint64(19_999_000), bc.LastBlockNumber())
}
