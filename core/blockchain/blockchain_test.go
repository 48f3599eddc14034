// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/types"
)

func testConfig(spec types.SpecID) Config {
	return Config{
		ChainID:  31337,
		Spec:     spec,
		GasLimit: 30_000_000,
	}
}

func newTestChain(t *testing.T, spec types.SpecID) *LocalBlockchain {
	t.Helper()
	bc, err := NewLocalBlockchain(testConfig(spec), types.EmptyRootHash, 1_000_000)
	require.NoError(t, err)
	return bc
}

func childOf(parent *types.Block, spec types.SpecID) *types.Block {
	header := &types.Header{
		ParentHash:  parent.Hash(),
		UncleHash:   types.EmptyUncleHash,
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Root:        parent.Header.Root,
		Difficulty:  new(big.Int),
		Number:      new(big.Int).SetUint64(parent.NumberU64() + 1),
		GasLimit:    parent.GasLimit(),
		Time:        parent.Time() + 1,
	}
	if spec.HasBaseFee() {
		header.BaseFee = big.NewInt(1_000_000_000)
	}
	if spec.HasWithdrawals() {
		root := types.EmptyRootHash
		header.WithdrawalsHash = &root
	}
	if spec.HasBlobGas() {
		var zero uint64
		blobGasUsed, excess := zero, zero
		header.BlobGasUsed = &blobGasUsed
		header.ExcessBlobGas = &excess
		beacon := types.Hash{}
		header.ParentBeaconBlockRoot = &beacon
	}
	if !spec.IsPostMerge() {
		header.Difficulty = big.NewInt(1)
	}
	return types.NewBlock(header, nil, nil, nil)
}

func TestGenesisHeaderShanghai(t *testing.T) {
	bc := newTestChain(t, types.Shanghai)
	genesis, err := bc.BlockByNumber(0)
	require.NoError(t, err)
	header := genesis.Header

	require.Zero(t, header.Difficulty.Sign())
	require.Equal(t, types.EncodeNonce(0), header.Nonce)
	require.Equal(t, big.NewInt(1_000_000_000), header.BaseFee)
	require.NotNil(t, header.WithdrawalsHash)
	require.Equal(t, types.EmptyRootHash, *header.WithdrawalsHash)
	require.Nil(t, header.BlobGasUsed)
}

func TestGenesisHeaderPreMerge(t *testing.T) {
	bc := newTestChain(t, types.Istanbul)
	genesis, err := bc.BlockByNumber(0)
	require.NoError(t, err)
	header := genesis.Header

	require.Equal(t, int64(1), header.Difficulty.Int64())
	require.Equal(t, types.EncodeNonce(0x42), header.Nonce)
	require.Nil(t, header.BaseFee)
	require.Nil(t, header.WithdrawalsHash)
}

func TestGenesisHeaderCancun(t *testing.T) {
	bc := newTestChain(t, types.Cancun)
	genesis, err := bc.BlockByNumber(0)
	require.NoError(t, err)
	require.NotNil(t, genesis.Header.BlobGasUsed)
	require.NotNil(t, genesis.Header.ExcessBlobGas)
	require.NotNil(t, genesis.Header.ParentBeaconBlockRoot)
}

func TestGenesisDiffPrefundsAndPrecompiles(t *testing.T) {
	var rich types.Address
	rich[0] = 0xaa
	diff := GenesisDiff(map[types.Address]*uint256.Int{
		rich: uint256.NewInt(1_000_000),
	}, types.Shanghai)

	require.Equal(t, uint64(1_000_000), diff[rich].Info.Balance.Uint64())
	var precompile types.Address
	precompile[19] = 1
	require.Contains(t, diff, precompile)
	precompile[19] = 9
	require.Contains(t, diff, precompile)
}

func TestInsertBlockValidation(t *testing.T) {
	bc := newTestChain(t, types.Shanghai)
	genesis, err := bc.BlockByNumber(0)
	require.NoError(t, err)

	good := childOf(genesis, types.Shanghai)
	require.NoError(t, bc.InsertBlock(good, nil))
	require.Equal(t, uint64(1), bc.LastBlockNumber())

	t.Run("wrong number", func(t *testing.T) {
		bad := childOf(good, types.Shanghai)
		bad.Header.Number = big.NewInt(5)
		require.ErrorIs(t, bc.InsertBlock(bad, nil), ErrInvalidBlockNumber)
	})
	t.Run("wrong parent hash", func(t *testing.T) {
		bad := childOf(genesis, types.Shanghai)
		bad.Header.Number = big.NewInt(2)
		require.ErrorIs(t, bc.InsertBlock(bad, nil), ErrInvalidParentHash)
	})
	t.Run("stale timestamp", func(t *testing.T) {
		bad := childOf(good, types.Shanghai)
		bad.Header.Time = good.Time()
		require.ErrorIs(t, bc.InsertBlock(bad, nil), ErrInvalidTimestamp)
	})
	t.Run("gas overflow", func(t *testing.T) {
		bad := childOf(good, types.Shanghai)
		bad.Header.GasUsed = bad.Header.GasLimit + 1
		require.ErrorIs(t, bc.InsertBlock(bad, nil), ErrGasUsedExceedsLimit)
	})
	t.Run("missing base fee", func(t *testing.T) {
		bad := childOf(good, types.Shanghai)
		bad.Header.BaseFee = nil
		require.ErrorIs(t, bc.InsertBlock(bad, nil), ErrMissingBaseFee)
	})
	t.Run("missing withdrawals root", func(t *testing.T) {
		bad := childOf(good, types.Shanghai)
		bad.Header.WithdrawalsHash = nil
		require.ErrorIs(t, bc.InsertBlock(bad, nil), ErrMissingWithdrawals)
	})
	t.Run("nonzero difficulty post-merge", func(t *testing.T) {
		bad := childOf(good, types.Shanghai)
		bad.Header.Difficulty = big.NewInt(1)
		require.ErrorIs(t, bc.InsertBlock(bad, nil), ErrMissingPrevrandao)
	})
}

func TestSameTimestampAllowed(t *testing.T) {
	cfg := testConfig(types.Shanghai)
	cfg.AllowSameTimestamp = true
	bc, err := NewLocalBlockchain(cfg, types.EmptyRootHash, 1_000_000)
	require.NoError(t, err)
	genesis, err := bc.BlockByNumber(0)
	require.NoError(t, err)

	block := childOf(genesis, types.Shanghai)
	block.Header.Time = genesis.Time()
	require.NoError(t, bc.InsertBlock(block, nil))
}

func TestTotalDifficultyAccumulates(t *testing.T) {
	bc := newTestChain(t, types.Istanbul)
	genesis, err := bc.BlockByNumber(0)
	require.NoError(t, err)
	block := childOf(genesis, types.Istanbul)
	require.NoError(t, bc.InsertBlock(block, nil))

	td, err := bc.TotalDifficultyByHash(block.Hash())
	require.NoError(t, err)
	require.Equal(t, int64(2), td.Int64(), "genesis difficulty 1 + block difficulty 1")
}

func TestRevertToBlock(t *testing.T) {
	bc := newTestChain(t, types.Shanghai)
	genesis, err := bc.BlockByNumber(0)
	require.NoError(t, err)
	block := childOf(genesis, types.Shanghai)
	require.NoError(t, bc.InsertBlock(block, nil))

	require.NoError(t, bc.RevertToBlock(0))
	require.Equal(t, uint64(0), bc.LastBlockNumber())
	_, err = bc.BlockByHash(block.Hash())
	require.ErrorIs(t, err, ErrUnknownBlockHash)
	require.ErrorIs(t, bc.RevertToBlock(9), ErrUnknownBlockNumber)
}

func TestSpecAtBlockMainnet(t *testing.T) {
	tests := []struct {
		block uint64
		want  types.SpecID
	}{
		{0, types.Frontier},
		{1_150_000, types.Homestead},
		{2_675_000, types.SpuriousDragon},
		{12_965_000, types.London},
		{15_537_394, types.Merge},
		{17_034_870, types.Shanghai},
		{19_426_587, types.Cancun},
		{20_000_000, types.Cancun},
	}
	for _, tt := range tests {
		spec, err := SpecAtBlock(1, tt.block)
		require.NoError(t, err)
		require.Equal(t, tt.want, spec, "block %d", tt.block)
	}
}

func TestSpecAtBlockUnknownChain(t *testing.T) {
	_, err := SpecAtBlock(424242, 0)
	var missing *MissingHardforkActivationsError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, uint64(424242), missing.ChainID)
}

func TestSafeForkHeight(t *testing.T) {
	require.Equal(t, uint64(995), SafeForkHeight(1, 1000))
	require.Equal(t, uint64(970), SafeForkHeight(424242, 1000))
	require.Equal(t, uint64(0), SafeForkHeight(1, 3))
}
