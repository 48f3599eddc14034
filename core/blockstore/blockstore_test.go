// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockstore

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/types"
)

func makeBlock(number uint64, parent *types.Block, timestamp uint64) *types.Block {
	header := &types.Header{
		UncleHash:   types.EmptyUncleHash,
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Difficulty:  new(big.Int),
		Number:      new(big.Int).SetUint64(number),
		GasLimit:    30_000_000,
		Time:        timestamp,
		BaseFee:     big.NewInt(1_000_000_000),
	}
	if parent != nil {
		header.ParentHash = parent.Hash()
	}
	return types.NewBlock(header, nil, nil, nil)
}

func TestSparseIndices(t *testing.T) {
	store := NewSparseStore()
	genesis := makeBlock(0, nil, 100)
	require.NoError(t, store.InsertBlock(genesis, nil, big.NewInt(0)))

	require.Equal(t, genesis, store.BlockByNumber(0))
	require.Equal(t, genesis, store.BlockByHash(genesis.Hash()))
	require.Nil(t, store.BlockByNumber(1))
	require.True(t, store.ContainsNumber(0))
	require.Equal(t, int64(0), store.TotalDifficultyByHash(genesis.Hash()).Int64())
}

func TestSparseRejectsDuplicates(t *testing.T) {
	store := NewSparseStore()
	genesis := makeBlock(0, nil, 100)
	require.NoError(t, store.InsertBlock(genesis, nil, big.NewInt(0)))
	require.ErrorIs(t, store.InsertBlock(genesis, nil, big.NewInt(0)), ErrDuplicateBlock)
}

func TestSparseRevert(t *testing.T) {
	store := NewSparseStore()
	genesis := makeBlock(0, nil, 100)
	block1 := makeBlock(1, genesis, 101)
	block2 := makeBlock(2, block1, 102)
	for _, b := range []*types.Block{genesis, block1, block2} {
		require.NoError(t, store.InsertBlock(b, nil, big.NewInt(0)))
	}

	store.RevertToBlock(1)
	require.NotNil(t, store.BlockByNumber(1))
	require.Nil(t, store.BlockByNumber(2))
	require.Nil(t, store.BlockByHash(block2.Hash()))
}

func TestReservationMaterialization(t *testing.T) {
	store := NewReservableStore()
	genesis := makeBlock(0, nil, 1000)
	block1 := makeBlock(1, genesis, 1001)
	require.NoError(t, store.InsertBlock(genesis, nil, big.NewInt(0)))
	require.NoError(t, store.InsertBlock(block1, nil, big.NewInt(0)))

	const count = uint64(1_000_000_000)
	store.ReserveBlocks(count, 1, block1.Header.BaseFee, block1.Header.Root, big.NewInt(0), 1, types.Shanghai, block1.GasLimit())
	require.Equal(t, uint64(1_000_000_001), store.LastBlockNumber())

	const lookup = uint64(500_000_000)
	block, err := store.BlockByNumber(lookup)
	require.NoError(t, err)
	require.Equal(t, lookup, block.NumberU64())
	require.Equal(t, block1.Time()+1*(lookup-2+1), block.Time())
	require.Equal(t, block1.Header.Root, block.Header.Root)
	require.Equal(t, block1.Header.BaseFee, block.Header.BaseFee)

	// The reservation split into two remainders around the lookup.
	reservations := store.Reservations()
	require.Len(t, reservations, 2)
	require.Equal(t, lookup-1, reservations[0].Last)
	require.Equal(t, lookup+1, reservations[1].First)
}

// Random-order point lookups materialize exactly what sequential lookups
// would.
func TestReservationRoundTrip(t *testing.T) {
	sequential := func(order []uint64) map[uint64]uint64 {
		store := NewReservableStore()
		genesis := makeBlock(0, nil, 1000)
		require.NoError(t, store.InsertBlock(genesis, nil, big.NewInt(0)))
		store.ReserveBlocks(10, 7, nil, types.EmptyRootHash, big.NewInt(0), 0, types.Merge, 30_000_000)
		out := make(map[uint64]uint64)
		for _, n := range order {
			block, err := store.BlockByNumber(n)
			require.NoError(t, err)
			out[n] = block.Time()
		}
		return out
	}

	want := sequential([]uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 3; trial++ {
		order := []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		got := sequential(order)
		for n, ts := range want {
			require.Equal(t, ts, got[n], "block %d via order %v", n, order)
		}
	}
}

func TestReservationTimestampRecursion(t *testing.T) {
	store := NewReservableStore()
	genesis := makeBlock(0, nil, 1000)
	require.NoError(t, store.InsertBlock(genesis, nil, big.NewInt(0)))

	store.ReserveBlocks(5, 10, nil, types.EmptyRootHash, big.NewInt(0), 0, types.Merge, 30_000_000)
	store.ReserveBlocks(5, 100, nil, types.EmptyRootHash, big.NewInt(0), 0, types.Merge, 30_000_000)

	// Block 8 sits in the second range; its parent timestamp chains
	// through the first, still unmaterialized range.
	block, err := store.BlockByNumber(8)
	require.NoError(t, err)
	// Range one ends at 1000 + 10*5 = 1050; block 8 is 3 steps of 100 in.
	require.Equal(t, uint64(1000+10*5+100*3), block.Time())
}

func TestRevertClipsReservations(t *testing.T) {
	store := NewReservableStore()
	genesis := makeBlock(0, nil, 1000)
	require.NoError(t, store.InsertBlock(genesis, nil, big.NewInt(0)))
	store.ReserveBlocks(10, 1, nil, types.EmptyRootHash, big.NewInt(0), 0, types.Merge, 30_000_000)

	store.RevertToBlock(5)
	require.Equal(t, uint64(5), store.LastBlockNumber())
	reservations := store.Reservations()
	require.Len(t, reservations, 1)
	require.Equal(t, uint64(1), reservations[0].First)
	require.Equal(t, uint64(5), reservations[0].Last)

	_, err := store.BlockByNumber(6)
	require.ErrorIs(t, err, ErrUnknownBlockNumber)
}

func TestReservedNumbersDisjointFromMaterialized(t *testing.T) {
	store := NewReservableStore()
	genesis := makeBlock(0, nil, 1000)
	require.NoError(t, store.InsertBlock(genesis, nil, big.NewInt(0)))
	store.ReserveBlocks(10, 1, nil, types.EmptyRootHash, big.NewInt(0), 0, types.Merge, 30_000_000)

	_, err := store.BlockByNumber(5)
	require.NoError(t, err)
	for _, r := range store.Reservations() {
		require.False(t, r.Contains(5), "materialized number still reserved")
	}
	require.True(t, store.ContainsNumber(5))
}
