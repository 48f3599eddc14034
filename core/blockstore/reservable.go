// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockstore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/devchain-labs/devchain/log"

	"github.com/devchain-labs/devchain/core/types"
)

// ErrUnknownBlockNumber is returned for lookups past the chain tip.
var ErrUnknownBlockNumber = errors.New("unknown block number")

// reservation pairs the externally visible reservation record with the
// gas limit synthetic blocks in the range inherit.
type reservation struct {
	*types.Reservation
	gasLimit uint64
}

// ReservableStore wraps a sparse store with reservations: compressed
// ranges of blocks that are promised to exist but only materialized when
// looked up. Every block number up to the tip either sits in the sparse
// store or inside exactly one reservation.
type ReservableStore struct {
	sparse       *SparseStore
	reservations []*reservation
	lastNumber   uint64
	empty        bool
}

// NewReservableStore returns a store with no blocks. The first inserted
// block (genesis) sets the tip.
func NewReservableStore() *ReservableStore {
	return &ReservableStore{sparse: NewSparseStore(), empty: true}
}

// LastBlockNumber returns the tip number, counting reserved ranges.
func (s *ReservableStore) LastBlockNumber() uint64 { return s.lastNumber }

// Sparse exposes the materialized half of the store.
func (s *ReservableStore) Sparse() *SparseStore { return s.sparse }

// InsertBlock appends a block at the tip.
func (s *ReservableStore) InsertBlock(block *types.Block, receipts []*types.Receipt, totalDifficulty *big.Int) error {
	if err := s.sparse.InsertBlock(block, receipts, totalDifficulty); err != nil {
		return err
	}
	if s.empty || block.NumberU64() > s.lastNumber {
		s.lastNumber = block.NumberU64()
	}
	s.empty = false
	return nil
}

// ReserveBlocks appends a reservation of count blocks at the tail with the
// given timestamp interval. The caller supplies the tail block's base fee,
// state root, total difficulty, diff index, and spec, which every block in
// the range inherits.
func (s *ReservableStore) ReserveBlocks(count, interval uint64, previousBaseFee *big.Int, previousStateRoot types.Hash, previousTotalDifficulty *big.Int, previousDiffIndex int, spec types.SpecID, gasLimit uint64) *types.Reservation {
	r := &types.Reservation{
		First:                   s.lastNumber + 1,
		Last:                    s.lastNumber + count,
		Interval:                interval,
		PreviousBaseFee:         previousBaseFee,
		PreviousStateRoot:       previousStateRoot,
		PreviousTotalDifficulty: previousTotalDifficulty,
		PreviousDiffIndex:       previousDiffIndex,
		Spec:                    spec,
	}
	s.reservations = append(s.reservations, &reservation{Reservation: r, gasLimit: gasLimit})
	s.lastNumber += count
	log.Debug("reserved blocks", "first", r.First, "last", r.Last, "interval", interval)
	return r
}

// BlockByNumber returns the block with the given number, materializing it
// out of its reservation when necessary.
func (s *ReservableStore) BlockByNumber(number uint64) (*types.Block, error) {
	if block := s.sparse.BlockByNumber(number); block != nil {
		return block, nil
	}
	idx := s.reservationIndex(number)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBlockNumber, number)
	}
	return s.materialize(idx, number), nil
}

// BlockByHash returns a materialized block by hash. Reserved blocks have
// no hash until they are materialized, so only the sparse store is
// consulted.
func (s *ReservableStore) BlockByHash(hash types.Hash) *types.Block {
	return s.sparse.BlockByHash(hash)
}

func (s *ReservableStore) reservationIndex(number uint64) int {
	for i, r := range s.reservations {
		if r.Contains(number) {
			return i
		}
	}
	return -1
}

// materialize splits the reservation at idx around number, builds the
// minimal synthetic block for number, and inserts it into the sparse
// store.
func (s *ReservableStore) materialize(idx int, number uint64) *types.Block {
	r := s.reservations[idx]

	remainders := make([]*reservation, 0, 2)
	if r.First < number {
		below := r.Copy()
		below.Last = number - 1
		remainders = append(remainders, &reservation{Reservation: below, gasLimit: r.gasLimit})
	}
	if number < r.Last {
		above := r.Copy()
		above.First = number + 1
		remainders = append(remainders, &reservation{Reservation: above, gasLimit: r.gasLimit})
	}
	s.reservations = append(s.reservations[:idx], append(remainders, s.reservations[idx+1:]...)...)

	header := &types.Header{
		UncleHash:  types.EmptyUncleHash,
		TxHash:     types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Root:       r.PreviousStateRoot,
		Difficulty: new(big.Int),
		Number:     new(big.Int).SetUint64(number),
		GasLimit:   r.gasLimit,
		Time:       s.timestampFor(r.Reservation, number),
		BaseFee:    r.PreviousBaseFee,
	}
	if parent := s.sparse.BlockByNumber(number - 1); parent != nil {
		header.ParentHash = parent.Hash()
	}
	if r.Spec.HasWithdrawals() {
		root := types.EmptyRootHash
		header.WithdrawalsHash = &root
	}
	if r.Spec.HasBlobGas() {
		var zero uint64
		blobGasUsed, excess := zero, zero
		header.BlobGasUsed = &blobGasUsed
		header.ExcessBlobGas = &excess
		beacon := types.Hash{}
		header.ParentBeaconBlockRoot = &beacon
	}

	var withdrawals []*types.Withdrawal
	if r.Spec.HasWithdrawals() {
		withdrawals = []*types.Withdrawal{}
	}
	block := types.NewBlock(header, nil, nil, withdrawals)
	td := new(big.Int)
	if r.PreviousTotalDifficulty != nil {
		td.Set(r.PreviousTotalDifficulty)
	}
	s.sparse.InsertBlockUnchecked(block, nil, td)
	log.Debug("materialized reserved block", "number", number, "timestamp", header.Time)
	return block
}

// timestampFor computes the synthetic timestamp for number inside r:
// parent timestamp of the range plus interval x (number - first + 1),
// recursing into earlier reservations when the range's parent is itself
// reserved.
func (s *ReservableStore) timestampFor(r *types.Reservation, number uint64) uint64 {
	parent := s.timestampAt(r.First - 1)
	return parent + r.Interval*(number-r.First+1)
}

func (s *ReservableStore) timestampAt(number uint64) uint64 {
	if block := s.sparse.BlockByNumber(number); block != nil {
		return block.Time()
	}
	for _, r := range s.reservations {
		if r.Contains(number) {
			return s.timestampFor(r.Reservation, number)
		}
	}
	// Every number at or below the tip is either materialized or
	// reserved.
	panic(fmt.Sprintf("blockstore: no timestamp source for block %d", number))
}

// Reservations returns the live reservation records, for inspection by
// the blockchain and tests.
func (s *ReservableStore) Reservations() []*types.Reservation {
	out := make([]*types.Reservation, len(s.reservations))
	for i, r := range s.reservations {
		out[i] = r.Reservation
	}
	return out
}

// RevertToBlock truncates the store to the given tip: materialized blocks
// above n are dropped, reservations straddling n are clipped, and
// reservations entirely above n are removed.
func (s *ReservableStore) RevertToBlock(n uint64) {
	s.sparse.RevertToBlock(n)
	kept := s.reservations[:0]
	for _, r := range s.reservations {
		switch {
		case r.First > n:
			// dropped
		case r.Last > n:
			clipped := r.Copy()
			clipped.Last = n
			kept = append(kept, &reservation{Reservation: clipped, gasLimit: r.gasLimit})
		default:
			kept = append(kept, r)
		}
	}
	s.reservations = kept
	if n < s.lastNumber {
		s.lastNumber = n
	}
}

// ContainsNumber reports whether the number is materialized or reserved.
func (s *ReservableStore) ContainsNumber(number uint64) bool {
	if s.sparse.ContainsNumber(number) {
		return true
	}
	return s.reservationIndex(number) >= 0
}
