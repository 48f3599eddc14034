// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blockstore holds mined blocks, their receipts, and their total
// difficulties in memory. The sparse store indexes whatever blocks it is
// given; the reservable store wraps it with compressed ranges of
// lazily-materialized blocks.
package blockstore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/devchain-labs/devchain/core/types"
)

var (
	// ErrDuplicateBlock is returned when a block's number or hash is
	// already indexed.
	ErrDuplicateBlock = errors.New("block already exists in store")

	// ErrDuplicateTransaction is returned when a transaction hash is
	// already bound to a stored block.
	ErrDuplicateTransaction = errors.New("transaction already exists in store")
)

// storedBlock ties a block to its receipts and its total difficulty
// (parent TD + block difficulty).
type storedBlock struct {
	block           *types.Block
	receipts        []*types.Receipt
	totalDifficulty *big.Int
}

// txLocation resolves a transaction hash to its block and receipt.
type txLocation struct {
	block   *types.Block
	receipt *types.Receipt
	index   int
}

// SparseStore is the in-memory block store: number to block, hash to
// number, and transaction hash to (block, receipt). Blocks are immutable
// once inserted and shared by pointer.
type SparseStore struct {
	byNumber map[uint64]*storedBlock
	byHash   map[types.Hash]uint64
	byTxHash map[types.Hash]txLocation
}

// NewSparseStore returns an empty store.
func NewSparseStore() *SparseStore {
	return &SparseStore{
		byNumber: make(map[uint64]*storedBlock),
		byHash:   make(map[types.Hash]uint64),
		byTxHash: make(map[types.Hash]txLocation),
	}
}

// InsertBlock indexes a block after checking number, hash, and transaction
// uniqueness.
func (s *SparseStore) InsertBlock(block *types.Block, receipts []*types.Receipt, totalDifficulty *big.Int) error {
	number := block.NumberU64()
	if _, ok := s.byNumber[number]; ok {
		return fmt.Errorf("%w: number %d", ErrDuplicateBlock, number)
	}
	if _, ok := s.byHash[block.Hash()]; ok {
		return fmt.Errorf("%w: hash %s", ErrDuplicateBlock, block.Hash())
	}
	for _, tx := range block.Transactions {
		if _, ok := s.byTxHash[tx.Hash()]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, tx.Hash())
		}
	}
	s.InsertBlockUnchecked(block, receipts, totalDifficulty)
	return nil
}

// InsertBlockUnchecked indexes a block trusting the caller to have
// guaranteed uniqueness.
func (s *SparseStore) InsertBlockUnchecked(block *types.Block, receipts []*types.Receipt, totalDifficulty *big.Int) {
	number := block.NumberU64()
	stored := &storedBlock{block: block, receipts: receipts, totalDifficulty: totalDifficulty}
	s.byNumber[number] = stored
	s.byHash[block.Hash()] = number
	for i, tx := range block.Transactions {
		var receipt *types.Receipt
		if i < len(receipts) {
			receipt = receipts[i]
		}
		s.byTxHash[tx.Hash()] = txLocation{block: block, receipt: receipt, index: i}
	}
}

// BlockByNumber returns the stored block with the given number, or nil.
func (s *SparseStore) BlockByNumber(number uint64) *types.Block {
	if stored, ok := s.byNumber[number]; ok {
		return stored.block
	}
	return nil
}

// BlockByHash returns the stored block with the given hash, or nil.
func (s *SparseStore) BlockByHash(hash types.Hash) *types.Block {
	if number, ok := s.byHash[hash]; ok {
		return s.byNumber[number].block
	}
	return nil
}

// TotalDifficultyByHash returns the total difficulty recorded for a block.
func (s *SparseStore) TotalDifficultyByHash(hash types.Hash) *big.Int {
	if number, ok := s.byHash[hash]; ok {
		return s.byNumber[number].totalDifficulty
	}
	return nil
}

// ReceiptsByNumber returns the receipts of the block with the given
// number.
func (s *SparseStore) ReceiptsByNumber(number uint64) []*types.Receipt {
	if stored, ok := s.byNumber[number]; ok {
		return stored.receipts
	}
	return nil
}

// BlockAndReceiptByTxHash resolves a transaction hash to its enclosing
// block, its receipt, and its index within the block.
func (s *SparseStore) BlockAndReceiptByTxHash(txHash types.Hash) (*types.Block, *types.Receipt, int, bool) {
	loc, ok := s.byTxHash[txHash]
	if !ok {
		return nil, nil, 0, false
	}
	return loc.block, loc.receipt, loc.index, true
}

// ContainsNumber reports whether a block with the given number is stored.
func (s *SparseStore) ContainsNumber(number uint64) bool {
	_, ok := s.byNumber[number]
	return ok
}

// RevertToBlock removes every block with a number greater than n from all
// three indices in one pass.
func (s *SparseStore) RevertToBlock(n uint64) {
	for number, stored := range s.byNumber {
		if number <= n {
			continue
		}
		delete(s.byNumber, number)
		delete(s.byHash, stored.block.Hash())
		for _, tx := range stored.block.Transactions {
			delete(s.byTxHash, tx.Hash())
		}
	}
}
