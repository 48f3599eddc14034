// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blockchain owns the block store and the chain-level rules: how
// genesis is derived, which blocks may be appended, and which hardfork
// governs a given height. The local blockchain is self-contained; the
// forked blockchain composes a local store over a remote chain pinned at
// a fork height.
package blockchain

import (
	"fmt"
	"math/big"

	"github.com/devchain-labs/devchain/core/blockstore"
	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
)

// Config carries the chain-level knobs shared by both backends.
type Config struct {
	ChainID            uint64
	Spec               types.SpecID
	GasLimit           uint64
	Coinbase           types.Address
	ExtraData          []byte
	InitialBaseFee     *big.Int // nil means one Gwei from London on
	AllowSameTimestamp bool
}

// Blockchain is the store-plus-rules surface the provider and miner work
// against.
type Blockchain interface {
	ChainID() uint64
	Spec() types.SpecID
	// SpecAtBlock returns the hardfork active at a historical height.
	SpecAtBlock(number uint64) (types.SpecID, error)

	LastBlockNumber() uint64
	LastBlock() (*types.Block, error)
	BlockByNumber(number uint64) (*types.Block, error)
	BlockByHash(hash types.Hash) (*types.Block, error)
	ReceiptsByNumber(number uint64) ([]*types.Receipt, error)
	BlockAndReceiptByTxHash(txHash types.Hash) (*types.Block, *types.Receipt, int, error)
	TotalDifficultyByHash(hash types.Hash) (*big.Int, error)

	// InsertBlock validates and appends a mined block.
	InsertBlock(block *types.Block, receipts []*types.Receipt) error
	// ReserveBlocks promises count blocks at the tail with uniform
	// timestamps, materialized only on lookup.
	ReserveBlocks(count, interval uint64) error
	// RevertToBlock drops every block above the given number.
	RevertToBlock(number uint64) error
}

// LocalBlockchain is a chain built entirely in-process from genesis.
type LocalBlockchain struct {
	cfg   Config
	store *blockstore.ReservableStore
}

// NewLocalBlockchain builds the chain and its genesis block. The genesis
// state root is computed by the caller (the provider commits the genesis
// diff to the state first and passes the resulting root).
func NewLocalBlockchain(cfg Config, genesisStateRoot types.Hash, genesisTimestamp uint64) (*LocalBlockchain, error) {
	bc := &LocalBlockchain{cfg: cfg, store: blockstore.NewReservableStore()}
	header := genesisHeader(cfg, genesisStateRoot, genesisTimestamp)
	var withdrawals []*types.Withdrawal
	if cfg.Spec.HasWithdrawals() {
		withdrawals = []*types.Withdrawal{}
	}
	genesis := types.NewBlock(header, nil, nil, withdrawals)
	if err := bc.store.InsertBlock(genesis, nil, new(big.Int).Set(header.Difficulty)); err != nil {
		return nil, err
	}
	log.Info("built genesis block", "hash", genesis.Hash(), "spec", cfg.Spec, "chainId", cfg.ChainID)
	return bc, nil
}

func (bc *LocalBlockchain) ChainID() uint64      { return bc.cfg.ChainID }
func (bc *LocalBlockchain) Spec() types.SpecID   { return bc.cfg.Spec }
func (bc *LocalBlockchain) LastBlockNumber() uint64 { return bc.store.LastBlockNumber() }

func (bc *LocalBlockchain) SpecAtBlock(uint64) (types.SpecID, error) {
	return bc.cfg.Spec, nil
}

func (bc *LocalBlockchain) LastBlock() (*types.Block, error) {
	return bc.store.BlockByNumber(bc.store.LastBlockNumber())
}

func (bc *LocalBlockchain) BlockByNumber(number uint64) (*types.Block, error) {
	return bc.store.BlockByNumber(number)
}

func (bc *LocalBlockchain) BlockByHash(hash types.Hash) (*types.Block, error) {
	if block := bc.store.BlockByHash(hash); block != nil {
		return block, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBlockHash, hash)
}

func (bc *LocalBlockchain) ReceiptsByNumber(number uint64) ([]*types.Receipt, error) {
	if !bc.store.ContainsNumber(number) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBlockNumber, number)
	}
	return bc.store.Sparse().ReceiptsByNumber(number), nil
}

func (bc *LocalBlockchain) BlockAndReceiptByTxHash(txHash types.Hash) (*types.Block, *types.Receipt, int, error) {
	block, receipt, index, ok := bc.store.Sparse().BlockAndReceiptByTxHash(txHash)
	if !ok {
		return nil, nil, 0, fmt.Errorf("%w: no block for transaction %s", ErrUnknownBlockHash, txHash)
	}
	return block, receipt, index, nil
}

func (bc *LocalBlockchain) TotalDifficultyByHash(hash types.Hash) (*big.Int, error) {
	if td := bc.store.Sparse().TotalDifficultyByHash(hash); td != nil {
		return td, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBlockHash, hash)
}

// InsertBlock checks the chain rules before appending:
// the number extends the tip by one, the parent hash matches, the
// timestamp strictly advances (unless same-timestamp blocks are allowed),
// gas used fits the limit, and the hardfork-mandated header fields are
// present exactly when required.
func (bc *LocalBlockchain) InsertBlock(block *types.Block, receipts []*types.Receipt) error {
	last, err := bc.LastBlock()
	if err != nil {
		return err
	}
	header := block.Header
	if header.NumberU64() != last.NumberU64()+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidBlockNumber, header.NumberU64(), last.NumberU64()+1)
	}
	if header.ParentHash != last.Hash() {
		return fmt.Errorf("%w: got %s, want %s", ErrInvalidParentHash, header.ParentHash, last.Hash())
	}
	if header.Time < last.Time() || (header.Time == last.Time() && !bc.cfg.AllowSameTimestamp) {
		return fmt.Errorf("%w: %d is not after parent's %d", ErrInvalidTimestamp, header.Time, last.Time())
	}
	if header.GasUsed > header.GasLimit {
		return fmt.Errorf("%w: used %d, limit %d", ErrGasUsedExceedsLimit, header.GasUsed, header.GasLimit)
	}
	if err := validateHardforkFields(bc.cfg.Spec, header); err != nil {
		return err
	}
	td := new(big.Int).Add(bc.mustTotalDifficulty(last.Hash()), header.Difficulty)
	if err := bc.store.InsertBlock(block, receipts, td); err != nil {
		return err
	}
	log.Debug("inserted block", "number", header.NumberU64(), "hash", block.Hash(), "txs", len(block.Transactions), "gasUsed", header.GasUsed)
	return nil
}

func (bc *LocalBlockchain) mustTotalDifficulty(hash types.Hash) *big.Int {
	if td := bc.store.Sparse().TotalDifficultyByHash(hash); td != nil {
		return td
	}
	return new(big.Int)
}

func validateHardforkFields(spec types.SpecID, header *types.Header) error {
	if spec.HasBaseFee() != (header.BaseFee != nil) {
		return ErrMissingBaseFee
	}
	if spec.HasWithdrawals() != (header.WithdrawalsHash != nil) {
		return ErrMissingWithdrawals
	}
	if spec.HasBlobGas() != (header.BlobGasUsed != nil && header.ExcessBlobGas != nil) {
		return ErrMissingBlobGas
	}
	if spec.HasBlobGas() && header.ParentBeaconBlockRoot == nil {
		return ErrMissingParentBeaconBlockRoot
	}
	if spec.IsPostMerge() && header.Difficulty.Sign() != 0 {
		return ErrMissingPrevrandao
	}
	return nil
}

func (bc *LocalBlockchain) ReserveBlocks(count, interval uint64) error {
	last, err := bc.LastBlock()
	if err != nil {
		return err
	}
	td, err := bc.TotalDifficultyByHash(last.Hash())
	if err != nil {
		return err
	}
	bc.store.ReserveBlocks(
		count,
		interval,
		last.Header.BaseFee,
		last.Header.Root,
		td,
		int(last.NumberU64()),
		bc.cfg.Spec,
		last.GasLimit(),
	)
	return nil
}

func (bc *LocalBlockchain) RevertToBlock(number uint64) error {
	if number > bc.store.LastBlockNumber() {
		return fmt.Errorf("%w: %d", ErrUnknownBlockNumber, number)
	}
	bc.store.RevertToBlock(number)
	return nil
}

// SetGasLimit records a changed block gas limit for subsequent blocks.
func (bc *LocalBlockchain) SetGasLimit(limit uint64) { bc.cfg.GasLimit = limit }

// GasLimit returns the configured gas limit for new blocks.
func (bc *LocalBlockchain) GasLimit() uint64 { return bc.cfg.GasLimit }

// Config returns the chain configuration.
func (bc *LocalBlockchain) Config() Config { return bc.cfg }
