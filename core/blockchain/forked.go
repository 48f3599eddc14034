// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"fmt"
	"math/big"

	lru "github.com/hashicorp/golang-lru"

	"github.com/devchain-labs/devchain/core/blockstore"
	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
)

// remoteBlockCacheSize bounds the read-through cache of remote blocks.
const remoteBlockCacheSize = 512

// RemoteChain is the subset of a remote JSON-RPC client the forked
// blockchain needs. All lookups use concrete numbers or hashes, so the
// responses are durably cacheable.
type RemoteChain interface {
	BlockByNumber(number uint64) (*types.Block, error)
	BlockByHash(hash types.Hash) (*types.Block, error)
	TransactionBlockAndReceipt(txHash types.Hash) (*types.Block, *types.Receipt, int, error)
	LatestBlockNumber() (uint64, error)
}

// ForkedBlockchain composes a local reservable store (blocks mined on top
// of the fork) with a read-through cache over a remote chain pinned at a
// fork height.
type ForkedBlockchain struct {
	cfg        Config
	remote     RemoteChain
	forkHeight uint64

	// store holds the fork-point block and everything mined above it;
	// numbers below the fork height resolve through the remote cache.
	store *blockstore.ReservableStore
	cache *lru.Cache // number or hash -> *types.Block
}

// NewForkedBlockchain pins a fork at forkHeight (0 means "compute the safe
// height from the remote head"). It refuses chains absent from the
// hardfork activation table and forks below Spurious Dragon.
func NewForkedBlockchain(cfg Config, remote RemoteChain, forkHeight uint64) (*ForkedBlockchain, error) {
	if forkHeight == 0 {
		latest, err := remote.LatestBlockNumber()
		if err != nil {
			return nil, err
		}
		forkHeight = SafeForkHeight(cfg.ChainID, latest)
	}
	spec, err := SpecAtBlock(cfg.ChainID, forkHeight)
	if err != nil {
		return nil, err
	}
	if !spec.AtLeast(types.SpuriousDragon) {
		return nil, fmt.Errorf("%w: %s is active at block %d", ErrInvalidHardfork, spec, forkHeight)
	}
	cache, err := lru.New(remoteBlockCacheSize)
	if err != nil {
		return nil, err
	}
	bc := &ForkedBlockchain{
		cfg:        cfg,
		remote:     remote,
		forkHeight: forkHeight,
		store:      blockstore.NewReservableStore(),
		cache:      cache,
	}
	forkBlock, err := remote.BlockByNumber(forkHeight)
	if err != nil {
		return nil, err
	}
	if err := bc.store.InsertBlock(forkBlock, nil, new(big.Int)); err != nil {
		return nil, err
	}
	log.Info("forked blockchain pinned", "chainId", cfg.ChainID, "forkHeight", forkHeight, "remoteSpec", spec)
	return bc, nil
}

func (bc *ForkedBlockchain) ChainID() uint64    { return bc.cfg.ChainID }
func (bc *ForkedBlockchain) Spec() types.SpecID { return bc.cfg.Spec }

// ForkHeight returns the pinned remote height.
func (bc *ForkedBlockchain) ForkHeight() uint64 { return bc.forkHeight }

func (bc *ForkedBlockchain) SpecAtBlock(number uint64) (types.SpecID, error) {
	if number > bc.forkHeight {
		return bc.cfg.Spec, nil
	}
	return SpecAtBlock(bc.cfg.ChainID, number)
}

func (bc *ForkedBlockchain) LastBlockNumber() uint64 { return bc.store.LastBlockNumber() }

func (bc *ForkedBlockchain) LastBlock() (*types.Block, error) {
	return bc.BlockByNumber(bc.store.LastBlockNumber())
}

func (bc *ForkedBlockchain) BlockByNumber(number uint64) (*types.Block, error) {
	if number >= bc.forkHeight {
		if number > bc.store.LastBlockNumber() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownBlockNumber, number)
		}
		return bc.store.BlockByNumber(number)
	}
	if cached, ok := bc.cache.Get(number); ok {
		return cached.(*types.Block), nil
	}
	block, err := bc.remote.BlockByNumber(number)
	if err != nil {
		return nil, err
	}
	bc.cache.Add(number, block)
	bc.cache.Add(block.Hash(), block)
	return block, nil
}

func (bc *ForkedBlockchain) BlockByHash(hash types.Hash) (*types.Block, error) {
	if block := bc.store.BlockByHash(hash); block != nil {
		return block, nil
	}
	if cached, ok := bc.cache.Get(hash); ok {
		return cached.(*types.Block), nil
	}
	block, err := bc.remote.BlockByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlockHash, hash)
	}
	bc.cache.Add(hash, block)
	bc.cache.Add(block.NumberU64(), block)
	return block, nil
}

func (bc *ForkedBlockchain) ReceiptsByNumber(number uint64) ([]*types.Receipt, error) {
	if number > bc.forkHeight {
		if !bc.store.ContainsNumber(number) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownBlockNumber, number)
		}
		return bc.store.Sparse().ReceiptsByNumber(number), nil
	}
	block, err := bc.BlockByNumber(number)
	if err != nil {
		return nil, err
	}
	receipts := make([]*types.Receipt, len(block.Transactions))
	for i, tx := range block.Transactions {
		_, receipt, _, err := bc.remote.TransactionBlockAndReceipt(tx.Hash())
		if err != nil {
			return nil, err
		}
		receipts[i] = receipt
	}
	return receipts, nil
}

func (bc *ForkedBlockchain) BlockAndReceiptByTxHash(txHash types.Hash) (*types.Block, *types.Receipt, int, error) {
	if block, receipt, index, ok := bc.store.Sparse().BlockAndReceiptByTxHash(txHash); ok {
		return block, receipt, index, nil
	}
	return bc.remote.TransactionBlockAndReceipt(txHash)
}

// TotalDifficultyByHash reports total difficulty accumulated since the
// fork point; remote difficulty history is not replayed, which is sound
// for the post-merge heights forking supports.
func (bc *ForkedBlockchain) TotalDifficultyByHash(hash types.Hash) (*big.Int, error) {
	if td := bc.store.Sparse().TotalDifficultyByHash(hash); td != nil {
		return td, nil
	}
	if _, err := bc.BlockByHash(hash); err != nil {
		return nil, err
	}
	return new(big.Int), nil
}

func (bc *ForkedBlockchain) InsertBlock(block *types.Block, receipts []*types.Receipt) error {
	last, err := bc.LastBlock()
	if err != nil {
		return err
	}
	header := block.Header
	if header.NumberU64() != bc.store.LastBlockNumber()+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidBlockNumber, header.NumberU64(), bc.store.LastBlockNumber()+1)
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
	parentTD := bc.store.Sparse().TotalDifficultyByHash(last.Hash())
	if parentTD == nil {
		parentTD = new(big.Int)
	}
	td := new(big.Int).Add(parentTD, header.Difficulty)
	if err := bc.store.InsertBlock(block, receipts, td); err != nil {
		return err
	}
	log.Debug("inserted block on fork", "number", header.NumberU64(), "hash", block.Hash())
	return nil
}

func (bc *ForkedBlockchain) ReserveBlocks(count, interval uint64) error {
	last, err := bc.LastBlock()
	if err != nil {
		return err
	}
	td := bc.store.Sparse().TotalDifficultyByHash(last.Hash())
	if td == nil {
		td = new(big.Int)
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

func (bc *ForkedBlockchain) RevertToBlock(number uint64) error {
	if number < bc.forkHeight {
		return fmt.Errorf("%w: %d is below the fork height %d", ErrUnknownBlockNumber, number, bc.forkHeight)
	}
	if number > bc.store.LastBlockNumber() {
		return fmt.Errorf("%w: %d", ErrUnknownBlockNumber, number)
	}
	bc.store.RevertToBlock(number)
	return nil
}

// SetGasLimit records a changed block gas limit for subsequent blocks.
func (bc *ForkedBlockchain) SetGasLimit(limit uint64) { bc.cfg.GasLimit = limit }

// GasLimit returns the configured gas limit for new blocks.
func (bc *ForkedBlockchain) GasLimit() uint64 { return bc.cfg.GasLimit }
