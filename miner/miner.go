// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package miner

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/core/tracing"

	"github.com/devchain-labs/devchain/core/blockchain"
	"github.com/devchain-labs/devchain/core/mempool"
	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
)

// Options selects how a block is mined.
type Options struct {
	Builder     BuilderOptions
	Ordering    mempool.Ordering
	MinGasPrice *big.Int // transactions below it are skipped, sender and all
}

// MineBlockResult is the outcome of one mining run. Nothing has been
// committed: the caller inserts Block into the blockchain and commits
// StateDiff to the state.
type MineBlockResult struct {
	Block     *types.Block
	Receipts  []*types.Receipt
	StateDiff types.StateDiff
	// Included lists the pool entries that made it into the block, in
	// execution order.
	Included []*mempool.PendingTransaction
	// Results holds the per-transaction execution outcomes, aligned with
	// Included.
	Results []*TxExecutionResult
}

// TxExecutionResult pairs a mined transaction with its outcome.
type TxExecutionResult struct {
	Transaction *types.Transaction
	Sender      types.Address
	UsedGas     uint64
	Success     bool
	ReturnData  []byte
	VMErr       error
}

// MineBlock drains the pool's iterator into a new block atop the current
// chain tip. Transactions that cannot pay the base fee or do not fit the
// remaining gas are skipped together with the rest of their sender's
// queue; any other execution error aborts the block.
func MineBlock(chain blockchain.Blockchain, st state.State, pool *mempool.Pool, opts Options, hooks *tracing.Hooks) (*MineBlockResult, error) {
	parent, err := chain.LastBlock()
	if err != nil {
		return nil, err
	}
	builder := NewBlockBuilder(chain, st, parent.Header, opts.Builder)

	iter := pool.Iter(opts.Ordering, builder.BaseFee())
	var included []*mempool.PendingTransaction
	for {
		entry := iter.Next()
		if entry == nil {
			break
		}
		tx := entry.Transaction
		if opts.MinGasPrice != nil && tx.MaxGasPrice().Cmp(opts.MinGasPrice) < 0 {
			iter.RemoveCaller(entry.Sender)
			continue
		}
		_, err := builder.AddTransaction(tx, entry.Sender, hooks)
		switch {
		case err == nil:
			included = append(included, entry)
		case errors.Is(err, ErrTxExceedsBlockGas), errors.Is(err, ErrGasPriceBelowBaseFee):
			log.Debug("skipping transaction and sender", "hash", tx.Hash(), "sender", entry.Sender, "reason", err)
			iter.RemoveCaller(entry.Sender)
		default:
			return nil, err
		}
	}

	block, diff, err := builder.Finalize()
	if err != nil {
		return nil, err
	}

	results := make([]*TxExecutionResult, len(included))
	for i, entry := range included {
		r := builder.Results()[i]
		results[i] = &TxExecutionResult{
			Transaction: entry.Transaction,
			Sender:      entry.Sender,
			UsedGas:     r.UsedGas,
			Success:     r.Success,
			ReturnData:  r.ReturnData,
			VMErr:       r.VMErr,
		}
	}
	log.Info("mined block", "number", block.NumberU64(), "txs", len(included), "gasUsed", block.GasUsed())
	return &MineBlockResult{
		Block:     block,
		Receipts:  builder.Receipts(),
		StateDiff: diff,
		Included:  included,
		Results:   results,
	}, nil
}

// MinePending runs the mining pipeline without committing anything and
// returns a reader over the resulting state together with the uncommitted
// mining result. It backs reads tagged "pending".
func MinePending(chain blockchain.Blockchain, st state.State, pool *mempool.Pool, opts Options) (state.Reader, *MineBlockResult, error) {
	result, err := MineBlock(chain, st, pool, opts, nil)
	if err != nil {
		return nil, nil, err
	}
	return state.NewDiffReader(st, result.StateDiff), result, nil
}
