// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracers

import (
	"fmt"

	gethcore "github.com/luxfi/geth/core"

	"github.com/devchain-labs/devchain/core/blockchain"
	"github.com/devchain-labs/devchain/core/evm"
	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
)

// TraceTransaction re-executes a mined transaction with the given tracer
// attached: the enclosing block's earlier transactions run untraced
// against the state at the parent block, then the target runs with the
// tracer's hooks installed. It returns the target's execution result.
func TraceTransaction(chain blockchain.Blockchain, st state.State, txHash types.Hash, tracer Tracer) (*evm.TxResult, error) {
	block, _, index, err := chain.BlockAndReceiptByTxHash(txHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransactionHash, txHash)
	}
	spec, err := chain.SpecAtBlock(block.NumberU64())
	if err != nil {
		return nil, err
	}
	if !spec.AtLeast(types.SpuriousDragon) {
		return nil, fmt.Errorf("%w: block %d is %s", ErrInvalidSpecID, block.NumberU64(), spec)
	}

	parentState, err := st.StateAtBlock(block.NumberU64() - 1)
	if err != nil {
		return nil, err
	}
	header := block.Header
	env := &evm.BlockEnv{
		Number:     header.NumberU64(),
		Time:       header.Time,
		GasLimit:   header.GasLimit,
		Coinbase:   header.Coinbase,
		BaseFee:    header.BaseFee,
		Difficulty: header.Difficulty,
		PrevRandao: header.MixDigest,
		ChainID:    chain.ChainID(),
		Spec:       spec,
		GetHash: func(n uint64) types.Hash {
			ancestor, err := chain.BlockByNumber(n)
			if err != nil {
				return types.Hash{}
			}
			return ancestor.Hash()
		},
	}

	journal := evm.NewJournal(parentState)
	gasPool := new(gethcore.GasPool).AddGas(header.GasLimit)
	for i := 0; i < index; i++ {
		tx := block.Transactions[i]
		sender, err := tx.Sender()
		if err != nil {
			return nil, err
		}
		if _, err := evm.ExecuteTransaction(journal, tx, sender, env, gasPool, i, nil); err != nil {
			return nil, err
		}
	}

	target := block.Transactions[index]
	sender, err := target.Sender()
	if err != nil {
		return nil, err
	}
	return evm.ExecuteTransaction(journal, target, sender, env, gasPool, index, tracer.Hooks())
}

// TraceCall executes an unsigned call against the state at the given
// block with the tracer attached, without touching the chain.
func TraceCall(chain blockchain.Blockchain, st state.State, blockNumber uint64, tx *types.Transaction, sender types.Address, tracer Tracer) (*evm.TxResult, error) {
	spec, err := chain.SpecAtBlock(blockNumber)
	if err != nil {
		return nil, err
	}
	if !spec.AtLeast(types.SpuriousDragon) {
		return nil, fmt.Errorf("%w: block %d is %s", ErrInvalidSpecID, blockNumber, spec)
	}
	block, err := chain.BlockByNumber(blockNumber)
	if err != nil {
		return nil, err
	}
	reader, err := st.StateAtBlock(blockNumber)
	if err != nil {
		return nil, err
	}
	header := block.Header
	env := &evm.BlockEnv{
		Number:     header.NumberU64(),
		Time:       header.Time,
		GasLimit:   header.GasLimit,
		Coinbase:   header.Coinbase,
		BaseFee:    header.BaseFee,
		Difficulty: header.Difficulty,
		PrevRandao: header.MixDigest,
		ChainID:    chain.ChainID(),
		Spec:       spec,
	}
	journal := evm.NewJournal(reader)
	gasPool := new(gethcore.GasPool).AddGas(header.GasLimit)
	return evm.ExecuteTransaction(journal, tx, sender, env, gasPool, 0, tracer.Hooks())
}
