// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evm

import (
	"math/big"

	gethcommon "github.com/luxfi/geth/common"
	"github.com/luxfi/geth/consensus/misc/eip4844"
	gethcore "github.com/luxfi/geth/core"
	"github.com/luxfi/geth/core/tracing"
	gethtypes "github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/core/vm"
	gethcrypto "github.com/luxfi/geth/crypto"
	"github.com/luxfi/geth/params"

	"github.com/devchain-labs/devchain/core/types"
)

// BlockEnv describes the block under construction to the interpreter.
type BlockEnv struct {
	Number     uint64
	Time       uint64
	GasLimit   uint64
	Coinbase   types.Address
	BaseFee    *big.Int
	Difficulty *big.Int
	PrevRandao types.Hash
	// GetHash resolves ancestor block hashes for the BLOCKHASH opcode.
	GetHash func(uint64) types.Hash

	ChainID uint64
	Spec    types.SpecID
}

// TxResult is the outcome of executing one transaction.
type TxResult struct {
	UsedGas         uint64
	Success         bool
	ReturnData      []byte
	VMErr           error // revert or halt reason; not an out-of-band failure
	ContractAddress *types.Address
	Logs            []*types.Log
}

// blockContext assembles the interpreter's block context from the env.
func blockContext(env *BlockEnv, cfg *params.ChainConfig) vm.BlockContext {
	ctx := vm.BlockContext{
		CanTransfer: gethcore.CanTransfer,
		Transfer:    gethcore.Transfer,
		GetHash: func(n uint64) gethcommon.Hash {
			if env.GetHash == nil {
				return gethcommon.Hash{}
			}
			return env.GetHash(n)
		},
		Coinbase:    env.Coinbase,
		BlockNumber: new(big.Int).SetUint64(env.Number),
		Time:        env.Time,
		GasLimit:    env.GasLimit,
		Difficulty:  new(big.Int),
		BaseFee:     env.BaseFee,
	}
	if env.Difficulty != nil {
		ctx.Difficulty.Set(env.Difficulty)
	}
	if env.Spec.IsPostMerge() {
		random := gethcommon.Hash(env.PrevRandao)
		ctx.Random = &random
	}
	if env.Spec.HasBlobGas() {
		var excess, used uint64
		header := &gethtypes.Header{
			Number:        new(big.Int).SetUint64(env.Number),
			Time:          env.Time,
			ExcessBlobGas: &excess,
			BlobGasUsed:   &used,
		}
		ctx.BlobBaseFee = eip4844.CalcBlobFee(cfg, header)
	}
	return ctx
}

// message translates a pool transaction into the interpreter's message
// form. The message carries no flag for impersonated transactions: their
// sender goes through the same interpreter checks as any other sender.
func message(tx *types.Transaction, sender types.Address, baseFee *big.Int) *gethcore.Message {
	msg := &gethcore.Message{
		From:      sender,
		To:        tx.To,
		Nonce:     tx.Nonce,
		Value:     valueOrZero(tx.Value),
		GasLimit:  tx.Gas,
		GasPrice:  tx.EffectiveGasPrice(baseFee),
		GasFeeCap: valueOrZero(tx.MaxGasPrice()),
		GasTipCap: valueOrZero(tx.EffectivePriorityFee()),
		Data:      tx.Data,
	}
	if tx.AccessList != nil {
		msg.AccessList = accessListToGeth(tx.AccessList)
	}
	if tx.Type == types.BlobTxType {
		msg.BlobGasFeeCap = tx.BlobFeeCap
		msg.BlobHashes = tx.BlobHashes
	}
	return msg
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func accessListToGeth(list types.AccessList) gethtypes.AccessList {
	out := make(gethtypes.AccessList, len(list))
	for i, tuple := range list {
		out[i] = gethtypes.AccessTuple{Address: tuple.Address, StorageKeys: tuple.StorageKeys}
	}
	return out
}

// ExecuteTransaction runs one transaction through the interpreter against
// the journal. A transaction that reverts is a successful execution with
// Success false; only out-of-band failures (bad nonce, insufficient gas
// funds) return an error.
func ExecuteTransaction(
	journal *Journal,
	tx *types.Transaction,
	sender types.Address,
	env *BlockEnv,
	gasPool *gethcore.GasPool,
	txIndex int,
	hooks *tracing.Hooks,
) (*TxResult, error) {
	cfg := ChainConfig(env.ChainID, env.Spec)
	journal.SetTxContext(tx.Hash(), txIndex)

	evm := vm.NewEVM(blockContext(env, cfg), journal, cfg, vm.Config{Tracer: hooks})
	evm.SetTxContext(vm.TxContext{
		Origin:     sender,
		GasPrice:   tx.EffectiveGasPrice(env.BaseFee),
		BlobHashes: tx.BlobHashes,
	})

	result, err := gethcore.ApplyMessage(evm, message(tx, sender, env.BaseFee), gasPool)
	if err != nil {
		return nil, err
	}

	out := &TxResult{
		UsedGas:    result.UsedGas,
		Success:    result.Err == nil,
		ReturnData: result.ReturnData,
		VMErr:      result.Err,
	}
	for _, l := range journal.TxLogs() {
		out.Logs = append(out.Logs, convertLog(l))
	}
	if tx.To == nil && result.Err == nil {
		created := types.Address(gethcrypto.CreateAddress(sender, tx.Nonce))
		out.ContractAddress = &created
	}
	return out, nil
}
