// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/devchain-labs/devchain/core/types"
)

// InitialBaseFee is the base fee of the genesis block from London on:
// one Gwei.
var InitialBaseFee = big.NewInt(1_000_000_000)

// preMergeGenesisNonce is the nonce carried by pre-merge genesis headers.
const preMergeGenesisNonce = uint64(0x42)

// GenesisDiff builds the state diff that creates the prefunded accounts
// and touches the active precompile addresses into existence as empty
// accounts.
func GenesisDiff(accounts map[types.Address]*uint256.Int, spec types.SpecID) types.StateDiff {
	diff := make(types.StateDiff, len(accounts)+int(spec.PrecompileCount()))
	for addr, balance := range accounts {
		diff[addr] = &types.AccountChange{
			Status: types.AccountCreated,
			Info: &types.Account{
				Balance:  new(uint256.Int).Set(balance),
				CodeHash: types.EmptyCodeHash,
			},
		}
	}
	for i := uint64(1); i <= spec.PrecompileCount(); i++ {
		var addr types.Address
		addr[19] = byte(i)
		addr[18] = byte(i >> 8)
		if _, ok := diff[addr]; !ok {
			diff[addr] = &types.AccountChange{
				Status: types.AccountCreated,
				Info:   types.NewEmptyAccount(),
			}
		}
	}
	return diff
}

// genesisHeader derives the block-zero header for the configured
// hardfork: difficulty and nonce flip at the merge, the base fee appears
// at London, the withdrawals root at Shanghai, and the blob gas fields at
// Cancun.
func genesisHeader(cfg Config, stateRoot types.Hash, timestamp uint64) *types.Header {
	header := &types.Header{
		UncleHash:   types.EmptyUncleHash,
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Root:        stateRoot,
		Number:      new(big.Int),
		GasLimit:    cfg.GasLimit,
		Time:        timestamp,
		Extra:       cfg.ExtraData,
		Coinbase:    cfg.Coinbase,
	}
	if cfg.Spec.IsPostMerge() {
		header.Difficulty = new(big.Int)
		header.Nonce = types.EncodeNonce(0)
	} else {
		header.Difficulty = big.NewInt(1)
		header.Nonce = types.EncodeNonce(preMergeGenesisNonce)
	}
	if cfg.Spec.HasBaseFee() {
		if cfg.InitialBaseFee != nil {
			header.BaseFee = new(big.Int).Set(cfg.InitialBaseFee)
		} else {
			header.BaseFee = new(big.Int).Set(InitialBaseFee)
		}
	}
	if cfg.Spec.HasWithdrawals() {
		root := types.EmptyRootHash
		header.WithdrawalsHash = &root
	}
	if cfg.Spec.HasBlobGas() {
		var blobGasUsed, excessBlobGas uint64
		header.BlobGasUsed = &blobGasUsed
		header.ExcessBlobGas = &excessBlobGas
		beacon := types.Hash{}
		header.ParentBeaconBlockRoot = &beacon
	}
	return header
}
