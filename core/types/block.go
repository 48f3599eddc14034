// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// Withdrawal is an EIP-4895 validator withdrawal, carried by Shanghai and
// later blocks.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        Address
	Amount         uint64 // in Gwei
}

// Block is an immutable, shared record: once inserted into a blockstore it
// is never mutated, and is safe to hand out to concurrent RPC responses by
// pointer (the provider never writes through a *Block it has published).
type Block struct {
	Header       *Header
	Transactions []*Transaction
	Uncles       []*Header
	Withdrawals  []*Withdrawal // nil pre-Shanghai, non-nil (possibly empty) from Shanghai on
}

// NewBlock assembles a block from its parts. Callers are expected to have
// already set the header's TxHash/UncleHash/WithdrawalsHash/ReceiptHash/
// Bloom fields (the miner does this in Finalize).
func NewBlock(header *Header, txs []*Transaction, uncles []*Header, withdrawals []*Withdrawal) *Block {
	return &Block{Header: header, Transactions: txs, Uncles: uncles, Withdrawals: withdrawals}
}

// Hash returns the block's canonical hash, i.e. its header's hash.
func (b *Block) Hash() Hash { return b.Header.Hash() }

// NumberU64 returns the block number.
func (b *Block) NumberU64() uint64 { return b.Header.NumberU64() }

// Time returns the block's timestamp.
func (b *Block) Time() uint64 { return b.Header.Time }

// GasLimit returns the block's gas limit.
func (b *Block) GasLimit() uint64 { return b.Header.GasLimit }

// GasUsed returns the gas used by the block's transactions.
func (b *Block) GasUsed() uint64 { return b.Header.GasUsed }
