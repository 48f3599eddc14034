// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"math/big"
)

// Header is a block header. Its RLP encoding and Keccak hash are delegated
// to the external geth library (see conversions.go) rather than
// reimplemented here.
type Header struct {
	ParentHash  Hash
	UncleHash   Hash
	Coinbase    Address
	Root        Hash // state root
	TxHash      Hash // transactions root
	ReceiptHash Hash // receipts root
	Bloom       Bloom
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   Hash // a.k.a prevrandao post-merge
	Nonce       BlockNonce

	// London
	BaseFee *big.Int `rlp:"optional"`

	// Shanghai
	WithdrawalsHash *Hash `rlp:"optional"`

	// Cancun
	BlobGasUsed           *uint64 `rlp:"optional"`
	ExcessBlobGas         *uint64 `rlp:"optional"`
	ParentBeaconBlockRoot *Hash   `rlp:"optional"`
}

// NumberU64 returns the block number as a uint64.
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}

// Hash returns the Keccak256 hash of the RLP encoding of the header.
func (h *Header) Hash() Hash {
	return ConvertHeaderToGeth(h).Hash()
}

// EmptyBody reports whether the header describes a block with no
// transactions, ommers, or withdrawals.
func (h *Header) EmptyBody() bool {
	return h.TxHash == EmptyRootHash && h.UncleHash == EmptyUncleHash &&
		(h.WithdrawalsHash == nil || *h.WithdrawalsHash == EmptyRootHash)
}
