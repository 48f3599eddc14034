// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"math/big"

	gethtypes "github.com/luxfi/geth/core/types"
)

// ConvertHeaderToGeth converts a Header to the external geth library's
// header type so that RLP encoding and Keccak hashing can be delegated to
// that library instead of reimplemented here.
func ConvertHeaderToGeth(h *Header) *gethtypes.Header {
	if h == nil {
		return nil
	}
	var nonce gethtypes.BlockNonce
	copy(nonce[:], h.Nonce[:])

	out := &gethtypes.Header{
		ParentHash:  h.ParentHash,
		UncleHash:   h.UncleHash,
		Coinbase:    h.Coinbase,
		Root:        h.Root,
		TxHash:      h.TxHash,
		ReceiptHash: h.ReceiptHash,
		Bloom:       gethtypes.Bloom(h.Bloom),
		Difficulty:  h.Difficulty,
		Number:      h.Number,
		GasLimit:    h.GasLimit,
		GasUsed:     h.GasUsed,
		Time:        h.Time,
		Extra:       h.Extra,
		MixDigest:   h.MixDigest,
		Nonce:       nonce,
		BaseFee:     h.BaseFee,
	}
	if h.WithdrawalsHash != nil {
		wh := *h.WithdrawalsHash
		out.WithdrawalsHash = &wh
	}
	if h.BlobGasUsed != nil {
		bg := *h.BlobGasUsed
		out.BlobGasUsed = &bg
	}
	if h.ExcessBlobGas != nil {
		eb := *h.ExcessBlobGas
		out.ExcessBlobGas = &eb
	}
	if h.ParentBeaconBlockRoot != nil {
		pb := *h.ParentBeaconBlockRoot
		out.ParentBeaconRoot = &pb
	}
	return out
}

// ConvertHeaderFromGeth is the inverse of ConvertHeaderToGeth, used when
// decoding a header read back from a remote fork RPC client.
func ConvertHeaderFromGeth(h *gethtypes.Header) *Header {
	if h == nil {
		return nil
	}
	var nonce BlockNonce
	copy(nonce[:], h.Nonce[:])

	out := &Header{
		ParentHash:  h.ParentHash,
		UncleHash:   h.UncleHash,
		Coinbase:    h.Coinbase,
		Root:        h.Root,
		TxHash:      h.TxHash,
		ReceiptHash: h.ReceiptHash,
		Bloom:       Bloom(h.Bloom),
		Difficulty:  h.Difficulty,
		Number:      h.Number,
		GasLimit:    h.GasLimit,
		GasUsed:     h.GasUsed,
		Time:        h.Time,
		Extra:       h.Extra,
		MixDigest:   h.MixDigest,
		Nonce:       nonce,
		BaseFee:     h.BaseFee,
	}
	if h.WithdrawalsHash != nil {
		wh := *h.WithdrawalsHash
		out.WithdrawalsHash = &wh
	}
	if h.BlobGasUsed != nil {
		bg := *h.BlobGasUsed
		out.BlobGasUsed = &bg
	}
	if h.ExcessBlobGas != nil {
		eb := *h.ExcessBlobGas
		out.ExcessBlobGas = &eb
	}
	if h.ParentBeaconRoot != nil {
		pb := *h.ParentBeaconRoot
		out.ParentBeaconBlockRoot = &pb
	}
	return out
}

// bigFromUint64 is a small helper used where callers only carry a uint64
// block number and need a *big.Int for the header's Number field.
func bigFromUint64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
