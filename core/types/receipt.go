// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// Receipt status codes. Pre-Byzantium receipts carry an intermediate state
// root instead of a status code; PostState is non-nil in that case and
// Status is ignored.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt is the per-transaction execution record.
type Receipt struct {
	Type              uint8
	PostState         []byte // pre-Byzantium only
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	TxHash          Hash
	ContractAddress *Address // non-nil for a successful contract creation
	GasUsed         uint64

	BlockHash        Hash
	BlockNumber      uint64
	TransactionIndex uint
}

// Failed reports whether the transaction reverted or otherwise halted
// abnormally. A reverted transaction is not an RPC error; it is a normal
// response with this field set.
func (r *Receipt) Failed() bool {
	if len(r.PostState) != 0 {
		return false // pre-Byzantium: root is present regardless of outcome
	}
	return r.Status == ReceiptStatusFailed
}
