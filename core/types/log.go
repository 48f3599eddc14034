// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// Log is a single EVM LOG0..LOG4 event emitted during transaction
// execution, enriched with the positional information the RPC surface
// reports (block/transaction linkage). Removed is set to true on logs
// returned as part of a chain reorg rollback; this runtime never reorgs,
// so it is always false, but the field is kept because eth_getLogs
// subscribers expect it.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte

	BlockNumber uint64
	TxHash      Hash
	TxIndex     uint
	BlockHash   Hash
	Index       uint
	Removed     bool
}

// AddToBloom ORs a single log's address and topics into a running Bloom
// filter.
func (b *Bloom) AddToBloom(log *Log) {
	addBloomItem(b, log.Address.Bytes())
	for _, topic := range log.Topics {
		addBloomItem(b, topic.Bytes())
	}
}

func addBloomItem(b *Bloom, data []byte) {
	h := keccak256(data)
	for i := 0; i < 3; i++ {
		bitIdx := (uint(h[2*i])<<8 | uint(h[2*i+1])) & 2047
		byteIdx := 255 - bitIdx/8
		bitMask := byte(1) << (bitIdx % 8)
		b[byteIdx] |= bitMask
	}
}

// CreateBloom computes the logs bloom for a full set of receipts by ORing
// every log's address-and-topics bloom into one block bloom.
func CreateBloom(receipts []*Receipt) Bloom {
	var bloom Bloom
	for _, r := range receipts {
		for _, log := range r.Logs {
			bloom.AddToBloom(log)
		}
	}
	return bloom
}
