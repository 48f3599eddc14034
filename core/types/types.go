// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types defines the primitive data model shared by the trie, state,
// blockstore, blockchain, mempool, miner, and tracer packages: addresses,
// hashes, accounts, headers, blocks, receipts, logs, and the out-of-band
// records (state diffs, irregular overrides, reservations) that the
// providers' cheat operations produce.
package types

import (
	gethcommon "github.com/luxfi/geth/common"
	gethcrypto "github.com/luxfi/geth/crypto"
)

// Address and Hash are the 20-byte and 32-byte primitives used throughout
// the runtime. They are aliases of the external geth library's types rather
// than new definitions: ECDSA/Keccak and RLP are out-of-scope primitives
// this runtime assumes are available as a library, and gethcommon.Address /
// gethcommon.Hash are exactly that library's representation of them.
type (
	Address = gethcommon.Address
	Hash    = gethcommon.Hash
)

// Bloom represents the 2048-bit bloom filter carried by block headers and
// transaction receipts.
type Bloom [256]byte

// BlockNonce is the 8-byte nonce field of a block header.
type BlockNonce [8]byte

// EncodeNonce converts a block nonce to its byte representation.
func EncodeNonce(i uint64) BlockNonce {
	var n BlockNonce
	for idx := 7; idx >= 0; idx-- {
		n[idx] = byte(i)
		i >>= 8
	}
	return n
}

// Uint64 returns the integer value of a block nonce.
func (n BlockNonce) Uint64() uint64 {
	var i uint64
	for _, b := range n {
		i = i<<8 | uint64(b)
	}
	return i
}

// EmptyCodeHash is Keccak256("") — the code hash of any account without code.
var EmptyCodeHash = gethcrypto.Keccak256Hash(nil)

// EmptyRootHash is the root of an RLP-encoded empty byte string (0x80),
// i.e. the canonical root of a trie with no entries.
var EmptyRootHash = gethcrypto.Keccak256Hash([]byte{0x80})

// EmptyUncleHash is the Keccak256 of the RLP encoding of an empty ommer
// list (0xc0).
var EmptyUncleHash = gethcrypto.Keccak256Hash([]byte{0xc0})

// HexToHash is a thin convenience wrapper so literals elsewhere read
// cleanly; delegates entirely to the external geth common package.
func HexToHash(s string) Hash {
	return gethcommon.HexToHash(s)
}
